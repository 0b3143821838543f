package sysres

import "errors"

// ErrUnsupported is returned on platforms without the required system calls.
var ErrUnsupported = errors.New("not supported on this platform")

// LowPriorityNice is the niceness applied by LowerPriority.
const LowPriorityNice = 10

// MemoryUsage is the process's resident set against total system RAM.
type MemoryUsage struct {
	ProcessBytes uint64
	TotalBytes   uint64
}

// Fraction returns ProcessBytes/TotalBytes, or zero when the total is unknown.
func (m MemoryUsage) Fraction() float64 {
	if m.TotalBytes == 0 {
		return 0
	}
	return float64(m.ProcessBytes) / float64(m.TotalBytes)
}

// Percent returns the resident set as a percentage of total RAM.
func (m MemoryUsage) Percent() float64 {
	return m.Fraction() * 100
}

// Exceeds reports whether usage is above limit (a fraction of total RAM).
// A non-positive limit disables the check.
func (m MemoryUsage) Exceeds(limit float64) bool {
	return limit > 0 && m.Fraction() > limit
}

// Memory samples the resident set size of the current process and total
// system RAM.
func Memory() (MemoryUsage, error) {
	rss, rssErr := residentBytes()
	total, totalErr := totalMemory()
	return MemoryUsage{ProcessBytes: rss, TotalBytes: total}, errors.Join(rssErr, totalErr)
}

// LowerPriority raises the niceness of the current process so a long run
// does not starve interactive work.
func LowerPriority() error {
	return setNice(LowPriorityNice)
}
