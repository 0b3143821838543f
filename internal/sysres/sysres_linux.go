//go:build linux

package sysres

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

const statmPath = "/proc/self/statm"

func residentBytes() (uint64, error) {
	data, err := os.ReadFile(statmPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", statmPath, err)
	}
	return parseStatm(data, uint64(os.Getpagesize()))
}

// parseStatm extracts the resident field (second column, in pages).
func parseStatm(data []byte, pageSize uint64) (uint64, error) {
	fields := bytes.Fields(data)
	if len(fields) < 2 {
		return 0, fmt.Errorf("parse statm: expected at least 2 fields, got %d", len(fields))
	}
	pages, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse statm resident: %w", err)
	}
	return pages * pageSize, nil
}

func totalMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}

func setNice(nice int) error {
	current, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		return fmt.Errorf("get priority: %w", err)
	}
	// The raw syscall returns 20-nice.
	if 20-current >= nice {
		return nil
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		return fmt.Errorf("set priority: %w", err)
	}
	return nil
}
