package engine

import (
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	Elapsed          time.Duration
	Target           int64
	Attempts         int64
	Matches          int64
	GenerationErrors int64
	DroppedSamples   int64
	BatchSize        int
	Multiplier       float64
	Workers          int
	Interrupted      bool
	Forced           bool
}

// Speed returns attempts per second over the elapsed time.
func (s Snapshot) Speed() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Attempts) / secs
}

// Outcome names how the run ended.
func (s Snapshot) Outcome() string {
	switch {
	case s.Forced:
		return "forced stop"
	case s.Interrupted:
		return "interrupted"
	case s.Attempts >= s.Target:
		return "completed"
	default:
		return "stopped"
	}
}

// RenderStats renders the final statistics table. The output depends only on
// the snapshot.
func RenderStats(s Snapshot) string {
	p := message.NewPrinter(language.English)
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Run Statistics")
	tw.AppendRows([]table.Row{
		{"Outcome", s.Outcome()},
		{"Generated", p.Sprintf("%d / %d", s.Attempts, s.Target)},
		{"Matches", p.Sprintf("%d", s.Matches)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
		{"Speed", p.Sprintf("%.0f c/s", s.Speed())},
		{"Workers", p.Sprintf("%d", s.Workers)},
		{"Batch size", p.Sprintf("%d (x%.2f)", s.BatchSize, s.Multiplier)},
		{"Generation errors", p.Sprintf("%d", s.GenerationErrors)},
		{"Dropped samples", p.Sprintf("%d", s.DroppedSamples)},
	})
	var b strings.Builder
	b.WriteString(tw.Render())
	b.WriteString("\n")
	return b.String()
}
