package main

import (
	"strings"
	"testing"
)

func TestRenderTablePadsAndAligns(t *testing.T) {
	out := renderTable(
		[]column{textCol("Name"), numCol("Count")},
		[][]string{{"alpha", "7"}, {"b", "12345"}, {"short"}, {"x", "1", "dropped"}},
	)
	if strings.Contains(out, "dropped") {
		t.Fatalf("extra cells should be dropped:\n%s", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines (border, header, rule, 4 rows, border), got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "NAME") || !strings.Contains(lines[1], "COUNT") {
		t.Fatalf("header missing: %q", lines[1])
	}
	// Right alignment puts short numbers flush against the border.
	if !strings.HasSuffix(lines[3], "     7 │") {
		t.Fatalf("numeric column not right-aligned: %q", lines[3])
	}
	if !strings.HasPrefix(lines[4], "│ b ") {
		t.Fatalf("text column not left-aligned: %q", lines[4])
	}
}

func TestRenderTableWithoutColumns(t *testing.T) {
	if out := renderTable(nil, [][]string{{"a"}}); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
