package main

import (
	"strings"
	"testing"

	"sieve/internal/testsupport"
)

func TestIndexStatsReportsSize(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTargets("a", "b", "", "a", "c"))

	out, _, err := runCLI(t, []string{"index", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("index stats: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.TargetsFile)
	if !strings.Contains(out, " 3 ") {
		t.Fatalf("expected 3 distinct targets:\n%s", out)
	}
}

func TestIndexStatsMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"index", "stats"}, env.configPath); err == nil {
		t.Fatal("expected missing targets file to fail")
	}
}

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		name    string
		opts    []testsupport.ConfigOption
		wantErr bool
		want    string
	}{
		{name: "all passing", opts: []testsupport.ConfigOption{testsupport.WithTargets("x")}, want: "ok"},
		{name: "missing targets", wantErr: true, want: "fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupCLITestEnv(t, tt.opts...)
			out, _, err := runCLI(t, []string{"check"}, env.configPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("check error = %v, wantErr %v", err, tt.wantErr)
			}
			requireContains(t, out, tt.want)
		})
	}
}

func TestHistoryWithoutDatabase(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())

	if _, _, err := runCLI(t, []string{"history"}, env.configPath); err == nil {
		t.Fatal("expected disabled history to fail")
	}
}
