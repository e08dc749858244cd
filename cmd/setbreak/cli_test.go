package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"setbreak/internal/config"
	"setbreak/internal/logs"
	"setbreak/internal/store"
	"setbreak/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	t.Setenv("SETBREAK_DB", "")
	configPath := filepath.Join(testsupport.BaseDir(cfg), "setbreak.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
database = %q
log_dir = %q
temp_dir = %q
library_dir = %q

[analysis]
workers = 2

[[bands]]
name = "Test Band"
aliases = ["tb"]

[logging]
level = "error"
`, cfg.Paths.Database, cfg.Paths.LogDir, cfg.Paths.TempDir, cfg.Paths.LibraryDir)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// writeShows lays out two shows of two tracks each, the second 6 dB hotter.
func writeShows(t *testing.T, library string) {
	t.Helper()
	for _, show := range []struct {
		date string
		gain float64
	}{{"2001-04-01", 0.1}, {"2001-04-02", 0.2}} {
		for track, f := range []float64{196, 247} {
			sig := testsupport.DefaultSignal()
			sig.Seconds = 5
			sig.Gain = show.gain
			sig.Fundamental = f
			name := fmt.Sprintf("tb%st%02d.wav", show.date, track+1)
			testsupport.WriteSignal(t, filepath.Join(library, show.date, name), sig)
		}
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.Database)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestScanAnalyzeCalibrateFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	writeShows(t, env.cfg.Paths.LibraryDir)

	out, _, err := runCLI(t, env, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Scanned 4 files: 4 new")

	out, _, err = runCLI(t, env, "analyze")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Analysis")

	out, _, err = runCLI(t, env, "analyze")
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	requireContains(t, out, "No pending tracks")

	out, _, err = runCLI(t, env, "stats", "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats struct {
		Tracks   int `json:"tracks"`
		Shows    int `json:"shows"`
		Analyzed int `json:"analyzed"`
		Pending  int `json:"pending"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if stats.Tracks != 4 || stats.Shows != 2 || stats.Analyzed != 4 || stats.Pending != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	out, _, err = runCLI(t, env, "top", "energy", "-n", "2", "--json")
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	var top []struct {
		TrackID int64   `json:"track_id"`
		Band    string  `json:"band"`
		Score   float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(out), &top); err != nil {
		t.Fatalf("decode top: %v\n%s", err, out)
	}
	if len(top) != 2 || top[0].Score < top[1].Score || top[0].Band != "Test Band" {
		t.Fatalf("unexpected ranking: %+v", top)
	}

	out, _, err = runCLI(t, env, "show", fmt.Sprint(top[0].TrackID))
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Scores")
	requireContains(t, out, "2001-04-0")

	out, _, err = runCLI(t, env, "calibrate", "--dry-run")
	if err != nil {
		t.Fatalf("calibrate --dry-run: %v", err)
	}
	requireContains(t, out, "Calibration (dry run)")

	out, _, err = runCLI(t, env, "calibrate", "--json")
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	var cal struct {
		ID          string             `json:"id"`
		ShowMedians map[string]float64 `json:"show_medians"`
	}
	if err := json.Unmarshal([]byte(out), &cal); err != nil {
		t.Fatalf("decode calibration: %v\n%s", err, out)
	}
	if cal.ID == "" || len(cal.ShowMedians) != 2 {
		t.Fatalf("unexpected calibration: %+v", cal)
	}

	out, _, err = runCLI(t, env, "calibrate", "--reset")
	if err != nil {
		t.Fatalf("calibrate --reset: %v", err)
	}
	requireContains(t, out, "Restored raw scores for 4 tracks")

	out, _, err = runCLI(t, env, "rescore")
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	requireContains(t, out, "Rescored 4 tracks")

	out, _, err = runCLI(t, env, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var status struct {
		Migrations []string `json:"migrations"`
		Writer     string   `json:"writer_lock"`
		Ready      bool     `json:"ready"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !status.Ready || len(status.Migrations) == 0 || status.Writer != "free" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestTopRejectsUnknownScore(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "top", "loudest")
	if err == nil || !strings.Contains(err.Error(), "unknown score") {
		t.Fatalf("expected unknown score error, got %v", err)
	}
}

func TestShowMissingTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "show", "abc"); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, _, err := runCLI(t, env, "show", "42"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestWriterCommandsRespectLock(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := store.AcquireLock(env.cfg.Paths.Database)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	for _, args := range [][]string{{"scan"}, {"analyze"}, {"calibrate"}, {"rescore"}} {
		_, _, err := runCLI(t, env, args...)
		if err == nil || !strings.Contains(err.Error(), "locked") {
			t.Fatalf("%v: expected lock error, got %v", args, err)
		}
	}

	out, _, err := runCLI(t, env, "stats")
	if err != nil {
		t.Fatalf("stats should not need the writer lock: %v", err)
	}
	requireContains(t, out, "Tracks")
}

func TestLogsCommandFiltersEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := `{"level":"info","msg":"scan completed","component":"catalog","event_type":"scan_completed"}
{"level":"warn","msg":"track failed","component":"pipeline","event_type":"track_failed","track_id":3}
`
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "setbreak.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs", "--event", "track_failed")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "track failed")
	if strings.Contains(out, "scan completed") {
		t.Fatalf("filter leaked other events: %q", out)
	}
}

func TestVerboseFlagEnablesDebugLogging(t *testing.T) {
	env := setupCLITestEnv(t)
	writeShows(t, env.cfg.Paths.LibraryDir)
	logPath := filepath.Join(env.cfg.Paths.LogDir, "setbreak.log")

	if _, _, err := runCLI(t, env, "scan"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	entries, _, err := logs.Last(logPath, 0, logs.Filter{})
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, e := range entries {
		if e.Level == "debug" {
			t.Fatalf("unexpected debug entry without -v: %q", e.Message)
		}
	}

	if _, _, err := runCLI(t, env, "-v", "analyze", "--skip-preflight"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	entries, _, err = logs.Last(logPath, 0, logs.Filter{Component: "decode"})
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Level == "debug" && e.Message == "decoded" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected decode debug entries with -v, got %d decode entries", len(entries))
	}
}
