package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"setbreak/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
	if readable := CheckDirectoryReadable("test", f); readable.Passed {
		t.Fatal("expected readable check to reject a file")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	ok := CheckFreeSpace("space", dir, 1)
	if !ok.Passed || !strings.Contains(ok.Detail, "free") {
		t.Fatalf("expected pass with free space detail, got %+v", ok)
	}
	tooMuch := CheckFreeSpace("space", dir, 1<<62)
	if tooMuch.Passed || !strings.Contains(tooMuch.Detail, "need") {
		t.Fatalf("expected failure for absurd requirement, got %+v", tooMuch)
	}
	missing := CheckFreeSpace("space", filepath.Join(dir, "nope"), 1)
	if missing.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Database = filepath.Join(base, "setbreak.db")
	cfg.Paths.TempDir = t.TempDir()
	cfg.Paths.LibraryDir = filepath.Join(base, "missing-library")
	cfg.Analysis.FFmpegPath = "clearly-not-present-ffmpeg"

	results := RunAll(context.Background(), &cfg)
	// database, temp, temp space, library, ffmpeg, ffprobe
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if !byName["Database directory"].Passed || !byName["Temp directory"].Passed {
		t.Fatalf("expected writable directories to pass: %+v", results)
	}
	if byName["Library directory"].Passed || !byName["Library directory"].Optional {
		t.Fatalf("expected missing library to fail as optional: %+v", byName["Library directory"])
	}
	if byName["FFmpeg"].Passed {
		t.Fatalf("expected missing ffmpeg to fail: %+v", byName["FFmpeg"])
	}

	failed := Failed(results)
	if len(failed) != 0 {
		t.Fatalf("expected only optional failures, got %s", Summary(failed))
	}
}

func TestFailedKeepsRequiredChecks(t *testing.T) {
	results := []Result{
		{Name: "a", Passed: true},
		{Name: "b", Detail: "broken"},
		{Name: "c", Detail: "meh", Optional: true},
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "b" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if got := Summary(failed); got != "b: broken" {
		t.Fatalf("unexpected summary %q", got)
	}
}
