package deps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured command to be reported, got %#v", results[2])
	}
}

func TestWithVersionsReadsFirstLine(t *testing.T) {
	binDir := t.TempDir()
	fake := filepath.Join(binDir, "ffmpeg")
	script := []byte("#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) the FFmpeg developers'\necho 'built with gcc'\n")
	if err := os.WriteFile(fake, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	broken := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(broken, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	statuses := WithVersions(context.Background(), CheckBinaries(AudioRequirements(fake, broken)))
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if !strings.HasPrefix(statuses[0].Detail, "ffmpeg version 7.1") {
		t.Fatalf("unexpected version detail: %q", statuses[0].Detail)
	}
	if statuses[1].Detail != "version unknown" {
		t.Fatalf("expected failed probe to be reported, got %q", statuses[1].Detail)
	}
	if !statuses[0].Optional {
		t.Fatal("expected ffmpeg to be optional")
	}
}
