package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestResolveFFprobeSibling(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, executableName("ffmpeg"))
	ffprobe := filepath.Join(binDir, executableName("ffprobe"))
	writeStub(t, ffmpeg)
	writeStub(t, ffprobe)
	t.Setenv("PATH", "")

	if got := ResolveFFprobePath(ffmpeg, "ffprobe"); got != ffprobe {
		t.Fatalf("expected sibling ffprobe %q, got %q", ffprobe, got)
	}
}

func TestResolveFFprobeFromPath(t *testing.T) {
	binDir := t.TempDir()
	ffprobe := filepath.Join(binDir, executableName("ffprobe"))
	writeStub(t, ffprobe)
	t.Setenv("PATH", binDir)

	if got := ResolveFFprobePath("ffmpeg", "ffprobe"); got != ffprobe {
		t.Fatalf("expected PATH ffprobe %q, got %q", ffprobe, got)
	}
}

func TestResolveFFprobeNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	if got := ResolveFFprobePath("ffmpeg", ""); got != "ffprobe" {
		t.Fatalf("expected bare name when unresolved, got %q", got)
	}
}
