package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExportToFile(t *testing.T) {
	path := sampleFile(t)
	out := filepath.Join(t.TempDir(), "out.txt")

	if err := newTestCLI().runExport(context.Background(), path, &exportOpts{output: out}); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	want := "NPC: Halt!\n  PC: Who goes there?\n"
	if string(data) != want {
		t.Errorf("transcript = %q, want %q", string(data), want)
	}
}

func TestRunExportMissingInput(t *testing.T) {
	err := newTestCLI().runExport(context.Background(), filepath.Join(t.TempDir(), "nope.dlg"), &exportOpts{})
	if err == nil {
		t.Fatal("missing input should fail")
	}
}

func TestRunExportQuarantineSection(t *testing.T) {
	path := quarantineFile(t)
	out := filepath.Join(t.TempDir(), "out.txt")

	if err := newTestCLI().runExport(context.Background(), path, &exportOpts{output: out}); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(data), "[quarantine]") {
		t.Errorf("transcript should carry a quarantine section, got %q", string(data))
	}
}

func TestOpenOutputStdout(t *testing.T) {
	for _, path := range []string{"", "-"} {
		w, err := openOutput(path)
		if err != nil {
			t.Fatalf("openOutput(%q): %v", path, err)
		}
		if w == nil {
			t.Fatalf("openOutput(%q) returned nil writer", path)
		}
		if err := w.Close(); err != nil {
			t.Errorf("stdout wrapper Close: %v", err)
		}
	}
}
