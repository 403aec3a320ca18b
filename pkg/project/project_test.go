package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dlgforge/dlgforge/pkg/dlg"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `name = "westgate"
files = ["dlg/*.dlg", "intro.dlg"]
language = 1
feminine = true
max_depth = 64

[cache]
backend = "redis"
addr = "localhost:6379"
ttl = "24h"

[server]
addr = ":9000"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "westgate" {
		t.Errorf("Name = %q", m.Name)
	}
	if len(m.Files) != 2 {
		t.Errorf("Files = %v", m.Files)
	}
	if m.Dir() != dir {
		t.Errorf("Dir = %q, want %q", m.Dir(), dir)
	}
	if got := m.Lang(); got != dlg.LangID(1, true) {
		t.Errorf("Lang = %d, want %d", got, dlg.LangID(1, true))
	}
	if got := m.Options().MaxDepth; got != 64 {
		t.Errorf("Options().MaxDepth = %d, want 64", got)
	}
	if m.Cache.TTL.Duration != 24*time.Hour {
		t.Errorf("Cache.TTL = %v, want 24h", m.Cache.TTL.Duration)
	}
	if m.ServerAddr() != ":9000" {
		t.Errorf("ServerAddr = %q", m.ServerAddr())
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `name = "minimal"
files = ["a.dlg"]
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Cache.Backend != "" {
		t.Errorf("Backend = %q, want empty (file)", m.Cache.Backend)
	}
	if m.ServerAddr() != DefaultServerAddr {
		t.Errorf("ServerAddr = %q, want default", m.ServerAddr())
	}
	if m.Lang() != dlg.LangID(0, false) {
		t.Errorf("Lang = %d, want default", m.Lang())
	}
}

func TestLoadRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIn  string
	}{
		{
			name:    "NegativeDepth",
			content: "max_depth = -1\n",
			wantIn:  "max_depth",
		},
		{
			name:    "UnknownBackend",
			content: "[cache]\nbackend = \"memcached\"\n",
			wantIn:  "backend",
		},
		{
			name:    "RedisWithoutAddr",
			content: "[cache]\nbackend = \"redis\"\n",
			wantIn:  "addr",
		},
		{
			name:    "MalformedTOML",
			content: "files = [\n",
			wantIn:  "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load accepted an invalid manifest")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not mention %q", err, tt.wantIn)
			}
		})
	}
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"guard.dlg", "merchant.dlg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	path := writeManifest(t, dir, `name = "p"
files = ["*.dlg", "guard.dlg", "missing.dlg"]
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	files, err := m.ExpandFiles()
	if err != nil {
		t.Fatalf("ExpandFiles: %v", err)
	}

	want := []string{
		filepath.Join(dir, "guard.dlg"),
		filepath.Join(dir, "merchant.dlg"),
		filepath.Join(dir, "missing.dlg"),
	}
	if len(files) != len(want) {
		t.Fatalf("ExpandFiles = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestCacheDir(t *testing.T) {
	cfg := CacheConfig{Dir: "results"}
	got, err := cfg.CacheDir("/proj")
	if err != nil {
		t.Fatalf("CacheDir: %v", err)
	}
	if got != filepath.Join("/proj", "results") {
		t.Errorf("CacheDir = %q", got)
	}

	abs := CacheConfig{Dir: "/var/cache/dlgforge"}
	if got, _ := abs.CacheDir("/proj"); got != "/var/cache/dlgforge" {
		t.Errorf("CacheDir = %q, want the absolute path kept", got)
	}
}
