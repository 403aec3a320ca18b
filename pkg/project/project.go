// Package project loads dlgforge project manifests.
//
// A manifest (dlgforge.toml) describes a set of conversation files plus
// the defaults the tools apply to them: preferred text language, traversal
// depth, cache backend, and server listen address. Command-line flags
// override manifest values.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dlgforge/dlgforge/pkg/dlg"
)

// Filename is the manifest name the tools look for.
const Filename = "dlgforge.toml"

// DefaultServerAddr is the listen address used when the manifest does
// not set one.
const DefaultServerAddr = "localhost:8417"

// Manifest describes a conversation project.
type Manifest struct {
	// Name identifies the project in logs and cache scopes.
	Name string `toml:"name"`

	// Files lists conversation files, relative to the manifest
	// directory. Entries may be glob patterns.
	Files []string `toml:"files"`

	// Language and Feminine select the preferred embedded text variant
	// for transcripts.
	Language uint32 `toml:"language"`
	Feminine bool   `toml:"feminine"`

	// MaxDepth bounds traversals. Zero means the library default.
	MaxDepth int `toml:"max_depth"`

	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`

	dir string
}

// CacheConfig selects and configures the result-cache backend.
type CacheConfig struct {
	// Backend is "file", "redis", or "none". Empty means "file".
	Backend string `toml:"backend"`

	// Dir is the file backend's directory. Empty means a dlgforge
	// directory under the user cache dir.
	Dir string `toml:"dir"`

	// Addr is the redis backend's host:port.
	Addr string `toml:"addr"`

	// TTL is how long cached results live. Zero means no expiration.
	TTL Duration `toml:"ttl"`
}

// ServerConfig configures the automation facade.
type ServerConfig struct {
	// Addr is the listen address. Empty means DefaultServerAddr.
	Addr string `toml:"addr"`
}

// Duration decodes TOML strings like "45s" or "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler] for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative")
	}
	switch m.Cache.Backend {
	case "", "file", "none":
	case "redis":
		if m.Cache.Addr == "" {
			return fmt.Errorf("cache backend %q needs an addr", m.Cache.Backend)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", m.Cache.Backend)
	}
	return nil
}

// Dir returns the directory containing the manifest. File patterns and
// relative cache paths resolve against it.
func (m *Manifest) Dir() string { return m.dir }

// Options returns the load options the manifest implies.
func (m *Manifest) Options() dlg.Options {
	return dlg.Options{MaxDepth: m.MaxDepth}
}

// Lang returns the preferred embedded language id for transcripts.
func (m *Manifest) Lang() uint32 {
	return dlg.LangID(m.Language, m.Feminine)
}

// ServerAddr returns the configured listen address or the default.
func (m *Manifest) ServerAddr() string {
	if m.Server.Addr != "" {
		return m.Server.Addr
	}
	return DefaultServerAddr
}

// ExpandFiles resolves the Files patterns against the manifest directory,
// preserving manifest order and dropping duplicates. A literal entry is
// kept even when the file is missing so later stages can report it; glob
// patterns contribute only what exists.
func (m *Manifest) ExpandFiles() ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, pattern := range m.Files {
		p := pattern
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.dir, p)
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if matches == nil && !strings.ContainsAny(pattern, "*?[") {
			matches = []string{p}
		}
		for _, f := range matches {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// CacheDir returns the file backend's directory, defaulting to a
// dlgforge directory under the user cache dir. A relative configured
// dir resolves against the manifest directory.
func (c CacheConfig) CacheDir(manifestDir string) (string, error) {
	if c.Dir != "" {
		if filepath.IsAbs(c.Dir) {
			return c.Dir, nil
		}
		return filepath.Join(manifestDir, c.Dir), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dlgforge"), nil
}
