// Package cli implements the dlgforge command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/buildinfo"
	"github.com/dlgforge/dlgforge/pkg/cache"
	"github.com/dlgforge/dlgforge/pkg/project"
)

// appName is the application name used for cache scopes and display.
const appName = "dlgforge"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. The logger rides along on the command context, so helpers
// below the CLI receiver reach it through loggerFromContext.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "dlgforge",
		Short: "Dlgforge edits and validates branching conversation files",
		Long: `Dlgforge is a CLI tool for working with branching conversation files in
the fixed-layout binary format game runtimes consume: inspecting and
validating them, exporting transcripts for review, restoring orphaned
dialogue, and re-encoding foreign files into a canonical layout.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.infoCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.rewriteCommand())
	root.AddCommand(c.restoreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadProject loads the manifest named by the --project flag. With an
// empty flag the working directory's dlgforge.toml is used when present;
// a missing default manifest is not an error, every setting then falls
// back to flags.
func loadProject(path string) (*project.Manifest, error) {
	if path != "" {
		return project.Load(path)
	}
	if _, err := os.Stat(project.Filename); err != nil {
		return nil, nil
	}
	return project.Load(project.Filename)
}

// newCache builds the result cache the manifest selects, defaulting to
// the file backend under the user cache dir. Backend trouble degrades to
// the null cache with a warning; no command fails over caching.
func (c *CLI) newCache(ctx context.Context, m *project.Manifest, noCache bool) (cache.Cache, cache.Keyer) {
	keyer := cache.NewDefaultKeyer()
	var cfg project.CacheConfig
	var dir string
	if m != nil {
		cfg = m.Cache
		dir = m.Dir()
		if m.Name != "" {
			keyer = cache.NewScopedKeyer(nil, m.Name+":")
		}
	}

	if noCache || cfg.Backend == "none" {
		return cache.NewNullCache(), keyer
	}

	if cfg.Backend == "redis" {
		spin := newSpinner(ctx, fmt.Sprintf("Connecting to redis at %s...", cfg.Addr))
		spin.Start()
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.Addr, Prefix: appName})
		if err != nil {
			spin.StopWithError(fmt.Sprintf("Redis unavailable, continuing without cache: %v", err))
			return cache.NewNullCache(), keyer
		}
		spin.Stop()
		return rc, keyer
	}

	cacheDir, err := cfg.CacheDir(dir)
	if err == nil {
		fc, ferr := cache.NewFileCache(cacheDir)
		if ferr == nil {
			return fc, keyer
		}
		err = ferr
	}
	c.Logger.Warn("file cache unavailable, continuing without", "err", err)
	return cache.NewNullCache(), keyer
}
