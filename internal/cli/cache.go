package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/cache"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
	"github.com/dlgforge/dlgforge/pkg/project"
)

// cacheOpts holds the flags shared by the cache subcommands.
type cacheOpts struct {
	projectPath string
}

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	opts := &cacheOpts{}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the validation result cache",
	}
	cmd.PersistentFlags().StringVarP(&opts.projectPath, "project", "p", "", "project manifest (default: ./"+project.Filename+" if present)")

	cmd.AddCommand(c.cachePathCommand(opts))
	cmd.AddCommand(c.cacheStatsCommand(opts))
	cmd.AddCommand(c.cacheClearCommand(opts))

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand(opts *cacheOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached results live",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadProject(opts.projectPath)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
			}

			cfg, dir := cacheConfig(m)
			switch cfg.Backend {
			case "none":
				printInfo("Cache is disabled")
			case "redis":
				fmt.Println(cfg.Addr)
			default:
				path, err := cfg.CacheDir(dir)
				if err != nil {
					return fmt.Errorf("resolve cache dir: %w", err)
				}
				fmt.Println(path)
			}
			return nil
		},
	}
}

// cacheStatsCommand creates the "cache stats" subcommand.
func (c *CLI) cacheStatsCommand(opts *cacheOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print cache entry count and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadProject(opts.projectPath)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
			}

			store, _ := c.newCache(cmd.Context(), m, false)
			defer store.Close()

			counter, ok := store.(interface {
				Stats(context.Context) (int, int64, error)
			})
			if !ok {
				printInfo("Stats are not available for this backend")
				return nil
			}
			entries, size, err := counter.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("read cache stats: %w", err)
			}
			printKeyValue("Entries", fmt.Sprintf("%d", entries))
			printKeyValue("Size", formatBytes(size))
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(opts *cacheOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadProject(opts.projectPath)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
			}

			store, _ := c.newCache(cmd.Context(), m, false)
			defer store.Close()

			if _, ok := store.(*cache.NullCache); ok {
				printInfo("Cache is disabled")
				return nil
			}
			clearer, ok := store.(interface{ Clear(context.Context) error })
			if !ok {
				printInfo("Clearing is not available for this backend")
				return nil
			}
			if err := clearer.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cache cleared")
			return nil
		},
	}
}

// cacheConfig extracts the cache section and manifest directory, tolerating
// a missing manifest.
func cacheConfig(m *project.Manifest) (project.CacheConfig, string) {
	if m == nil {
		return project.CacheConfig{}, ""
	}
	return m.Cache, m.Dir()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
