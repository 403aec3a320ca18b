package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/internal/server"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
	"github.com/dlgforge/dlgforge/pkg/project"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	projectPath string
	addr        string
	noCache     bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := &serveOpts{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the codec over HTTP for build pipelines",
		Long: `Serve the codec over HTTP for build pipelines.

POST a conversation file body to /v1/validate, /v1/transcript, or
/v1/roundtrip. Results are cached by content hash. The server keeps no
document state of its own and shuts down cleanly on interrupt.

Examples:
  dlgforge serve
  dlgforge serve --addr :8080
  dlgforge serve -p campaign/dlgforge.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default: project server address or "+project.DefaultServerAddr+")")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")
	cmd.Flags().StringVarP(&opts.projectPath, "project", "p", "", "project manifest (default: ./"+project.Filename+" if present)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	m, err := loadProject(opts.projectPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
	}

	store, keyer := c.newCache(ctx, m, opts.noCache)
	defer store.Close()

	cfg := server.Config{
		Addr:   opts.addr,
		Cache:  store,
		Keyer:  keyer,
		Logger: c.Logger,
	}
	if m != nil {
		if cfg.Addr == "" {
			cfg.Addr = m.ServerAddr()
		}
		cfg.CacheTTL = m.Cache.TTL.Duration
		cfg.Lang = m.Lang()
		cfg.MaxDepth = m.MaxDepth
	}
	if cfg.Addr == "" {
		cfg.Addr = project.DefaultServerAddr
	}

	printInfo("Serving on %s", StyleHighlight.Render("http://"+cfg.Addr))
	printDetail("POST /v1/validate, /v1/transcript, /v1/roundtrip")
	printNewline()

	return server.New(cfg).ListenAndServe(ctx)
}
