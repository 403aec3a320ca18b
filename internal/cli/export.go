package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
	"github.com/dlgforge/dlgforge/pkg/project"
)

// exportOpts holds the command-line flags for the export command.
type exportOpts struct {
	projectPath string
	output      string
	lang        uint32
	feminine    bool

	langSet bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := &exportOpts{}

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a conversation as a plain-text transcript",
		Long: `Export a conversation as an indented plain-text transcript for review.

The export is one-way: scripts, parameters, and presentation metadata
are dropped, links are annotated but not expanded, and quarantined
subtrees are appended in their own section.

Examples:
  dlgforge export guard.dlg
  dlgforge export guard.dlg -o guard.txt
  dlgforge export guard.dlg --lang 3 --feminine`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.langSet = cmd.Flags().Changed("lang") || cmd.Flags().Changed("feminine")
			return c.runExport(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().Uint32Var(&opts.lang, "lang", 0, "language to export")
	cmd.Flags().BoolVar(&opts.feminine, "feminine", false, "prefer the feminine text variant")
	cmd.Flags().StringVarP(&opts.projectPath, "project", "p", "", "project manifest (default: ./"+project.Filename+" if present)")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, input string, opts *exportOpts) error {
	m, err := loadProject(opts.projectPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
	}

	lang := dlg.LangID(opts.lang, opts.feminine)
	dopts := dlg.Options{}
	if m != nil {
		dopts = m.Options()
		if !opts.langSet {
			lang = m.Lang()
		}
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	defer f.Close()

	conv, rep, err := dlg.LoadWithOptions(ctx, f, dopts)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}
	logger := loggerFromContext(ctx)
	for _, w := range rep.Warnings {
		logger.Warn(w.Message, "code", w.Code)
	}

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := dlg.WriteTranscript(out, conv, dlg.TranscriptOptions{Lang: lang}); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	if opts.output != "" && opts.output != "-" {
		printSuccess("Transcript written")
		printFile(opts.output)
	}
	return nil
}

// openOutput opens the export destination. An empty path or "-" means
// stdout, which must not be closed.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
