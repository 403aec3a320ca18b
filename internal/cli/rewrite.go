package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
	"github.com/dlgforge/dlgforge/pkg/project"
)

// rewriteOpts holds the command-line flags for the rewrite command.
type rewriteOpts struct {
	projectPath string
	output      string
}

// rewriteCommand creates the rewrite command.
func (c *CLI) rewriteCommand() *cobra.Command {
	opts := &rewriteOpts{}

	cmd := &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Rewrite a conversation file in canonical layout",
		Long: `Rewrite a conversation file in canonical layout.

Loading and saving normalizes everything foreign tooling left behind:
container layout drift disappears, unreferenced nodes are pruned, and
quarantined subtrees are kept. Without --output the file is replaced
in place through an atomic rename.

Examples:
  dlgforge rewrite guard.dlg
  dlgforge rewrite guard.dlg -o clean.dlg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRewrite(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: rewrite in place)")
	cmd.Flags().StringVarP(&opts.projectPath, "project", "p", "", "project manifest (default: ./"+project.Filename+" if present)")

	return cmd
}

func (c *CLI) runRewrite(ctx context.Context, input string, opts *rewriteOpts) error {
	m, err := loadProject(opts.projectPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
	}

	dopts := dlg.Options{}
	if m != nil {
		dopts = m.Options()
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	conv, rep, err := dlg.LoadWithOptions(ctx, f, dopts)
	f.Close()
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	output := opts.output
	if output == "" {
		output = input
	}
	if err := dlg.SaveFile(ctx, conv, output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}

	// Save leaves the in-memory graph alone, so the written counts are
	// the loaded ones minus what the sweep dropped.
	entries, replies := len(conv.Entries), len(conv.Replies)
	pruned := 0
	for _, w := range rep.Warnings {
		if w.Code != dlg.WarnUnreferenced {
			continue
		}
		pruned++
		switch w.Node.Kind {
		case dlg.KindEntry:
			entries--
		case dlg.KindReply:
			replies--
		}
	}

	printSuccess("Rewrote %s", output)
	printStats(entries, replies, len(conv.Starts), false)
	if pruned > 0 {
		printDetail("%d unreferenced nodes pruned", pruned)
	}
	if roots := conv.QuarantineRoots(); len(roots) > 0 {
		printDetail("%d quarantined subtrees kept", len(roots))
	}
	printNewline()
	printNextStep("Check the result", "dlgforge validate "+output)
	return nil
}
