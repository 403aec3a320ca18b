package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/dlg"
)

// infoCommand creates the info command for summarizing a conversation file.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info [file]",
		Short: "Summarize a conversation file",
		Long: `Summarize a conversation file: node counts, entry points, quarantined
subtrees, and any structural findings the load reported.

Quarantined subtrees are listed with their kind:index address; pass
that address to 'dlgforge restore --node' to reattach them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runInfo(ctx context.Context, input string) error {
	conv, rep, err := dlg.LoadFile(ctx, input)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	scripts := 0
	for _, n := range conv.Nodes() {
		if n.Script != "" {
			scripts++
		}
		for _, p := range n.Pointers {
			if p.Active != "" {
				scripts++
			}
		}
	}
	for _, p := range conv.Starts {
		if p.Active != "" {
			scripts++
		}
	}

	printKeyValue("File", input)
	printKeyValue("Entries", strconv.Itoa(len(conv.Entries)))
	printKeyValue("Replies", strconv.Itoa(len(conv.Replies)))
	printKeyValue("Starts", strconv.Itoa(len(conv.Starts)))
	printKeyValue("Scripts", strconv.Itoa(scripts))

	if roots := conv.QuarantineRoots(); len(roots) > 0 {
		printNewline()
		printWarning("%d quarantined subtrees", len(roots))
		for _, r := range roots {
			printDetail("%s", nodeLabel(conv, r))
		}
	}

	warnings := rep.Warnings
	printNewline()
	if len(warnings) == 0 {
		printSuccess("No findings")
	} else {
		printWarning("%d findings", len(warnings))
		for _, w := range warnings {
			printDetail("%s  %s", w.Code, w.Message)
		}
	}

	printNewline()
	printNextStep("Export a transcript", "dlgforge export "+input)
	return nil
}
