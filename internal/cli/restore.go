package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
)

// restoreOpts holds the command-line flags for the restore command.
type restoreOpts struct {
	output   string
	nodeID   string
	parentID string
	asStart  bool
	discard  bool
}

// restoreCommand creates the restore command.
func (c *CLI) restoreCommand() *cobra.Command {
	opts := &restoreOpts{}

	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Reattach or discard quarantined subtrees",
		Long: `Reattach or discard quarantined subtrees.

Deleting a node whose children other branches still link to leaves those
children quarantined: detached from every start but preserved in the
file. This command picks a quarantine root and either hangs it under a
new parent, reattaches it as a conversation start, or discards it for
good.

Nodes are addressed the way listings print them, kind:index, where the
index is the node's position in the file (see dlgforge info). Positions
refer to the file as it is now; saving can renumber them. Without
--node and --parent the choices are interactive.

Examples:
  dlgforge restore guard.dlg
  dlgforge restore guard.dlg --node entry:4 --parent reply:2
  dlgforge restore guard.dlg --node entry:4 --as-start
  dlgforge restore guard.dlg --node entry:4 --discard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRestore(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: rewrite in place)")
	cmd.Flags().StringVar(&opts.nodeID, "node", "", "quarantine root to act on (kind:index)")
	cmd.Flags().StringVar(&opts.parentID, "parent", "", "node to attach under (kind:index)")
	cmd.Flags().BoolVar(&opts.asStart, "as-start", false, "reattach as a conversation start")
	cmd.Flags().BoolVar(&opts.discard, "discard", false, "drop the subtree instead of reattaching")

	return cmd
}

func (c *CLI) runRestore(ctx context.Context, input string, opts *restoreOpts) error {
	if opts.discard && (opts.parentID != "" || opts.asStart) {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "--discard cannot be combined with --parent or --as-start")
	}
	if opts.parentID != "" && opts.asStart {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "--parent and --as-start are mutually exclusive")
	}

	conv, _, err := dlg.LoadFile(ctx, input)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	roots := conv.QuarantineRoots()
	if len(roots) == 0 {
		printInfo("No quarantined subtrees in %s", input)
		return nil
	}

	target, err := pickTarget(conv, roots, opts)
	if err != nil {
		return err
	}

	if opts.discard {
		ref := nodeRef(conv, target)
		if err := conv.Discard(target); err != nil {
			return fmt.Errorf("discard: %w", err)
		}
		printSuccess("Discarded quarantined subtree %s", ref)
	} else {
		parent, err := pickParent(conv, target, opts)
		if err != nil {
			return err
		}
		if _, err := conv.Restore(target, parent); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		if parent == nil {
			printSuccess("Restored %s as conversation start", nodeRef(conv, target))
		} else {
			printSuccess("Restored %s under %s", nodeRef(conv, target), nodeRef(conv, parent))
		}
	}

	output := opts.output
	if output == "" {
		output = input
	}
	if err := dlg.SaveFile(ctx, conv, output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}
	printFile(output)
	printNewline()
	printNextStep("Check the result", "dlgforge validate "+output)
	return nil
}

// pickTarget resolves the quarantine root to act on: the --node flag,
// the only root when there is just one, or an interactive choice.
func pickTarget(conv *dlg.Conversation, roots []*dlg.Node, opts *restoreOpts) (*dlg.Node, error) {
	if opts.nodeID != "" {
		n, err := findNode(conv, opts.nodeID)
		if err != nil {
			return nil, err
		}
		if !n.Quarantined {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "node %s is not a quarantine root", nodeRef(conv, n))
		}
		return n, nil
	}
	if len(roots) == 1 {
		printInfo("One quarantined subtree: %s", StyleHighlight.Render(nodeLabel(conv, roots[0])))
		return roots[0], nil
	}

	items := make([]nodeItem, len(roots))
	for i, r := range roots {
		items[i] = nodeItem{node: r, label: nodeLabel(conv, r)}
	}
	it, err := pickItem("Select Quarantined Subtree", items)
	if err != nil {
		return nil, err
	}
	return it.node, nil
}

// pickParent resolves where the subtree goes. nil means the start list.
// The picker offers nodes of the opposite kind outside the subtree
// itself; attaching a subtree under one of its own nodes would close an
// owning cycle.
func pickParent(conv *dlg.Conversation, target *dlg.Node, opts *restoreOpts) (*dlg.Node, error) {
	if opts.asStart {
		return nil, nil
	}
	if opts.parentID != "" {
		return findNode(conv, opts.parentID)
	}

	sub := subtreeOf(target)
	items := []nodeItem{{label: "(attach as conversation start)"}}
	for _, n := range conv.Nodes() {
		if n.Kind == target.Kind.Opposite() && !sub[n] {
			items = append(items, nodeItem{node: n, label: nodeLabel(conv, n)})
		}
	}
	it, err := pickItem("Select New Parent", items)
	if err != nil {
		return nil, err
	}
	return it.node, nil
}

// findNode resolves a node address: kind:index the way listings print
// them, or a full or unique-prefix session id.
func findNode(conv *dlg.Conversation, s string) (*dlg.Node, error) {
	if kind, idx, ok := parseRef(s); ok {
		list := conv.Entries
		if kind == dlg.KindReply {
			list = conv.Replies
		}
		if idx >= len(list) {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no %s at index %d", kind, idx)
		}
		return list[idx], nil
	}

	if id, err := uuid.Parse(s); err == nil {
		if n, ok := conv.NodeByID(id); ok {
			return n, nil
		}
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no node with id %s", s)
	}

	prefix := strings.ToLower(s)
	var match *dlg.Node
	for _, n := range conv.Nodes() {
		if strings.HasPrefix(n.ID.String(), prefix) {
			if match != nil {
				return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "id prefix %q is ambiguous", s)
			}
			match = n
		}
	}
	if match == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no node matches %q", s)
	}
	return match, nil
}

// parseRef splits a kind:index address.
func parseRef(s string) (dlg.NodeKind, int, bool) {
	kindStr, idxStr, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	var kind dlg.NodeKind
	switch kindStr {
	case "entry":
		kind = dlg.KindEntry
	case "reply":
		kind = dlg.KindReply
	default:
		return 0, 0, false
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return 0, 0, false
	}
	return kind, idx, true
}

// subtreeOf collects the owning-pointer subtree under root.
func subtreeOf(root *dlg.Node) map[*dlg.Node]bool {
	seen := map[*dlg.Node]bool{}
	var dfs func(n *dlg.Node)
	dfs = func(n *dlg.Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		for _, p := range n.Pointers {
			if !p.IsLink {
				dfs(p.Target)
			}
		}
	}
	dfs(root)
	return seen
}
