package dlg

import (
	"fmt"
	"io"
	"strings"
)

// TranscriptOptions configure the plain-text export.
type TranscriptOptions struct {
	// Lang selects the embedded language (see [LangID]). Nodes missing
	// that language fall back the way [LocText.Resolve] does.
	Lang uint32
}

// WriteTranscript renders the conversation as an indented plain-text
// transcript for human review. The export is one-way and lossy: scripts,
// parameters, and presentation metadata are dropped, links are annotated
// but not expanded, and cycles are cut where they close. Quarantined
// subtrees are appended in their own section.
func WriteTranscript(w io.Writer, c *Conversation, opts TranscriptOptions) error {
	t := &transcriber{c: c, w: w, opts: opts}
	for i, s := range c.Starts {
		if i > 0 {
			t.printf("\n")
		}
		t.edge(s, 0, map[*Node]bool{})
	}
	if roots := c.QuarantineRoots(); len(roots) > 0 {
		t.printf("\n[quarantine]\n")
		for _, r := range roots {
			t.edge(&Pointer{Target: r}, 0, map[*Node]bool{})
		}
	}
	return t.err
}

type transcriber struct {
	c    *Conversation
	w    io.Writer
	opts TranscriptOptions
	err  error
}

func (t *transcriber) printf(format string, args ...any) {
	if t.err == nil {
		_, t.err = fmt.Fprintf(t.w, format, args...)
	}
}

// edge prints the line p leads to and recurses into its outgoing edges.
// path carries the ancestors of the current branch; a target already on
// it closed a cycle and is printed once more with a marker, not entered.
func (t *transcriber) edge(p *Pointer, depth int, path map[*Node]bool) {
	n := p.Target
	if n == nil || t.err != nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	line := t.line(n, p)
	switch {
	case p.IsLink:
		t.printf("%s%s [link]\n", indent, line)
	case path[n]:
		t.printf("%s%s [loops]\n", indent, line)
	case depth > t.c.maxDepth():
		t.printf("%s%s [cut at depth %d]\n", indent, line, depth)
	default:
		t.printf("%s%s\n", indent, line)
		path[n] = true
		for _, q := range n.Pointers {
			t.edge(q, depth+1, path)
		}
		delete(path, n)
	}
}

func (t *transcriber) line(n *Node, p *Pointer) string {
	var b strings.Builder
	if n.Kind == KindEntry {
		b.WriteString("NPC")
		if n.Speaker != "" {
			fmt.Fprintf(&b, " (%s)", n.Speaker)
		}
	} else {
		b.WriteString("PC")
	}
	if p.Active != "" {
		fmt.Fprintf(&b, " (if %s)", p.Active)
	}
	b.WriteString(": ")
	b.WriteString(t.text(n))
	return b.String()
}

func (t *transcriber) text(n *Node) string {
	if s, ok := n.Text.Resolve(t.opts.Lang); ok {
		return s
	}
	if n.Text.StrRef != NoStrRef {
		return fmt.Sprintf("[strref %d]", n.Text.StrRef)
	}
	return "[no text]"
}
