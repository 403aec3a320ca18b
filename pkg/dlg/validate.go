package dlg

// Validate runs every structural check without mutating the graph:
// pointer targets, speaker alternation, start kinds, owning cycles, and
// the orphan census. The returned warnings mirror what loading the saved
// bytes would report.
func (c *Conversation) Validate() []Warning {
	var warnings []Warning

	members := make(map[*Node]bool, len(c.Entries)+len(c.Replies))
	for _, n := range c.Nodes() {
		members[n] = true
	}

	for _, n := range c.Nodes() {
		for _, p := range n.Pointers {
			switch {
			case p.Target == nil:
				warnings = append(warnings, warnf(WarnDangling, n, "%s has a pointer without a target", n.Kind))
			case !members[p.Target]:
				warnings = append(warnings, warnf(WarnDangling, n, "%s points at a node outside the conversation", n.Kind))
			case p.Target.Kind != n.Kind.Opposite():
				warnings = append(warnings, warnf(WarnAlternation, n, "%s points at a %s, speakers must alternate", n.Kind, p.Target.Kind))
			}
		}
	}
	for _, p := range c.Starts {
		switch {
		case p.Target == nil:
			warnings = append(warnings, warnf(WarnDangling, nil, "start pointer without a target"))
		case !members[p.Target]:
			warnings = append(warnings, warnf(WarnDangling, nil, "start pointer leads outside the conversation"))
		case p.Target.Kind != KindEntry:
			warnings = append(warnings, warnf(WarnStartKind, p.Target, "start pointer leads to a %s, starts take entries only", p.Target.Kind))
		}
	}

	warnings = append(warnings, c.cycles()...)
	warnings = append(warnings, c.censusWarnings(c.classify())...)
	return warnings
}

// MergeWarnings joins warning lists, dropping duplicates. A load report
// and a later [Conversation.Validate] both run the orphan census, so
// callers combining them would otherwise see every census finding twice.
func MergeWarnings(lists ...[]Warning) []Warning {
	type key struct {
		code WarnCode
		msg  string
		node *Node
	}
	var all []Warning
	for _, l := range lists {
		all = append(all, l...)
	}
	seen := make(map[key]bool, len(all))
	out := make([]Warning, 0, len(all))
	for _, w := range all {
		k := key{w.Code, w.Message, w.Node}
		if !seen[k] {
			seen[k] = true
			out = append(out, w)
		}
	}
	return out
}

const (
	white = iota
	gray
	black
)

// cycles reports cycles over owning pointers. Link edges are exempt: a
// link back to an ancestor is the format's normal way to loop dialogue,
// while an owning cycle means foreign tooling wrote a malformed tree.
func (c *Conversation) cycles() []Warning {
	var warnings []Warning
	color := make(map[*Node]int)
	limit := c.maxDepth()

	var dfs func(n *Node, depth int)
	dfs = func(n *Node, depth int) {
		if depth > limit {
			warnings = append(warnings, warnf(WarnDepth, n, "cycle check cut at depth %d (limit %d)", depth, limit))
			return
		}
		color[n] = gray
		for _, p := range n.Pointers {
			if p.IsLink || p.Target == nil {
				continue
			}
			switch color[p.Target] {
			case gray:
				warnings = append(warnings, warnf(WarnCycle, p.Target, "owning pointers cycle through this %s", p.Target.Kind))
			case white:
				dfs(p.Target, depth+1)
			}
		}
		color[n] = black
	}
	for _, n := range c.Nodes() {
		if color[n] == white {
			dfs(n, 0)
		}
	}
	return warnings
}
