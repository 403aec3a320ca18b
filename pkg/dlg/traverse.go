package dlg

// maxDepth returns the configured traversal bound, falling back to the
// default for zero-value conversations built without a constructor.
func (c *Conversation) maxDepth() int {
	if c.opts.MaxDepth > 0 {
		return c.opts.MaxDepth
	}
	return DefaultMaxDepth
}

// startTargets returns the nodes the start pointers lead to, in order.
func (c *Conversation) startTargets() []*Node {
	targets := make([]*Node, 0, len(c.Starts))
	for _, p := range c.Starts {
		if p.Target != nil {
			targets = append(targets, p.Target)
		}
	}
	return targets
}

// walkFrom runs a depth-first walk over owning pointers from the given
// roots. Each node is visited at most once; visit returning false prunes
// the node's subtree. Branches deeper than the bound are cut with a
// warning. Link pointers are never followed, so the walk always terminates
// even on cyclic graphs.
func (c *Conversation) walkFrom(roots []*Node, visit func(n *Node, depth int) bool) []Warning {
	var warnings []Warning
	seen := make(map[*Node]bool)
	limit := c.maxDepth()

	var dfs func(n *Node, depth int)
	dfs = func(n *Node, depth int) {
		if n == nil || seen[n] {
			return
		}
		if depth > limit {
			warnings = append(warnings, warnf(WarnDepth, n, "branch cut at depth %d (limit %d)", depth, limit))
			return
		}
		seen[n] = true
		if !visit(n, depth) {
			return
		}
		for _, p := range n.Pointers {
			if !p.IsLink {
				dfs(p.Target, depth+1)
			}
		}
	}
	for _, r := range roots {
		dfs(r, 0)
	}
	return warnings
}

// Walk visits every node reachable from the start pointers through owning
// pointers, depth-first in presentation order. visit returning false
// prunes that node's subtree. Returned warnings report branches cut by the
// depth bound.
func (c *Conversation) Walk(visit func(n *Node, depth int) bool) []Warning {
	return c.walkFrom(c.startTargets(), visit)
}

// reach collects the owning-pointer reachability set of the given roots.
func (c *Conversation) reach(roots []*Node) (map[*Node]bool, []Warning) {
	set := make(map[*Node]bool)
	warnings := c.walkFrom(roots, func(n *Node, _ int) bool {
		set[n] = true
		return true
	})
	return set, warnings
}
