package dlg

import (
	"context"
	"slices"

	"github.com/dlgforge/dlgforge/pkg/observability"
)

// census is the result of orphan classification: the set of nodes worth
// keeping, the quarantine roots among them, and any traversal warnings.
type census struct {
	keep     map[*Node]bool
	roots    []*Node
	warnings []Warning
}

// classify partitions the graph without touching it. A node is kept when
// the start pointers reach it through owning pointers, or when anything
// still surviving points at it. Unreachable nodes nothing points at are
// garbage, found by fixpoint: dropping one node strips its outgoing
// edges, which may leave the next node unreferenced in turn.
//
// Among the unreachable survivors, the ones held only by link pointers
// (no owning pointer anywhere) are the quarantine roots.
func (c *Conversation) classify() census {
	reached, warnings := c.reach(c.startTargets())

	gone := make(map[*Node]bool)
	held := func(p *Pointer) bool { return p.source == nil || !gone[p.source] }
	for changed := true; changed; {
		changed = false
		for _, n := range c.Nodes() {
			if reached[n] || gone[n] {
				continue
			}
			alive := 0
			for _, p := range c.reg.incoming[n] {
				if held(p) {
					alive++
				}
			}
			if alive == 0 {
				gone[n] = true
				changed = true
			}
		}
	}

	keep := make(map[*Node]bool, len(reached))
	candidates := make(map[*Node]bool)
	for _, n := range c.Nodes() {
		if gone[n] {
			continue
		}
		keep[n] = true
		if reached[n] {
			continue
		}
		links, owners := 0, 0
		for _, p := range c.reg.incoming[n] {
			if !held(p) {
				continue
			}
			if p.IsLink {
				links++
			} else {
				owners++
			}
		}
		if links > 0 && owners == 0 {
			candidates[n] = true
		}
	}

	return census{
		keep:     keep,
		roots:    c.outermost(candidates),
		warnings: warnings,
	}
}

// outermost filters root candidates down to subtree roots: a candidate
// strictly inside another candidate's owned subtree is interior, not a
// root. Mutually-containing candidates (owning cycles) keep the one that
// comes first in collection order.
func (c *Conversation) outermost(candidates map[*Node]bool) []*Node {
	if len(candidates) == 0 {
		return nil
	}

	var cands []*Node
	subs := make(map[*Node]map[*Node]bool, len(candidates))
	for _, n := range c.Nodes() {
		if candidates[n] {
			cands = append(cands, n)
			subs[n], _ = c.reach([]*Node{n})
		}
	}

	var roots []*Node
	taken := make(map[*Node]bool)
	for _, r := range cands {
		if taken[r] {
			continue
		}
		dominated := false
		for _, o := range cands {
			if o != r && subs[o][r] && !subs[r][o] {
				dominated = true
				break
			}
		}
		if dominated {
			continue
		}
		roots = append(roots, r)
		for m := range subs[r] {
			taken[m] = true
		}
	}
	return roots
}

// sweep reclassifies the whole graph after a structural mutation: refreshes
// every node's quarantine flag and physically drops garbage, unregistering
// its edges and compacting the collections. Returns the number of
// quarantine roots and dropped nodes.
//
// When classification was cut short by the depth bound the keep set is an
// under-approximation, so nothing is dropped; flags are still refreshed.
func (c *Conversation) sweep() (quarantined, dropped int) {
	cen := c.classify()

	rootSet := make(map[*Node]bool, len(cen.roots))
	for _, r := range cen.roots {
		rootSet[r] = true
	}

	var garbage []*Node
	for _, n := range c.Nodes() {
		n.Quarantined = rootSet[n]
		if !cen.keep[n] {
			garbage = append(garbage, n)
		}
	}
	if len(cen.warnings) > 0 {
		garbage = nil
	}
	for _, g := range garbage {
		for _, p := range g.Pointers {
			c.reg.unregister(p)
		}
		c.reg.forget(g)
	}
	if len(garbage) > 0 {
		drop := func(n *Node) bool { return !cen.keep[n] }
		c.Entries = slices.DeleteFunc(c.Entries, drop)
		c.Replies = slices.DeleteFunc(c.Replies, drop)
	}

	observability.Graph().OnSweep(context.Background(), len(cen.roots), len(garbage))
	return len(cen.roots), len(garbage)
}

// censusWarnings renders a census as caller-facing findings: traversal
// cuts, one warning per quarantine root, one per garbage node. Garbage
// findings are withheld when classification was depth-cut, since no prune
// happens then.
func (c *Conversation) censusWarnings(cen census) []Warning {
	warnings := slices.Clone(cen.warnings)
	for _, r := range cen.roots {
		warnings = append(warnings, warnf(WarnOrphan, r, "%s without owner is still link-referenced, quarantined", r.Kind))
	}
	if len(cen.warnings) > 0 {
		return warnings
	}
	for _, n := range c.Nodes() {
		if !cen.keep[n] {
			warnings = append(warnings, warnf(WarnUnreferenced, n, "unreferenced %s, will be pruned on save", n.Kind))
		}
	}
	return warnings
}

// refreshFlags recomputes quarantine flags without dropping anything.
// Attach operations use this instead of sweep so nodes flagged as
// pruned-on-save stay rescuable until a delete or the save itself.
func (c *Conversation) refreshFlags() {
	cen := c.classify()
	rootSet := make(map[*Node]bool, len(cen.roots))
	for _, r := range cen.roots {
		rootSet[r] = true
	}
	for _, n := range c.Nodes() {
		n.Quarantined = rootSet[n]
	}
}

// QuarantineRoots returns the current quarantine roots in collection
// order: orphaned subtree heads waiting for [Conversation.Restore] or
// [Conversation.Discard].
func (c *Conversation) QuarantineRoots() []*Node {
	var roots []*Node
	for _, n := range c.Nodes() {
		if n.Quarantined {
			roots = append(roots, n)
		}
	}
	return roots
}
