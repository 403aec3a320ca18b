package dlg

import (
	"context"
	"slices"

	"github.com/dlgforge/dlgforge/pkg/observability"
)

// report fires the mutation hook and passes the error through.
func report(op string, err error) error {
	observability.Graph().OnMutation(context.Background(), op, err)
	return err
}

// contains reports whether n is a member of its kind's collection.
func (c *Conversation) contains(n *Node) bool {
	return n != nil && slices.Contains(c.collection(n.Kind), n)
}

func (c *Conversation) attach(n *Node) {
	if n.Kind == KindEntry {
		c.Entries = append(c.Entries, n)
		return
	}
	c.Replies = append(c.Replies, n)
}

func (c *Conversation) detach(n *Node) {
	if n.Kind == KindEntry {
		c.Entries = slices.DeleteFunc(c.Entries, func(m *Node) bool { return m == n })
		return
	}
	c.Replies = slices.DeleteFunc(c.Replies, func(m *Node) bool { return m == n })
}

// AddChild creates a new node under parent, connected by an owning
// pointer. The child's kind is the opposite of the parent's, keeping
// speakers alternating along the path. The new node is returned ready for
// editing.
func (c *Conversation) AddChild(parent *Node) (*Node, error) {
	const op = "add child"
	if !c.contains(parent) {
		return nil, report(op, invariant(op, "parent is not part of this conversation"))
	}
	n := newNode(parent.Kind.Opposite())
	c.attach(n)
	p := &Pointer{Target: n, source: parent}
	parent.Pointers = append(parent.Pointers, p)
	c.reg.register(p)
	return n, report(op, nil)
}

// AddStartEntry creates a new entry and a start pointer leading to it.
func (c *Conversation) AddStartEntry() *Node {
	n := newNode(KindEntry)
	c.attach(n)
	p := &Pointer{Target: n}
	c.Starts = append(c.Starts, p)
	c.reg.register(p)
	report("add start entry", nil)
	return n
}

// AddStart makes an existing node a conversation entry point. Entries
// attach directly. A reply must be converted first: its owned subtree
// flips to the opposite kinds, which is only possible when no pointer
// crosses the subtree boundary; otherwise the operation is rejected and
// nothing changes.
func (c *Conversation) AddStart(n *Node) (*Pointer, error) {
	const op = "add start"
	if !c.contains(n) {
		return nil, report(op, invariant(op, "node is not part of this conversation"))
	}
	p, err := c.addStartPointer(op, n)
	return p, report(op, err)
}

func (c *Conversation) addStartPointer(op string, n *Node) (*Pointer, error) {
	if n.Kind == KindReply {
		if err := c.convertKind(op, n); err != nil {
			return nil, err
		}
	}
	p := &Pointer{Target: n}
	c.Starts = append(c.Starts, p)
	c.reg.register(p)
	c.refreshFlags()
	return p, nil
}

// Link adds a link pointer between two existing nodes. Links borrow the
// target without taking ownership, so deleting them later never cascades.
// Speakers must alternate across the new edge.
func (c *Conversation) Link(from, to *Node) (*Pointer, error) {
	const op = "link"
	if !c.contains(from) || !c.contains(to) {
		return nil, report(op, invariant(op, "both ends must be part of this conversation"))
	}
	if to.Kind != from.Kind.Opposite() {
		return nil, report(op, invariant(op, "%s cannot lead to %s, speakers must alternate", from.Kind, to.Kind))
	}
	p := &Pointer{Target: to, IsLink: true, source: from}
	from.Pointers = append(from.Pointers, p)
	c.reg.register(p)
	c.refreshFlags()
	return p, report(op, nil)
}

// Move repositions an edge within the list holding it (the source's
// outgoing list, or the start list for start pointers). to is the
// position in the resulting order. Presentation order is the only thing
// that changes.
func (c *Conversation) Move(p *Pointer, to int) error {
	const op = "move"
	holder := &c.Starts
	if p != nil && p.source != nil {
		holder = &p.source.Pointers
	}
	from := slices.Index(*holder, p)
	if p == nil || from < 0 {
		return report(op, invariant(op, "pointer is not part of this conversation"))
	}
	if to < 0 || to >= len(*holder) {
		return report(op, invariant(op, "position %d out of range, list has %d entries", to, len(*holder)))
	}
	s := slices.Delete(*holder, from, from+1)
	*holder = slices.Insert(s, to, p)
	return report(op, nil)
}

// Delete removes one edge occurrence. A link edge just disappears. An
// owning edge reference-counts its target: a target still held by any
// other incoming pointer survives, otherwise it is physically removed and
// the same check runs down its owned subtree. The orphan sweep then
// quarantines or drops whatever the removal stranded.
func (c *Conversation) Delete(p *Pointer) error {
	const op = "delete"
	if !c.removeEdge(p) {
		return report(op, invariant(op, "pointer is not part of this conversation"))
	}
	c.reg.unregister(p)
	if !p.IsLink {
		c.cascade(p.Target, 0, make(map[*Node]bool))
	}
	c.sweep()
	return report(op, nil)
}

// Restore reattaches a quarantined subtree root. With a parent it hangs
// off a new owning pointer under it; with a nil parent it becomes a
// conversation start. Kinds must work out either way: under a parent
// speakers alternate, and the start list takes entries only, so a reply
// root is converted first.
func (c *Conversation) Restore(n, parent *Node) (*Pointer, error) {
	const op = "restore"
	if !c.contains(n) {
		return nil, report(op, invariant(op, "node is not part of this conversation"))
	}
	if !n.Quarantined {
		return nil, report(op, invariant(op, "node is not quarantined"))
	}
	if parent == nil {
		p, err := c.addStartPointer(op, n)
		return p, report(op, err)
	}
	if !c.contains(parent) {
		return nil, report(op, invariant(op, "parent is not part of this conversation"))
	}
	if n.Kind != parent.Kind.Opposite() {
		return nil, report(op, invariant(op, "%s cannot hold %s, speakers must alternate", parent.Kind, n.Kind))
	}
	p := &Pointer{Target: n, source: parent}
	parent.Pointers = append(parent.Pointers, p)
	c.reg.register(p)
	c.refreshFlags()
	return p, report(op, nil)
}

// Discard permanently drops a quarantined subtree root. The link pointers
// that kept it in quarantine are removed from their holders first, then
// the subtree goes the way of any unreferenced node.
func (c *Conversation) Discard(n *Node) error {
	const op = "discard"
	if !c.contains(n) {
		return report(op, invariant(op, "node is not part of this conversation"))
	}
	if !n.Quarantined {
		return report(op, invariant(op, "node is not quarantined"))
	}
	for _, p := range c.Incoming(n) {
		c.removeEdge(p)
		c.reg.unregister(p)
	}
	c.cascade(n, 0, make(map[*Node]bool))
	c.sweep()
	return report(op, nil)
}

// removeEdge detaches p from whichever slice holds it. It reports false
// when p belongs to no list of this conversation.
func (c *Conversation) removeEdge(p *Pointer) bool {
	if p == nil {
		return false
	}
	if p.source == nil {
		if !slices.Contains(c.Starts, p) {
			return false
		}
		c.Starts = slices.DeleteFunc(c.Starts, func(q *Pointer) bool { return q == p })
		return true
	}
	if !slices.Contains(p.source.Pointers, p) {
		return false
	}
	p.source.Pointers = slices.DeleteFunc(p.source.Pointers, func(q *Pointer) bool { return q == p })
	return true
}

// cascade physically removes n if nothing points at it anymore, then
// applies the same reference-count check down n's owned subtree. seen
// guards against owning cycles; branches past the depth bound are left to
// the sweep.
func (c *Conversation) cascade(n *Node, depth int, seen map[*Node]bool) {
	if n == nil || seen[n] || depth > c.maxDepth() || c.reg.refCount(n) > 0 {
		return
	}
	seen[n] = true
	for _, p := range n.Pointers {
		c.reg.unregister(p)
	}
	outs := n.Pointers
	n.Pointers = nil
	c.detach(n)
	c.reg.forget(n)
	for _, p := range outs {
		if !p.IsLink {
			c.cascade(p.Target, depth+1, seen)
		}
	}
}

// convertKind flips a reply's owned subtree to the opposite kinds so the
// root can stand in the start list. The flip is all or nothing: when any
// pointer crosses the subtree boundary in either direction (a link into
// it from elsewhere, its own edge out to a node owned elsewhere), the
// conversion is rejected, because flipping would break alternation on the
// crossing edge.
func (c *Conversation) convertKind(op string, n *Node) error {
	sub := c.ownedSubtree(n)
	for m := range sub {
		for _, p := range c.Incoming(m) {
			if p.source == nil || !sub[p.source] {
				return invariant(op, "cannot convert %s: it is still referenced from outside its subtree", m.Kind)
			}
		}
		for _, p := range m.Pointers {
			if p.Target != nil && !sub[p.Target] {
				return invariant(op, "cannot convert %s: its subtree points at a node owned elsewhere", n.Kind)
			}
		}
	}
	for m := range sub {
		c.detach(m)
		m.Kind = m.Kind.Opposite()
		c.attach(m)
	}
	return nil
}

// ownedSubtree collects n plus every node whose owner chain leads back to
// n. Shared nodes whose designated owner sits elsewhere stay out.
func (c *Conversation) ownedSubtree(n *Node) map[*Node]bool {
	sub := make(map[*Node]bool)
	var grow func(m *Node, depth int)
	grow = func(m *Node, depth int) {
		if sub[m] || depth > c.maxDepth() {
			return
		}
		sub[m] = true
		for _, p := range m.Pointers {
			if p.Target != nil && c.reg.owner[p.Target] == p {
				grow(p.Target, depth+1)
			}
		}
	}
	grow(n, 0)
	return sub
}
