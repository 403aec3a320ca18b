package dlg

import "slices"

// registry tracks incoming pointers per node and designates owners. It is
// a pure cache over the graph: rebuild derives it from scratch, mutation
// methods keep it current incrementally.
type registry struct {
	incoming map[*Node][]*Pointer
	owner    map[*Node]*Pointer
}

func newRegistry() *registry {
	return &registry{
		incoming: make(map[*Node][]*Pointer),
		owner:    make(map[*Node]*Pointer),
	}
}

// register records p against its target. The first non-link pointer to
// reach a node becomes its owner.
func (r *registry) register(p *Pointer) {
	t := p.Target
	if t == nil {
		return
	}
	r.incoming[t] = append(r.incoming[t], p)
	if !p.IsLink && r.owner[t] == nil {
		r.owner[t] = p
	}
}

// unregister removes p from its target's incoming set. When the owner goes
// away, the earliest remaining non-link pointer is promoted.
func (r *registry) unregister(p *Pointer) {
	t := p.Target
	if t == nil {
		return
	}
	r.incoming[t] = slices.DeleteFunc(r.incoming[t], func(q *Pointer) bool { return q == p })
	if len(r.incoming[t]) == 0 {
		delete(r.incoming, t)
	}
	if r.owner[t] == p {
		delete(r.owner, t)
		for _, q := range r.incoming[t] {
			if !q.IsLink {
				r.owner[t] = q
				break
			}
		}
	}
}

// refCount returns the number of live incoming pointers, links included.
func (r *registry) refCount(n *Node) int { return len(r.incoming[n]) }

// linkCount returns the number of live incoming link pointers.
func (r *registry) linkCount(n *Node) int {
	count := 0
	for _, p := range r.incoming[n] {
		if p.IsLink {
			count++
		}
	}
	return count
}

// forget drops all registry state for a node being physically removed.
func (r *registry) forget(n *Node) {
	delete(r.incoming, n)
	delete(r.owner, n)
}

// rebuild rederives the registry from the conversation's collections and
// start list. Registration order is start pointers first, then each node's
// outgoing pointers in collection order, which keeps owner designation
// deterministic.
func (r *registry) rebuild(c *Conversation) {
	r.incoming = make(map[*Node][]*Pointer)
	r.owner = make(map[*Node]*Pointer)
	for _, p := range c.Starts {
		r.register(p)
	}
	for _, n := range c.Nodes() {
		for _, p := range n.Pointers {
			r.register(p)
		}
	}
}
