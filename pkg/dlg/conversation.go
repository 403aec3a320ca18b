package dlg

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/dlgforge/dlgforge/pkg/gff"
)

const (
	// DelayDefault marks a node display delay that defers to the
	// conversation-wide default.
	DelayDefault uint32 = 0xFFFFFFFF

	// QuestEntryNone marks a node that advances no journal entry.
	QuestEntryNone uint32 = 0xFFFFFFFF

	// NoStrRef marks localized text without an external string-table
	// reference, mirroring [gff.NoStrRef].
	NoStrRef = gff.NoStrRef
)

// DefaultMaxDepth bounds traversals when [Options.MaxDepth] is unset.
// Hand-authored conversations rarely nest past a few dozen levels; the
// bound exists to stop runaway walks over pathological files.
const DefaultMaxDepth = 250

// Options tunes loading and traversal behavior.
type Options struct {
	// MaxDepth bounds every traversal (decode, sweep, transcript,
	// validation). Branches deeper than this abort with a warning.
	// Defaults to DefaultMaxDepth.
	MaxDepth int
}

// ValidateAndSetDefaults checks option values and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.MaxDepth < 0 {
		return &InvariantError{Op: "options", Reason: "MaxDepth must not be negative"}
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return nil
}

// NodeKind distinguishes the two collections a node can live in.
type NodeKind int

const (
	// KindEntry is a line spoken by the conversation owner.
	KindEntry NodeKind = iota
	// KindReply is a line spoken by the player.
	KindReply
)

// String returns "entry" or "reply".
func (k NodeKind) String() string {
	if k == KindEntry {
		return "entry"
	}
	return "reply"
}

// Opposite returns the other kind. Pointers always connect opposite kinds.
func (k NodeKind) Opposite() NodeKind {
	if k == KindEntry {
		return KindReply
	}
	return KindEntry
}

// LangID packs a language and speaker gender into the localized-string id
// used by [LocText]. The format stores ids as language*2+gender.
func LangID(language uint32, female bool) uint32 {
	id := language * 2
	if female {
		id++
	}
	return id
}

// LocText is localized node text: an optional external string-table
// reference plus per-language text keyed by packed [LangID] ids.
type LocText struct {
	StrRef  uint32
	Strings map[uint32]string
}

// NewLocText returns localized text with the given string stored under id
// zero (first language, male speaker) and no string-table reference.
func NewLocText(text string) LocText {
	t := LocText{StrRef: NoStrRef, Strings: map[uint32]string{}}
	if text != "" {
		t.Strings[0] = text
	}
	return t
}

// Resolve returns the text for id, falling back to id zero, then to any
// stored language in id order. The second return is false when no embedded
// text exists at all (the node may still resolve through StrRef at runtime).
func (t LocText) Resolve(id uint32) (string, bool) {
	if s, ok := t.Strings[id]; ok {
		return s, true
	}
	if s, ok := t.Strings[0]; ok {
		return s, true
	}
	if keys := maps.Keys(t.Strings); len(keys) > 0 {
		slices.Sort(keys)
		return t.Strings[keys[0]], true
	}
	return "", false
}

// Words counts whitespace-separated words across all embedded languages.
func (t LocText) Words() int {
	n := 0
	for _, s := range t.Strings {
		n += len(strings.Fields(s))
	}
	return n
}

// clone returns a deep copy.
func (t LocText) clone() LocText {
	return LocText{StrRef: t.StrRef, Strings: maps.Clone(t.Strings)}
}

// Param is one named script parameter. Parameters are ordered and may
// repeat keys; the engine passes them positionally.
type Param struct {
	Key   string
	Value string
}

// Node is a single utterance. Content fields are plain data and may be
// edited freely; the structural fields (Pointers, collection membership)
// must only change through [Conversation] mutation methods so the link
// registry stays consistent.
type Node struct {
	// ID is a process-local identity that survives reordering and
	// renumbering. It is assigned at creation and never serialized; the
	// binary format addresses nodes purely by collection position.
	ID uuid.UUID

	Kind NodeKind

	Text    LocText
	Speaker string // owner tag override, entries only
	Comment string

	Script       string // action script, fired when the line plays
	ActionParams []Param

	Animation  uint32
	AnimLoop   bool
	Sound      string
	Delay      uint32 // DelayDefault defers to the conversation-wide delay
	Quest      string
	QuestEntry uint32 // QuestEntryNone when Quest names no specific entry

	// Pointers are the node's outgoing edges in presentation order.
	// Treat as read-only; mutate through Conversation methods.
	Pointers []*Pointer

	// Quarantined marks an orphaned subtree root: a node without an owning
	// pointer that something still links to. Quarantined nodes are kept in
	// their collection but excluded from playback reachability. The flag
	// is editor state and is recomputed by the sweep, never serialized.
	Quarantined bool
}

func newNode(kind NodeKind) *Node {
	return &Node{
		ID:         uuid.New(),
		Kind:       kind,
		Text:       LocText{StrRef: NoStrRef, Strings: map[uint32]string{}},
		Delay:      DelayDefault,
		QuestEntry: QuestEntryNone,
	}
}

// Pointer is a directed edge. An owning pointer (IsLink false, first one
// registered against the target) places the target in the tree; a link
// pointer borrows a node owned elsewhere and never cascades on delete.
//
// Start pointers live in [Conversation.Starts], carry no source node, and
// are never links.
type Pointer struct {
	Target *Node
	IsLink bool

	Active          string // condition script gating this edge
	ConditionParams []Param
	LinkComment     string // annotation, links only

	source *Node // nil for start pointers
}

// Source returns the node this pointer leaves from, or nil for a start
// pointer.
func (p *Pointer) Source() *Node { return p.source }

// Conversation is the root aggregate: both node collections, the start
// pointers, and file-level scalars. Collection order is meaningful, it is
// the pointer addressing scheme of the binary format.
//
// A Conversation is not safe for concurrent mutation. The expected model
// is single-writer: callers serialize mutations and saves.
type Conversation struct {
	Entries []*Node
	Replies []*Node
	Starts  []*Pointer

	DelayEntry    uint32
	DelayReply    uint32
	NumWords      uint32
	EndScript     string // fired on normal end
	AbortScript   string // fired when the player aborts
	PreventZoomIn bool

	opts Options
	reg  *registry
}

// New creates an empty conversation with default [Options].
func New() *Conversation {
	c, _ := NewWithOptions(Options{})
	return c
}

// NewWithOptions creates an empty conversation with explicit options.
func NewWithOptions(opts Options) (*Conversation, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Conversation{opts: opts, reg: newRegistry()}, nil
}

// Nodes returns all nodes, entries first, in collection order.
func (c *Conversation) Nodes() []*Node {
	out := make([]*Node, 0, len(c.Entries)+len(c.Replies))
	out = append(out, c.Entries...)
	return append(out, c.Replies...)
}

// NodeByID finds a node by its process-local identity.
func (c *Conversation) NodeByID(id uuid.UUID) (*Node, bool) {
	for _, n := range c.Nodes() {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Incoming returns the pointers currently targeting n, in registration
// order. Start pointers count.
func (c *Conversation) Incoming(n *Node) []*Pointer {
	return slices.Clone(c.reg.incoming[n])
}

// Owner returns n's owning pointer, or nil when the node is a start-less
// orphan or quarantined root.
func (c *Conversation) Owner(n *Node) *Pointer { return c.reg.owner[n] }

// RebuildLinks discards and rebuilds the link registry from the current
// collections. Mutation methods maintain the registry incrementally; call
// this after editing Pointers or collections directly.
func (c *Conversation) RebuildLinks() { c.reg.rebuild(c) }

// collection returns the node slice holding the given kind.
func (c *Conversation) collection(kind NodeKind) []*Node {
	if kind == KindEntry {
		return c.Entries
	}
	return c.Replies
}
