package dlg

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/dlgforge/dlgforge/pkg/gff"
)

// encoder flattens a conversation back into container structs. Structs go
// out interleaved by conversation order (the root, each entry with its
// param and pointer structs, each reply likewise, start wrappers last);
// list blocks go out in the fixed kind order the engine expects. Both
// orders are deterministic, so saving the same graph twice yields the
// same bytes.
type encoder struct {
	c *Conversation
	b *gff.Builder

	entries []*Node
	replies []*Node
	pos     map[*Node]uint32

	entryList gff.ListRef
	replyList gff.ListRef
	startList gff.ListRef
	out       map[*Node]gff.ListRef
	cond      map[*Pointer]gff.ListRef
	act       map[*Node]gff.ListRef
}

func encode(c *Conversation) ([]byte, error) {
	e := &encoder{
		c:    c,
		b:    gff.NewBuilder(FileType),
		pos:  map[*Node]uint32{},
		out:  map[*Node]gff.ListRef{},
		cond: map[*Pointer]gff.ListRef{},
		act:  map[*Node]gff.ListRef{},
	}
	e.electNodes()
	if err := e.checkEdges(); err != nil {
		return nil, err
	}
	e.reserveLists()
	e.emitRoot()
	for _, n := range e.entries {
		e.emitNode(n, e.entryList)
	}
	for _, n := range e.replies {
		e.emitNode(n, e.replyList)
	}
	for _, s := range e.c.Starts {
		e.emitStart(s)
	}
	return e.b.Encode()
}

// electNodes picks the nodes the file will contain: live and quarantined
// nodes stay, unreferenced garbage is left out. A depth-cut census cannot
// tell garbage from live, so everything is written then. The in-memory
// graph is untouched either way.
func (e *encoder) electNodes() {
	cen := e.c.classify()
	keepAll := len(cen.warnings) > 0
	for _, n := range e.c.Entries {
		if keepAll || cen.keep[n] {
			e.pos[n] = uint32(len(e.entries))
			e.entries = append(e.entries, n)
		}
	}
	for _, n := range e.c.Replies {
		if keepAll || cen.keep[n] {
			e.pos[n] = uint32(len(e.replies))
			e.replies = append(e.replies, n)
		}
	}
}

// checkEdges verifies every edge about to be written resolves to an
// emitted node of the alternating kind. Failing here means the graph was
// mutated outside the Conversation methods; nothing has been emitted yet.
func (e *encoder) checkEdges() error {
	check := func(n *Node) error {
		for _, p := range n.Pointers {
			switch {
			case p.Target == nil:
				return invariant("save", "%s has a pointer without a target", n.Kind)
			case p.Target.Kind != n.Kind.Opposite():
				return invariant("save", "%s points at a %s, speakers must alternate", n.Kind, p.Target.Kind)
			}
			if _, ok := e.pos[p.Target]; !ok {
				return invariant("save", "%s points at a node outside the conversation", n.Kind)
			}
		}
		return nil
	}
	for _, n := range e.entries {
		if err := check(n); err != nil {
			return err
		}
	}
	for _, n := range e.replies {
		if err := check(n); err != nil {
			return err
		}
	}
	for _, s := range e.c.Starts {
		switch {
		case s.Target == nil:
			return invariant("save", "start pointer without a target")
		case s.Target.Kind != KindEntry:
			return invariant("save", "start pointer leads to a %s, starts take entries only", s.Target.Kind)
		}
		if _, ok := e.pos[s.Target]; !ok {
			return invariant("save", "start pointer leads to a node outside the conversation")
		}
	}
	return nil
}

// reserveLists creates every list block in the order the engine expects:
// the three root lists, outgoing-pointer lists (entries then replies),
// condition-parameter lists (entry pointers, reply pointers, then starts),
// action-parameter lists (entries then replies). All are present even when
// empty; blocks fill later as structs register.
func (e *encoder) reserveLists() {
	e.entryList = e.b.NewList()
	e.replyList = e.b.NewList()
	e.startList = e.b.NewList()
	for _, n := range e.entries {
		e.out[n] = e.b.NewList()
	}
	for _, n := range e.replies {
		e.out[n] = e.b.NewList()
	}
	for _, n := range e.entries {
		for _, p := range n.Pointers {
			e.cond[p] = e.b.NewList()
		}
	}
	for _, n := range e.replies {
		for _, p := range n.Pointers {
			e.cond[p] = e.b.NewList()
		}
	}
	for _, s := range e.c.Starts {
		e.cond[s] = e.b.NewList()
	}
	for _, n := range e.entries {
		e.act[n] = e.b.NewList()
	}
	for _, n := range e.replies {
		e.act[n] = e.b.NewList()
	}
}

func (e *encoder) emitRoot() {
	words := uint32(0)
	for _, n := range e.entries {
		words += uint32(n.Text.Words())
	}
	for _, n := range e.replies {
		words += uint32(n.Text.Words())
	}

	root := e.b.Root()
	e.b.AddDword(root, lblDelayEntry, e.c.DelayEntry)
	e.b.AddDword(root, lblDelayReply, e.c.DelayReply)
	e.b.AddDword(root, lblNumWords, words)
	e.b.AddResRef(root, lblEndScript, e.c.EndScript)
	e.b.AddResRef(root, lblAbortScript, e.c.AbortScript)
	e.b.AddByte(root, lblPreventZoomIn, boolByte(e.c.PreventZoomIn))
	e.b.AddListField(root, lblEntryList, e.entryList)
	e.b.AddListField(root, lblReplyList, e.replyList)
	e.b.AddListField(root, lblStartingList, e.startList)
}

// emitNode writes one node struct followed by its dependent param and
// pointer structs.
func (e *encoder) emitNode(n *Node, into gff.ListRef) {
	tag, outLabel := tagEntry, lblRepliesList
	if n.Kind == KindReply {
		tag, outLabel = tagReply, lblEntriesList
	}
	s := e.b.AddStruct(tag)
	e.b.ListAppend(into, s)

	e.b.AddDword(s, lblAnimation, n.Animation)
	e.b.AddByte(s, lblAnimLoop, boolByte(n.AnimLoop))
	e.b.AddLocString(s, lblText, locString(n.Text))
	e.b.AddResRef(s, lblScript, n.Script)
	e.b.AddDword(s, lblDelay, n.Delay)
	e.b.AddString(s, lblComment, n.Comment)
	e.b.AddResRef(s, lblSound, n.Sound)
	e.b.AddString(s, lblQuest, n.Quest)
	if n.Quest != "" {
		e.b.AddDword(s, lblQuestEntry, n.QuestEntry)
	}
	if n.Kind == KindEntry {
		e.b.AddString(s, lblSpeaker, n.Speaker)
	}
	e.emitParams(e.act[n], n.ActionParams)
	e.b.AddListField(s, lblActionParams, e.act[n])
	for _, p := range n.Pointers {
		e.emitPointer(n, p)
	}
	e.b.AddListField(s, outLabel, e.out[n])
}

func (e *encoder) emitPointer(n *Node, p *Pointer) {
	s := e.b.AddStruct(tagPointer)
	e.b.ListAppend(e.out[n], s)
	e.b.AddResRef(s, lblActive, p.Active)
	e.b.AddDword(s, lblIndex, e.pos[p.Target])
	e.b.AddByte(s, lblIsChild, boolByte(p.IsLink))
	if p.IsLink {
		e.b.AddString(s, lblLinkComment, p.LinkComment)
	}
	e.emitParams(e.cond[p], p.ConditionParams)
	e.b.AddListField(s, lblConditionParams, e.cond[p])
}

func (e *encoder) emitStart(p *Pointer) {
	s := e.b.AddStruct(tagStart)
	e.b.ListAppend(e.startList, s)
	e.b.AddResRef(s, lblActive, p.Active)
	e.b.AddDword(s, lblIndex, e.pos[p.Target])
	e.emitParams(e.cond[p], p.ConditionParams)
	e.b.AddListField(s, lblConditionParams, e.cond[p])
}

func (e *encoder) emitParams(into gff.ListRef, params []Param) {
	for _, p := range params {
		s := e.b.AddStruct(tagParam)
		e.b.ListAppend(into, s)
		e.b.AddString(s, lblParamKey, p.Key)
		e.b.AddString(s, lblParamValue, p.Value)
	}
}

// locString converts editor text to its wire form, substrings ordered by
// language id so emission is deterministic.
func locString(t LocText) gff.LocString {
	out := gff.LocString{StrRef: t.StrRef}
	ids := maps.Keys(t.Strings)
	slices.Sort(ids)
	for _, id := range ids {
		out.Subs = append(out.Subs, gff.LocSub{ID: id, Text: t.Strings[id]})
	}
	return out
}

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
