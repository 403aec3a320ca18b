package dlg

import (
	"errors"

	"github.com/dlgforge/dlgforge/pkg/gff"
)

// Report accumulates the recoverable findings of a load. A non-empty
// report never means the load failed, only that the file had oddities the
// decoder papered over.
type Report struct {
	Warnings []Warning
}

func (r *Report) warn(w Warning) { r.Warnings = append(r.Warnings, w) }

// Count returns the number of accumulated warnings.
func (r *Report) Count() int { return len(r.Warnings) }

// fieldReader wraps a struct with lenient typed getters. Absent fields
// yield defaults silently (nearly every field of the format is optional);
// wrongly typed fields yield defaults with a warning; malformed payloads
// are fatal and stick until checked via err.
type fieldReader struct {
	s   gff.StructRef
	rep *Report
	err error
}

func (fr *fieldReader) fatal(err error) {
	if fr.err == nil {
		fr.err = err
	}
}

func (fr *fieldReader) lookup(label string) (gff.FieldRef, bool) {
	if fr.err != nil {
		return gff.FieldRef{}, false
	}
	fld, ok, err := fr.s.Field(label)
	if err != nil {
		fr.fatal(err)
		return gff.FieldRef{}, false
	}
	return fld, ok
}

// value runs one typed getter, sorting its failure into warning or fatal.
func fetch[T any](fr *fieldReader, label string, def T, get func(gff.FieldRef) (T, error)) T {
	fld, ok := fr.lookup(label)
	if !ok {
		return def
	}
	v, err := get(fld)
	if err == nil {
		return v
	}
	if errors.Is(err, gff.ErrTypeMismatch) {
		fr.rep.warn(warnf(WarnFieldType, nil, "%s: stored as %s", label, fld.Type()))
		return def
	}
	fr.fatal(err)
	return def
}

func (fr *fieldReader) uint32(label string, def uint32) uint32 {
	v := fetch(fr, label, uint64(def), gff.FieldRef.Uint)
	return uint32(v)
}

func (fr *fieldReader) flag(label string) bool {
	return fr.uint32(label, 0) != 0
}

func (fr *fieldReader) text(label string) string {
	return fetch(fr, label, "", gff.FieldRef.Text)
}

func (fr *fieldReader) resref(label string) string {
	return fetch(fr, label, "", gff.FieldRef.ResRef)
}

func (fr *fieldReader) loc(label string) gff.LocString {
	return fetch(fr, label, gff.LocString{StrRef: gff.NoStrRef}, gff.FieldRef.LocText)
}

func (fr *fieldReader) list(label string) []gff.StructRef {
	return fetch(fr, label, nil, gff.FieldRef.List)
}

// rawPointer is a pointer as stored: target addressed by index, not yet
// resolved against a collection.
type rawPointer struct {
	index   uint32
	isLink  bool
	active  string
	params  []Param
	comment string
}

// fromFile builds the conversation graph from a parsed container in two
// passes: instantiate every node flat, then resolve each stored index
// against the opposite collection and attach live references. Bad indices
// are skipped with a warning so one broken edge never sinks a file.
func fromFile(f *gff.File, opts Options) (*Conversation, *Report, error) {
	c, err := NewWithOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	rep := &Report{}

	root := fieldReader{s: f.Root(), rep: rep}
	c.DelayEntry = root.uint32(lblDelayEntry, 0)
	c.DelayReply = root.uint32(lblDelayReply, 0)
	c.NumWords = root.uint32(lblNumWords, 0)
	c.EndScript = root.resref(lblEndScript)
	c.AbortScript = root.resref(lblAbortScript)
	c.PreventZoomIn = root.flag(lblPreventZoomIn)

	entryStructs := root.list(lblEntryList)
	replyStructs := root.list(lblReplyList)
	startStructs := root.list(lblStartingList)
	if root.err != nil {
		return nil, nil, root.err
	}

	// Pass 1: nodes, flat.
	entryPtrs := make([][]rawPointer, len(entryStructs))
	replyPtrs := make([][]rawPointer, len(replyStructs))
	for i, s := range entryStructs {
		n, raw, err := decodeNode(s, KindEntry, rep)
		if err != nil {
			return nil, nil, err
		}
		c.Entries = append(c.Entries, n)
		entryPtrs[i] = raw
	}
	for i, s := range replyStructs {
		n, raw, err := decodeNode(s, KindReply, rep)
		if err != nil {
			return nil, nil, err
		}
		c.Replies = append(c.Replies, n)
		replyPtrs[i] = raw
	}

	// Pass 2: resolve indices into live references.
	for i, raws := range entryPtrs {
		c.Entries[i].Pointers = resolvePointers(c, c.Entries[i], raws, rep)
	}
	for i, raws := range replyPtrs {
		c.Replies[i].Pointers = resolvePointers(c, c.Replies[i], raws, rep)
	}
	for _, s := range startStructs {
		fr := fieldReader{s: s, rep: rep}
		raw := rawPointer{
			index:  fr.uint32(lblIndex, 0),
			active: fr.resref(lblActive),
			params: decodeParams(&fr, lblConditionParams, rep),
		}
		if fr.err != nil {
			return nil, nil, fr.err
		}
		if int(raw.index) >= len(c.Entries) {
			rep.warn(warnf(WarnDangling, nil, "start pointer to entry %d, file has %d entries", raw.index, len(c.Entries)))
			continue
		}
		c.Starts = append(c.Starts, &Pointer{
			Target:          c.Entries[raw.index],
			Active:          raw.active,
			ConditionParams: raw.params,
		})
	}

	c.reg.rebuild(c)

	// Orphan census: report what the graph carries, flag quarantine
	// roots. Nothing is dropped on load.
	cen := c.classify()
	for _, w := range c.censusWarnings(cen) {
		rep.warn(w)
	}
	rootSet := make(map[*Node]bool, len(cen.roots))
	for _, r := range cen.roots {
		rootSet[r] = true
	}
	for _, n := range c.Nodes() {
		n.Quarantined = rootSet[n]
	}
	return c, rep, nil
}

// decodeNode reads one entry or reply struct. Outgoing pointers come back
// raw; collection positions cannot resolve until every node exists.
func decodeNode(s gff.StructRef, kind NodeKind, rep *Report) (*Node, []rawPointer, error) {
	fr := fieldReader{s: s, rep: rep}
	n := newNode(kind)

	loc := fr.loc(lblText)
	n.Text.StrRef = loc.StrRef
	for _, sub := range loc.Subs {
		n.Text.Strings[sub.ID] = sub.Text
	}

	n.Script = fr.resref(lblScript)
	n.Sound = fr.resref(lblSound)
	n.Comment = fr.text(lblComment)
	n.Quest = fr.text(lblQuest)
	n.QuestEntry = fr.uint32(lblQuestEntry, QuestEntryNone)
	n.Animation = fr.uint32(lblAnimation, 0)
	n.AnimLoop = fr.flag(lblAnimLoop)
	n.Delay = fr.uint32(lblDelay, DelayDefault)
	n.ActionParams = decodeParams(&fr, lblActionParams, rep)
	if kind == KindEntry {
		n.Speaker = fr.text(lblSpeaker)
	}

	outLabel := lblRepliesList
	if kind == KindReply {
		outLabel = lblEntriesList
	}
	var raws []rawPointer
	for _, ps := range fr.list(outLabel) {
		pfr := fieldReader{s: ps, rep: rep}
		raw := rawPointer{
			index:   pfr.uint32(lblIndex, 0),
			isLink:  pfr.flag(lblIsChild),
			active:  pfr.resref(lblActive),
			comment: pfr.text(lblLinkComment),
			params:  decodeParams(&pfr, lblConditionParams, rep),
		}
		if pfr.err != nil {
			return nil, nil, pfr.err
		}
		raws = append(raws, raw)
	}
	if fr.err != nil {
		return nil, nil, fr.err
	}
	return n, raws, nil
}

// resolvePointers turns raw indices into live edges against the opposite
// collection. Out-of-range indices are dropped with a warning.
func resolvePointers(c *Conversation, src *Node, raws []rawPointer, rep *Report) []*Pointer {
	targets := c.collection(src.Kind.Opposite())
	var out []*Pointer
	for _, raw := range raws {
		if int(raw.index) >= len(targets) {
			rep.warn(warnf(WarnDangling, src, "%s pointer to %s %d, file has %d", src.Kind, src.Kind.Opposite(), raw.index, len(targets)))
			continue
		}
		out = append(out, &Pointer{
			Target:          targets[raw.index],
			IsLink:          raw.isLink,
			Active:          raw.active,
			ConditionParams: raw.params,
			LinkComment:     raw.comment,
			source:          src,
		})
	}
	return out
}

// decodeParams reads a Key/Value parameter list field.
func decodeParams(fr *fieldReader, label string, rep *Report) []Param {
	var params []Param
	for _, s := range fr.list(label) {
		pfr := fieldReader{s: s, rep: rep}
		p := Param{Key: pfr.text(lblParamKey), Value: pfr.text(lblParamValue)}
		if pfr.err != nil {
			fr.fatal(pfr.err)
			return params
		}
		params = append(params, p)
	}
	return params
}
