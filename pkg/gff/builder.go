package gff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// ListRef is a handle for a list block registered with [Builder.NewList].
// Block offsets in the encoded file follow registration order, which is how
// callers control the section's physical layout independently of field
// declaration order.
type ListRef int

type builderStruct struct {
	typ    uint32
	fields []uint32
}

type builderField struct {
	typ   FieldType
	label uint32
	data  uint32 // value, data offset, struct index, or ListRef for lists
}

// Builder assembles a container in memory and encodes it in a single
// forward pass. The root struct exists from construction; register further
// structs with [Builder.AddStruct], list blocks with [Builder.NewList], and
// fields with the typed Add methods.
//
// Builder methods do not return errors individually. The first failure
// (oversized label or resref, unknown struct or list handle) sticks and is
// reported by [Builder.Encode]; subsequent calls are no-ops. This keeps
// large tree emissions free of per-field error plumbing.
type Builder struct {
	fileType string
	structs  []builderStruct
	fields   []builderField
	labels   []string
	labelIdx map[string]uint32
	data     bytes.Buffer
	lists    [][]uint32
	err      error
}

// NewBuilder creates a builder for the given four-character file type tag.
// Shorter tags are space-padded ("DLG" becomes "DLG "); longer tags are an
// error. The root struct is registered as struct zero with the [NoType]
// sentinel.
func NewBuilder(fileType string) *Builder {
	b := &Builder{labelIdx: make(map[string]uint32)}
	if len(fileType) > 4 {
		b.fail(fmt.Errorf("%q: %w", fileType, ErrFileType))
	}
	for len(fileType) < 4 {
		fileType += " "
	}
	b.fileType = fileType
	b.structs = append(b.structs, builderStruct{typ: NoType})
	return b
}

// Root returns the index of the root struct, always zero.
func (b *Builder) Root() int { return 0 }

// Err returns the first error recorded by any builder call, or nil.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// AddStruct registers a struct with the given type id and returns its
// index. Indices are dense and follow registration order, which fixes the
// struct table's physical order in the encoded file.
func (b *Builder) AddStruct(typ uint32) int {
	b.structs = append(b.structs, builderStruct{typ: typ})
	return len(b.structs) - 1
}

// NewList registers a list block holding the given struct indices and
// returns its handle. Append further elements with [Builder.ListAppend].
func (b *Builder) NewList(elems ...int) ListRef {
	ref := ListRef(len(b.lists))
	b.lists = append(b.lists, nil)
	for _, e := range elems {
		b.ListAppend(ref, e)
	}
	return ref
}

// ListAppend appends a struct index to a registered list block.
func (b *Builder) ListAppend(l ListRef, structIdx int) {
	if b.err != nil {
		return
	}
	if int(l) < 0 || int(l) >= len(b.lists) {
		b.fail(fmt.Errorf("list %d: %w", l, ErrUnknownList))
		return
	}
	if structIdx < 0 || structIdx >= len(b.structs) {
		b.fail(fmt.Errorf("list %d element: struct %d: %w", l, structIdx, ErrUnknownStruct))
		return
	}
	b.lists[l] = append(b.lists[l], uint32(structIdx))
}

// addField registers a field on a struct and returns whether it was
// accepted. The data word's interpretation depends on the type.
func (b *Builder) addField(structIdx int, t FieldType, label string, data uint32) bool {
	if b.err != nil {
		return false
	}
	if structIdx < 0 || structIdx >= len(b.structs) {
		b.fail(fmt.Errorf("field %q: struct %d: %w", label, structIdx, ErrUnknownStruct))
		return false
	}
	if len(label) > MaxLabel {
		b.fail(fmt.Errorf("field %q: %w", label, ErrLabelTooLong))
		return false
	}
	idx, ok := b.labelIdx[label]
	if !ok {
		idx = uint32(len(b.labels))
		b.labels = append(b.labels, label)
		b.labelIdx[label] = idx
	}
	b.fields = append(b.fields, builderField{typ: t, label: idx, data: data})
	b.structs[structIdx].fields = append(b.structs[structIdx].fields, uint32(len(b.fields)-1))
	return true
}

// reserve appends raw bytes to the field data section and returns their
// offset. Offsets are final immediately; the section is emitted verbatim.
func (b *Builder) reserve(raw []byte) uint32 {
	off := uint32(b.data.Len())
	b.data.Write(raw)
	return off
}

// AddByte adds a BYTE field.
func (b *Builder) AddByte(structIdx int, label string, v uint8) {
	b.addField(structIdx, TypeByte, label, uint32(v))
}

// AddChar adds a CHAR field.
func (b *Builder) AddChar(structIdx int, label string, v int8) {
	b.addField(structIdx, TypeChar, label, uint32(uint8(v)))
}

// AddWord adds a WORD field.
func (b *Builder) AddWord(structIdx int, label string, v uint16) {
	b.addField(structIdx, TypeWord, label, uint32(v))
}

// AddShort adds a SHORT field.
func (b *Builder) AddShort(structIdx int, label string, v int16) {
	b.addField(structIdx, TypeShort, label, uint32(uint16(v)))
}

// AddDword adds a DWORD field.
func (b *Builder) AddDword(structIdx int, label string, v uint32) {
	b.addField(structIdx, TypeDword, label, v)
}

// AddInt adds an INT field.
func (b *Builder) AddInt(structIdx int, label string, v int32) {
	b.addField(structIdx, TypeInt, label, uint32(v))
}

// AddDword64 adds a DWORD64 field.
func (b *Builder) AddDword64(structIdx int, label string, v uint64) {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], v)
	if b.err == nil {
		b.addField(structIdx, TypeDword64, label, b.reserve(raw[:]))
	}
}

// AddInt64 adds an INT64 field.
func (b *Builder) AddInt64(structIdx int, label string, v int64) {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], uint64(v))
	if b.err == nil {
		b.addField(structIdx, TypeInt64, label, b.reserve(raw[:]))
	}
}

// AddFloat adds a FLOAT field.
func (b *Builder) AddFloat(structIdx int, label string, v float32) {
	b.addField(structIdx, TypeFloat, label, math.Float32bits(v))
}

// AddDouble adds a DOUBLE field.
func (b *Builder) AddDouble(structIdx int, label string, v float64) {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], math.Float64bits(v))
	if b.err == nil {
		b.addField(structIdx, TypeDouble, label, b.reserve(raw[:]))
	}
}

// AddString adds a length-prefixed string field.
func (b *Builder) AddString(structIdx int, label, v string) {
	raw := make([]byte, 4+len(v))
	binary.LittleEndian.PutUint32(raw, uint32(len(v)))
	copy(raw[4:], v)
	if b.err == nil {
		b.addField(structIdx, TypeString, label, b.reserve(raw))
	}
}

// AddResRef adds a resource reference field. References longer than
// [MaxResRef] are rejected.
func (b *Builder) AddResRef(structIdx int, label, v string) {
	if b.err != nil {
		return
	}
	if len(v) > MaxResRef {
		b.fail(fmt.Errorf("field %q: %q: %w", label, v, ErrResRefTooLong))
		return
	}
	raw := make([]byte, 1+len(v))
	raw[0] = byte(len(v))
	copy(raw[1:], v)
	b.addField(structIdx, TypeResRef, label, b.reserve(raw))
}

// AddLocString adds a localized string field. Substrings are stored in the
// order given.
func (b *Builder) AddLocString(structIdx int, label string, v LocString) {
	total := 8
	for _, sub := range v.Subs {
		total += 8 + len(sub.Text)
	}
	raw := make([]byte, 0, 4+total)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(total))
	raw = binary.LittleEndian.AppendUint32(raw, v.StrRef)
	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(v.Subs)))
	for _, sub := range v.Subs {
		raw = binary.LittleEndian.AppendUint32(raw, sub.ID)
		raw = binary.LittleEndian.AppendUint32(raw, uint32(len(sub.Text)))
		raw = append(raw, sub.Text...)
	}
	if b.err == nil {
		b.addField(structIdx, TypeLocString, label, b.reserve(raw))
	}
}

// AddBlob adds a raw binary field.
func (b *Builder) AddBlob(structIdx int, label string, v []byte) {
	raw := make([]byte, 4+len(v))
	binary.LittleEndian.PutUint32(raw, uint32(len(v)))
	copy(raw[4:], v)
	if b.err == nil {
		b.addField(structIdx, TypeVoid, label, b.reserve(raw))
	}
}

// AddStructField adds a direct child struct field. The child must already
// be registered.
func (b *Builder) AddStructField(structIdx int, label string, child int) {
	if b.err != nil {
		return
	}
	if child < 0 || child >= len(b.structs) {
		b.fail(fmt.Errorf("field %q: struct %d: %w", label, child, ErrUnknownStruct))
		return
	}
	b.addField(structIdx, TypeStruct, label, uint32(child))
}

// AddListField adds a list field backed by a registered list block. The
// block's offset is resolved during Encode from the computed layout.
func (b *Builder) AddListField(structIdx int, label string, l ListRef) {
	if b.err != nil {
		return
	}
	if int(l) < 0 || int(l) >= len(b.lists) {
		b.fail(fmt.Errorf("field %q: list %d: %w", label, l, ErrUnknownList))
		return
	}
	b.addField(structIdx, TypeList, label, uint32(l))
}

// Encode computes the layout from the registered element counts and emits
// the file in one forward pass. It returns the first error recorded by any
// prior builder call.
func (b *Builder) Encode() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}

	structFields := make([]int, len(b.structs))
	for i, s := range b.structs {
		structFields[i] = len(s.fields)
	}
	listLens := make([]int, len(b.lists))
	for i, l := range b.lists {
		listLens[i] = len(l)
	}
	layout := Compute(structFields, len(b.labels), b.data.Len(), listLens)

	out := make([]byte, 0, layout.FileSize())
	out = append(out, b.fileType...)
	out = append(out, Version...)
	for _, v := range []uint32{
		layout.StructOffset, layout.StructCount,
		layout.FieldOffset, layout.FieldCount,
		layout.LabelOffset, layout.LabelCount,
		layout.FieldDataOffset, layout.FieldDataBytes,
		layout.FieldIndicesOffset, layout.FieldIndicesBytes,
		layout.ListIndicesOffset, layout.ListIndicesBytes,
	} {
		out = binary.LittleEndian.AppendUint32(out, v)
	}

	for i, s := range b.structs {
		out = binary.LittleEndian.AppendUint32(out, s.typ)
		switch len(s.fields) {
		case 1:
			out = binary.LittleEndian.AppendUint32(out, s.fields[0])
		default:
			out = binary.LittleEndian.AppendUint32(out, layout.Runs[i])
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s.fields)))
	}

	for _, f := range b.fields {
		data := f.data
		if f.typ == TypeList {
			data = layout.Lists[f.data]
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(f.typ))
		out = binary.LittleEndian.AppendUint32(out, f.label)
		out = binary.LittleEndian.AppendUint32(out, data)
	}

	for _, label := range b.labels {
		var cell [labelSize]byte
		copy(cell[:], label)
		out = append(out, cell[:]...)
	}

	out = append(out, b.data.Bytes()...)

	for _, s := range b.structs {
		for _, idx := range s.fields {
			out = binary.LittleEndian.AppendUint32(out, idx)
		}
	}

	for _, l := range b.lists {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(l)))
		for _, idx := range l {
			out = binary.LittleEndian.AppendUint32(out, idx)
		}
	}

	if len(out) != layout.FileSize() {
		return nil, fmt.Errorf("encoded %d bytes, layout computed %d", len(out), layout.FileSize())
	}
	return out, nil
}
