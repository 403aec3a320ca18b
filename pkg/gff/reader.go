package gff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
)

// ErrTypeMismatch is wrapped by field accessors called on a field of a
// different type. Callers that probe optional fields can detect it with
// errors.Is and fall back to a default.
var ErrTypeMismatch = errors.New("field type mismatch")

// sections carries the absolute byte offset of each section, kept after
// parsing so access-time errors can point at real file positions.
type sections struct {
	structs      uint32
	fields       uint32
	labels       uint32
	fieldData    uint32
	fieldIndices uint32
	listIndices  uint32
}

// File is a parsed container. The struct, field, and label tables are
// decoded eagerly; field data, field index runs, and list blocks stay raw
// and resolve on access through bounds-checked reads.
//
// A File is immutable after Parse and safe for concurrent readers.
type File struct {
	fileType string
	structs  []StructEntry
	fields   []FieldEntry
	labels   []string

	fieldData    []byte
	fieldIndices []byte
	listIndices  []byte

	off sections
}

// Read consumes r to EOF and parses the bytes as a container.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return Parse(data)
}

// Parse decodes a container from data. It validates the header, the bounds
// of every section, the field index section's alignment, and the root
// struct's type sentinel; any violation is a [FormatError]. Field payloads
// are not touched here, they decode lazily through [StructRef] and
// [FieldRef] accessors.
//
// Parse keeps references into data. Callers must not mutate the slice while
// the File is in use.
func Parse(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, formatErr(0, "file too short: %d bytes, header needs %d", len(data), headerSize)
	}
	if v := string(data[4:8]); v != Version {
		return nil, formatErr(4, "unsupported version %q, want %q", v, Version)
	}

	var raw [12]uint32
	for i := range raw {
		raw[i] = binary.LittleEndian.Uint32(data[8+4*i:])
	}
	structOff, structCount := raw[0], raw[1]
	fieldOff, fieldCount := raw[2], raw[3]
	labelOff, labelCount := raw[4], raw[5]
	dataOff, dataBytes := raw[6], raw[7]
	idxOff, idxBytes := raw[8], raw[9]
	listOff, listBytes := raw[10], raw[11]

	section := func(name string, hdrPos int64, off uint32, size uint64) ([]byte, error) {
		if uint64(off)+size > uint64(len(data)) {
			return nil, formatErr(hdrPos, "%s section [%d:%d] exceeds file size %d", name, off, uint64(off)+size, len(data))
		}
		return data[off : uint64(off)+size], nil
	}

	structRaw, err := section("struct", 8, structOff, uint64(structCount)*structSize)
	if err != nil {
		return nil, err
	}
	fieldRaw, err := section("field", 16, fieldOff, uint64(fieldCount)*fieldSize)
	if err != nil {
		return nil, err
	}
	labelRaw, err := section("label", 24, labelOff, uint64(labelCount)*labelSize)
	if err != nil {
		return nil, err
	}
	fieldData, err := section("field data", 32, dataOff, uint64(dataBytes))
	if err != nil {
		return nil, err
	}
	fieldIndices, err := section("field index", 40, idxOff, uint64(idxBytes))
	if err != nil {
		return nil, err
	}
	listIndices, err := section("list index", 48, listOff, uint64(listBytes))
	if err != nil {
		return nil, err
	}
	if idxBytes%4 != 0 {
		return nil, formatErr(44, "field index section size %d is not a multiple of 4", idxBytes)
	}
	if structCount == 0 {
		return nil, formatErr(12, "container has no structs, root is mandatory")
	}

	f := &File{
		fileType:     string(data[0:4]),
		structs:      make([]StructEntry, structCount),
		fields:       make([]FieldEntry, fieldCount),
		labels:       make([]string, labelCount),
		fieldData:    fieldData,
		fieldIndices: fieldIndices,
		listIndices:  listIndices,
		off: sections{
			structs:      structOff,
			fields:       fieldOff,
			labels:       labelOff,
			fieldData:    dataOff,
			fieldIndices: idxOff,
			listIndices:  listOff,
		},
	}
	for i := range f.structs {
		row := structRaw[i*structSize:]
		f.structs[i] = StructEntry{
			Type:         binary.LittleEndian.Uint32(row),
			DataOrOffset: binary.LittleEndian.Uint32(row[4:]),
			FieldCount:   binary.LittleEndian.Uint32(row[8:]),
		}
	}
	for i := range f.fields {
		row := fieldRaw[i*fieldSize:]
		f.fields[i] = FieldEntry{
			Type:         FieldType(binary.LittleEndian.Uint32(row)),
			LabelIndex:   binary.LittleEndian.Uint32(row[4:]),
			DataOrOffset: binary.LittleEndian.Uint32(row[8:]),
		}
	}
	for i := range f.labels {
		cell := labelRaw[i*labelSize : (i+1)*labelSize]
		f.labels[i] = strings.TrimRight(string(cell), "\x00")
	}

	if f.structs[0].Type != NoType {
		return nil, formatErr(int64(structOff), "root struct type is 0x%08X, want the 0x%08X sentinel", f.structs[0].Type, NoType)
	}
	return f, nil
}

// FileType returns the four-character content tag from the header, for
// example "DLG " for conversations.
func (f *File) FileType() string { return f.fileType }

// NumStructs returns the struct table size.
func (f *File) NumStructs() int { return len(f.structs) }

// NumFields returns the field table size.
func (f *File) NumFields() int { return len(f.fields) }

// NumLabels returns the label table size.
func (f *File) NumLabels() int { return len(f.labels) }

// Root returns a reference to struct zero, the tree's entry point.
func (f *File) Root() StructRef { return StructRef{f: f, index: 0} }

// Struct returns a reference to the struct at index i.
func (f *File) Struct(i int) (StructRef, error) {
	if i < 0 || i >= len(f.structs) {
		return StructRef{}, formatErr(-1, "struct index %d out of range [0,%d)", i, len(f.structs))
	}
	return StructRef{f: f, index: i}, nil
}

// Drift re-derives the layout this package would have produced for the
// file's element counts and reports every deviation as a human-readable
// string. Files written by other tools routinely drift (most of them skip
// field index runs for single-field structs); drift is informational and
// never prevents reading.
func (f *File) Drift() []string {
	var drift []string

	counts := make([]int, len(f.structs))
	for i, s := range f.structs {
		counts[i] = int(s.FieldCount)
	}
	want := Compute(counts, len(f.labels), len(f.fieldData), nil)

	if got := uint32(len(f.fieldIndices)); got != want.FieldIndicesBytes {
		drift = append(drift, fmt.Sprintf("field index section is %d bytes, expected %d (4 per field)", got, want.FieldIndicesBytes))
	}
	for i, s := range f.structs {
		if s.FieldCount == 1 {
			continue
		}
		if s.DataOrOffset != want.Runs[i] {
			drift = append(drift, fmt.Sprintf("struct %d: field index run at byte %d, expected %d", i, s.DataOrOffset, want.Runs[i]))
		}
	}

	// A list block is a count plus that many indices. Every byte of the
	// section should belong to exactly one referenced block.
	offsets := make([]uint32, 0, 8)
	for _, fld := range f.fields {
		if fld.Type == TypeList {
			offsets = append(offsets, fld.DataOrOffset)
		}
	}
	slices.Sort(offsets)
	offsets = slices.Compact(offsets)
	covered := 0
	for _, off := range offsets {
		if uint64(off)+4 > uint64(len(f.listIndices)) {
			continue
		}
		n := binary.LittleEndian.Uint32(f.listIndices[off:])
		covered += 4 * (1 + int(n))
	}
	if covered != len(f.listIndices) {
		drift = append(drift, fmt.Sprintf("list index section is %d bytes, referenced blocks cover %d", len(f.listIndices), covered))
	}
	return drift
}

// StructRef is a bounds-checked view of one struct. The zero value is not
// usable; obtain references from [File.Root], [File.Struct], or field
// accessors.
type StructRef struct {
	f     *File
	index int
}

// Index returns the struct's position in the struct table.
func (s StructRef) Index() int { return s.index }

// Type returns the struct's programmer-assigned type id. The root struct
// always carries [NoType].
func (s StructRef) Type() uint32 { return s.f.structs[s.index].Type }

// NumFields returns the number of fields the struct declares.
func (s StructRef) NumFields() int { return int(s.f.structs[s.index].FieldCount) }

// fieldIndices resolves the struct's field indices, either the direct
// index stored in the entry or its run in the field index section.
func (s StructRef) fieldIndices() ([]uint32, error) {
	entry := s.f.structs[s.index]
	switch entry.FieldCount {
	case 0:
		return nil, nil
	case 1:
		if entry.DataOrOffset >= uint32(len(s.f.fields)) {
			return nil, formatErr(int64(s.f.off.structs)+int64(s.index)*structSize+4,
				"struct %d: field index %d out of range [0,%d)", s.index, entry.DataOrOffset, len(s.f.fields))
		}
		return []uint32{entry.DataOrOffset}, nil
	}
	end := uint64(entry.DataOrOffset) + 4*uint64(entry.FieldCount)
	if end > uint64(len(s.f.fieldIndices)) {
		return nil, formatErr(int64(s.f.off.fieldIndices)+int64(entry.DataOrOffset),
			"struct %d: field index run [%d:%d] exceeds section size %d", s.index, entry.DataOrOffset, end, len(s.f.fieldIndices))
	}
	out := make([]uint32, entry.FieldCount)
	for i := range out {
		idx := binary.LittleEndian.Uint32(s.f.fieldIndices[int(entry.DataOrOffset)+4*i:])
		if idx >= uint32(len(s.f.fields)) {
			return nil, formatErr(int64(s.f.off.fieldIndices)+int64(entry.DataOrOffset)+int64(4*i),
				"struct %d: field index %d out of range [0,%d)", s.index, idx, len(s.f.fields))
		}
		out[i] = idx
	}
	return out, nil
}

// Fields returns references to the struct's fields in declaration order.
func (s StructRef) Fields() ([]FieldRef, error) {
	indices, err := s.fieldIndices()
	if err != nil {
		return nil, err
	}
	refs := make([]FieldRef, len(indices))
	for i, idx := range indices {
		refs[i] = FieldRef{f: s.f, index: int(idx)}
	}
	return refs, nil
}

// Field finds the struct's field with the given label. The second return
// reports presence; absence is not an error since most fields of the
// conversation format are optional.
func (s StructRef) Field(label string) (FieldRef, bool, error) {
	indices, err := s.fieldIndices()
	if err != nil {
		return FieldRef{}, false, err
	}
	for _, idx := range indices {
		fr := FieldRef{f: s.f, index: int(idx)}
		name, err := fr.Label()
		if err != nil {
			return FieldRef{}, false, err
		}
		if name == label {
			return fr, true, nil
		}
	}
	return FieldRef{}, false, nil
}

// FieldRef is a bounds-checked view of one field. Typed accessors decode
// the payload on call; calling an accessor of the wrong type returns an
// error wrapping [ErrTypeMismatch].
type FieldRef struct {
	f     *File
	index int
}

// Index returns the field's position in the field table.
func (fr FieldRef) Index() int { return fr.index }

// Type returns the field's payload type.
func (fr FieldRef) Type() FieldType { return fr.f.fields[fr.index].Type }

// Label returns the field's name from the label table.
func (fr FieldRef) Label() (string, error) {
	entry := fr.f.fields[fr.index]
	if entry.LabelIndex >= uint32(len(fr.f.labels)) {
		return "", formatErr(fr.entryPos()+4, "field %d: label index %d out of range [0,%d)", fr.index, entry.LabelIndex, len(fr.f.labels))
	}
	return fr.f.labels[entry.LabelIndex], nil
}

// entryPos is the absolute byte offset of the field's table entry.
func (fr FieldRef) entryPos() int64 {
	return int64(fr.f.off.fields) + int64(fr.index)*fieldSize
}

func (fr FieldRef) mismatch(want string) error {
	return fmt.Errorf("field %d: is %s, accessed as %s: %w", fr.index, fr.Type(), want, ErrTypeMismatch)
}

// data returns n bytes of field data starting at the field's stored offset.
func (fr FieldRef) data(n int) ([]byte, error) {
	off := fr.f.fields[fr.index].DataOrOffset
	if uint64(off)+uint64(n) > uint64(len(fr.f.fieldData)) {
		return nil, formatErr(int64(fr.f.off.fieldData)+int64(off),
			"field %d: data [%d:%d] exceeds field data size %d", fr.index, off, uint64(off)+uint64(n), len(fr.f.fieldData))
	}
	return fr.f.fieldData[off : int(off)+n], nil
}

// dataAt returns n bytes of field data at an explicit offset, used for the
// variable-length tail of string payloads.
func (fr FieldRef) dataAt(off uint64, n uint64) ([]byte, error) {
	if off+n > uint64(len(fr.f.fieldData)) {
		return nil, formatErr(int64(fr.f.off.fieldData)+int64(off),
			"field %d: data [%d:%d] exceeds field data size %d", fr.index, off, off+n, len(fr.f.fieldData))
	}
	return fr.f.fieldData[off : off+n], nil
}

// Uint decodes the unsigned integer types BYTE, WORD, DWORD, and DWORD64.
func (fr FieldRef) Uint() (uint64, error) {
	entry := fr.f.fields[fr.index]
	switch entry.Type {
	case TypeByte:
		return uint64(entry.DataOrOffset & 0xFF), nil
	case TypeWord:
		return uint64(entry.DataOrOffset & 0xFFFF), nil
	case TypeDword:
		return uint64(entry.DataOrOffset), nil
	case TypeDword64:
		raw, err := fr.data(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(raw), nil
	}
	return 0, fr.mismatch("unsigned integer")
}

// Int decodes the signed integer types CHAR, SHORT, INT, and INT64.
func (fr FieldRef) Int() (int64, error) {
	entry := fr.f.fields[fr.index]
	switch entry.Type {
	case TypeChar:
		return int64(int8(entry.DataOrOffset)), nil
	case TypeShort:
		return int64(int16(entry.DataOrOffset)), nil
	case TypeInt:
		return int64(int32(entry.DataOrOffset)), nil
	case TypeInt64:
		raw, err := fr.data(8)
		if err != nil {
			return 0, err
		}
		return int64(binary.LittleEndian.Uint64(raw)), nil
	}
	return 0, fr.mismatch("signed integer")
}

// Float decodes the floating point types FLOAT and DOUBLE.
func (fr FieldRef) Float() (float64, error) {
	entry := fr.f.fields[fr.index]
	switch entry.Type {
	case TypeFloat:
		return float64(math.Float32frombits(entry.DataOrOffset)), nil
	case TypeDouble:
		raw, err := fr.data(8)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	}
	return 0, fr.mismatch("float")
}

// Text decodes a length-prefixed string payload.
func (fr FieldRef) Text() (string, error) {
	if fr.Type() != TypeString {
		return "", fr.mismatch(TypeString.String())
	}
	head, err := fr.data(4)
	if err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(head)
	raw, err := fr.dataAt(uint64(fr.f.fields[fr.index].DataOrOffset)+4, uint64(n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ResRef decodes a resource reference payload.
func (fr FieldRef) ResRef() (string, error) {
	if fr.Type() != TypeResRef {
		return "", fr.mismatch(TypeResRef.String())
	}
	head, err := fr.data(1)
	if err != nil {
		return "", err
	}
	raw, err := fr.dataAt(uint64(fr.f.fields[fr.index].DataOrOffset)+1, uint64(head[0]))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// LocText decodes a localized string payload: the external string-table
// reference plus all embedded substrings.
func (fr FieldRef) LocText() (LocString, error) {
	if fr.Type() != TypeLocString {
		return LocString{}, fr.mismatch(TypeLocString.String())
	}
	head, err := fr.data(12)
	if err != nil {
		return LocString{}, err
	}
	loc := LocString{StrRef: binary.LittleEndian.Uint32(head[4:])}
	count := binary.LittleEndian.Uint32(head[8:])

	pos := uint64(fr.f.fields[fr.index].DataOrOffset) + 12
	for i := uint32(0); i < count; i++ {
		sub, err := fr.dataAt(pos, 8)
		if err != nil {
			return LocString{}, err
		}
		id := binary.LittleEndian.Uint32(sub)
		n := binary.LittleEndian.Uint32(sub[4:])
		text, err := fr.dataAt(pos+8, uint64(n))
		if err != nil {
			return LocString{}, err
		}
		loc.Subs = append(loc.Subs, LocSub{ID: id, Text: string(text)})
		pos += 8 + uint64(n)
	}
	return loc, nil
}

// Blob decodes a raw binary payload.
func (fr FieldRef) Blob() ([]byte, error) {
	if fr.Type() != TypeVoid {
		return nil, fr.mismatch(TypeVoid.String())
	}
	head, err := fr.data(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(head)
	raw, err := fr.dataAt(uint64(fr.f.fields[fr.index].DataOrOffset)+4, uint64(n))
	if err != nil {
		return nil, err
	}
	return slices.Clone(raw), nil
}

// Struct resolves a direct child struct field.
func (fr FieldRef) Struct() (StructRef, error) {
	entry := fr.f.fields[fr.index]
	if entry.Type != TypeStruct {
		return StructRef{}, fr.mismatch(TypeStruct.String())
	}
	if entry.DataOrOffset >= uint32(len(fr.f.structs)) {
		return StructRef{}, formatErr(fr.entryPos()+8,
			"field %d: struct index %d out of range [0,%d)", fr.index, entry.DataOrOffset, len(fr.f.structs))
	}
	return StructRef{f: fr.f, index: int(entry.DataOrOffset)}, nil
}

// List resolves a list field into references to its element structs, in
// stored order.
func (fr FieldRef) List() ([]StructRef, error) {
	entry := fr.f.fields[fr.index]
	if entry.Type != TypeList {
		return nil, fr.mismatch(TypeList.String())
	}
	off := uint64(entry.DataOrOffset)
	if off+4 > uint64(len(fr.f.listIndices)) {
		return nil, formatErr(int64(fr.f.off.listIndices)+int64(off),
			"field %d: list block at %d exceeds section size %d", fr.index, off, len(fr.f.listIndices))
	}
	count := binary.LittleEndian.Uint32(fr.f.listIndices[off:])
	end := off + 4 + 4*uint64(count)
	if end > uint64(len(fr.f.listIndices)) {
		return nil, formatErr(int64(fr.f.off.listIndices)+int64(off),
			"field %d: list block [%d:%d] exceeds section size %d", fr.index, off, end, len(fr.f.listIndices))
	}
	refs := make([]StructRef, count)
	for i := range refs {
		idx := binary.LittleEndian.Uint32(fr.f.listIndices[off+4+4*uint64(i):])
		if idx >= uint32(len(fr.f.structs)) {
			return nil, formatErr(int64(fr.f.off.listIndices)+int64(off)+4+int64(4*i),
				"field %d: list element %d references struct %d, table has %d", fr.index, i, idx, len(fr.f.structs))
		}
		refs[i] = StructRef{f: fr.f, index: int(idx)}
	}
	return refs, nil
}
