package gff

import "fmt"

// Version is the only container version this package accepts. It has been
// stable since the format was introduced; later engines bumped file types,
// never the version string.
const Version = "V3.2"

// NoType is the struct type sentinel carried by every top-level (root)
// struct. All other structs carry a writer-chosen programmer id.
const NoType uint32 = 0xFFFFFFFF

// NoStrRef marks a localized string that carries no external string-table
// reference and resolves purely from its embedded substrings.
const NoStrRef uint32 = 0xFFFFFFFF

// Fixed entry sizes of the binary layout, in bytes.
const (
	headerSize = 56
	structSize = 12
	fieldSize  = 12
	labelSize  = 16
)

// MaxLabel is the longest allowed field label. Labels are stored in fixed
// 16-byte cells, null-padded, without a terminator at full length.
const MaxLabel = 16

// MaxResRef is the longest allowed resource reference. The engine resolves
// resrefs against its resource index, which caps names at 16 characters.
const MaxResRef = 16

// FieldType identifies the payload encoding of a field.
type FieldType uint32

// The sixteen field types of the format. Types up to [TypeFloat] except the
// 64-bit ones store their payload directly in the field entry; the rest
// store an offset into the field data, field index, or list index section.
const (
	TypeByte      FieldType = 0  // uint8
	TypeChar      FieldType = 1  // int8
	TypeWord      FieldType = 2  // uint16
	TypeShort     FieldType = 3  // int16
	TypeDword     FieldType = 4  // uint32
	TypeInt       FieldType = 5  // int32
	TypeDword64   FieldType = 6  // uint64, in field data
	TypeInt64     FieldType = 7  // int64, in field data
	TypeFloat     FieldType = 8  // float32
	TypeDouble    FieldType = 9  // float64, in field data
	TypeString    FieldType = 10 // length-prefixed string, in field data
	TypeResRef    FieldType = 11 // short resource name, in field data
	TypeLocString FieldType = 12 // localized string, in field data
	TypeVoid      FieldType = 13 // raw blob, in field data
	TypeStruct    FieldType = 14 // direct struct index
	TypeList      FieldType = 15 // byte offset into list indices
)

var fieldTypeNames = map[FieldType]string{
	TypeByte:      "BYTE",
	TypeChar:      "CHAR",
	TypeWord:      "WORD",
	TypeShort:     "SHORT",
	TypeDword:     "DWORD",
	TypeInt:       "INT",
	TypeDword64:   "DWORD64",
	TypeInt64:     "INT64",
	TypeFloat:     "FLOAT",
	TypeDouble:    "DOUBLE",
	TypeString:    "CEXOSTRING",
	TypeResRef:    "RESREF",
	TypeLocString: "CEXOLOCSTRING",
	TypeVoid:      "VOID",
	TypeStruct:    "STRUCT",
	TypeList:      "LIST",
}

// String returns the format's conventional name for the type, or a numeric
// form for values outside the defined range.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE(%d)", uint32(t))
}

// simple reports whether the payload lives directly in the field entry.
func (t FieldType) simple() bool {
	switch t {
	case TypeByte, TypeChar, TypeWord, TypeShort, TypeDword, TypeInt, TypeFloat:
		return true
	}
	return false
}

// StructEntry is a raw row of the struct table. DataOrOffset holds the
// field index directly when FieldCount is one, and a byte offset into the
// field index section otherwise.
type StructEntry struct {
	Type         uint32
	DataOrOffset uint32
	FieldCount   uint32
}

// FieldEntry is a raw row of the field table. DataOrOffset holds the value
// itself for simple types, a struct index for [TypeStruct], and a byte
// offset into field data or list indices for everything else.
type FieldEntry struct {
	Type         FieldType
	LabelIndex   uint32
	DataOrOffset uint32
}

// LocSub is one embedded substring of a localized string. ID packs the
// language and speaker gender as language*2+gender.
type LocSub struct {
	ID   uint32
	Text string
}

// LocString is a localized string: an optional external string-table
// reference plus zero or more embedded substrings in storage order.
// StrRef is [NoStrRef] when no external reference exists.
type LocString struct {
	StrRef uint32
	Subs   []LocSub
}
