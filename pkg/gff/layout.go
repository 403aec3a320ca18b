package gff

// Layout holds every offset and size of an encoded file, derived purely
// from element counts before any byte is written. The writer consults it to
// emit the file in one forward pass, and the reader re-derives it to detect
// drift in files produced by other tools.
//
// Section order is fixed: header, struct table, field table, label table,
// field data, field indices, list indices.
type Layout struct {
	StructOffset uint32
	StructCount  uint32

	FieldOffset uint32
	FieldCount  uint32

	LabelOffset uint32
	LabelCount  uint32

	FieldDataOffset uint32
	FieldDataBytes  uint32

	FieldIndicesOffset uint32
	FieldIndicesBytes  uint32

	ListIndicesOffset uint32
	ListIndicesBytes  uint32

	// Runs holds, per struct, the byte offset of its field index run within
	// the field index section. Every struct owns a run, including empty and
	// single-field structs, so the section is always exactly four bytes per
	// field and Runs[i] equals four times the field count of structs 0..i-1.
	Runs []uint32

	// Lists holds, per registered list block, the byte offset of the block
	// within the list index section. A block is a count followed by that
	// many struct indices, so block i+1 starts 4*(1+len(i)) bytes after
	// block i.
	Lists []uint32
}

// FileSize returns the total encoded size in bytes.
func (l Layout) FileSize() int {
	return int(l.ListIndicesOffset) + int(l.ListIndicesBytes)
}

// Compute derives the complete file layout from element counts:
// the number of fields per struct in struct order, the label count, the
// field data size in bytes, and the element count per list block in block
// order. No section content is needed; the arithmetic alone fixes every
// offset in the file.
func Compute(structFields []int, labels, fieldData int, listLens []int) Layout {
	l := Layout{
		StructCount:    uint32(len(structFields)),
		LabelCount:     uint32(labels),
		FieldDataBytes: uint32(fieldData),
	}

	totalFields := 0
	l.Runs = make([]uint32, len(structFields))
	for i, n := range structFields {
		l.Runs[i] = uint32(4 * totalFields)
		totalFields += n
	}
	l.FieldCount = uint32(totalFields)
	l.FieldIndicesBytes = uint32(4 * totalFields)

	listBytes := 0
	l.Lists = make([]uint32, len(listLens))
	for i, n := range listLens {
		l.Lists[i] = uint32(listBytes)
		listBytes += 4 * (1 + n)
	}
	l.ListIndicesBytes = uint32(listBytes)

	l.StructOffset = headerSize
	l.FieldOffset = l.StructOffset + structSize*l.StructCount
	l.LabelOffset = l.FieldOffset + fieldSize*l.FieldCount
	l.FieldDataOffset = l.LabelOffset + labelSize*l.LabelCount
	l.FieldIndicesOffset = l.FieldDataOffset + l.FieldDataBytes
	l.ListIndicesOffset = l.FieldIndicesOffset + l.FieldIndicesBytes
	return l
}
