// Package gff reads and writes the generic struct/field/label container
// format (GFF V3.2) that Aurora-era games use for conversations and most
// other resource types.
//
// # Overview
//
// A GFF file is a flat, offset-addressed database: a header followed by six
// sections (struct table, field table, label table, field data, field
// indices, list indices). Structs reference fields, fields reference labels
// and payloads, and list payloads reference structs again, which is how the
// format encodes arbitrary trees without a recursive layout.
//
// This package knows nothing about conversations. It exposes the container
// faithfully and leaves semantic interpretation to callers such as
// [github.com/dlgforge/dlgforge/pkg/dlg].
//
// # Reading
//
// Parse a file with [Read] or [Parse], then walk it through bounds-checked
// references. Payloads decode lazily, on access:
//
//	f, err := gff.Read(file)
//	root, err := f.Root()
//	fld, ok, err := root.Field("EntryList")
//	entries, err := fld.List()
//
// Parse validates the header, section bounds, and the root struct's type
// sentinel up front and returns a [FormatError] with a byte offset when the
// container is malformed. Everything deeper is validated at access time.
//
// # Writing
//
// Build a file with [NewBuilder]: register structs, list blocks, and fields,
// then call [Builder.Encode]. All section offsets, per-struct field index
// runs, and list block offsets are computed analytically by [Compute] before
// a single byte is emitted, so encoding is one pass with no back-patching.
//
// # Layout drift
//
// Writers disagree on one point of the format: whether single-field structs
// still contribute a run to the field index section. This package always
// emits the run (keeping the section at exactly four bytes per field) while
// storing the direct field index in the struct entry, which every known
// reader accepts. [File.Drift] re-derives the expected layout for a parsed
// file and reports deviations as strings; foreign files commonly drift and
// still load fine.
package gff
