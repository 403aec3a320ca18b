package gff

import (
	"errors"
	"fmt"
)

var (
	// ErrLabelTooLong is returned by the builder when a field label exceeds
	// [MaxLabel] bytes. Labels live in fixed 16-byte cells.
	ErrLabelTooLong = errors.New("label exceeds 16 bytes")

	// ErrResRefTooLong is returned by the builder when a resource reference
	// exceeds [MaxResRef] bytes.
	ErrResRefTooLong = errors.New("resref exceeds 16 bytes")

	// ErrUnknownStruct is returned by the builder when a field or list
	// element references a struct index that was never registered.
	ErrUnknownStruct = errors.New("unknown struct index")

	// ErrUnknownList is returned by the builder when a list field references
	// a list handle that was never registered.
	ErrUnknownList = errors.New("unknown list handle")

	// ErrFileType is returned by the builder when the file type tag is
	// longer than four bytes.
	ErrFileType = errors.New("file type tag exceeds 4 bytes")
)

// FormatError reports a malformed container. It is fatal for the load that
// produced it: once the layout itself cannot be trusted, no field can.
// Offset is the byte position the problem was detected at, when known.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return "gff: " + e.Reason
	}
	return fmt.Sprintf("gff: %s (at byte %d)", e.Reason, e.Offset)
}

// formatErr builds a FormatError at the given byte offset. Pass a negative
// offset when no meaningful position exists.
func formatErr(offset int64, format string, args ...any) *FormatError {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
