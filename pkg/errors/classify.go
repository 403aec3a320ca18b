package errors

import (
	"context"
	"errors"
	"io/fs"

	"github.com/dlgforge/dlgforge/pkg/cache"
	"github.com/dlgforge/dlgforge/pkg/dlg"
	"github.com/dlgforge/dlgforge/pkg/gff"
)

// Classify maps an error to its boundary code. Structured errors keep
// their own code, known domain types map to theirs, and everything else
// is internal. A nil error maps to the empty code.
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured.Code
	}

	var formatErr *gff.FormatError
	if errors.As(err, &formatErr) {
		return ErrCodeInvalidFormat
	}
	var invariantErr *dlg.InvariantError
	if errors.As(err, &invariantErr) {
		return ErrCodeInvariant
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeCancelled
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeFileNotFound
	case errors.Is(err, cache.ErrNetwork):
		return ErrCodeNetwork
	}
	return ErrCodeInternal
}
