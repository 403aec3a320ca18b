package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// The server uses it so that different projects sharing one Redis
// instance cannot see each other's results.
//
// Example usage:
//
//	// Project-specific keys
//	projKeyer := NewScopedKeyer(NewDefaultKeyer(), "proj:campaign1:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ValidateKey generates a prefixed key for a validation report.
func (k *ScopedKeyer) ValidateKey(fileHash string) string {
	return k.prefix + k.inner.ValidateKey(fileHash)
}

// TranscriptKey generates a prefixed key for a transcript.
func (k *ScopedKeyer) TranscriptKey(fileHash string, opts TranscriptKeyOpts) string {
	return k.prefix + k.inner.TranscriptKey(fileHash, opts)
}

// RoundTripKey generates a prefixed key for a canonical re-encode.
func (k *ScopedKeyer) RoundTripKey(fileHash string, opts RoundTripKeyOpts) string {
	return k.prefix + k.inner.RoundTripKey(fileHash, opts)
}
