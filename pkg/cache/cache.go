// Package cache provides result caching for conversation tooling.
//
// Validating, transcribing, or round-tripping the same file twice produces
// the same output, so the CLI and the HTTP facade cache results keyed by the
// content hash of the input file. Three backends are provided:
//   - file: directory-backed cache for CLI usage
//   - redis: shared cache for multi-instance server deployments
//   - null: no-op cache for tests and --no-cache runs
//
// Keys are built through a [Keyer] so that every consumer derives them the
// same way and scoping (multi-tenant prefixes) stays in one place.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TranscriptKeyOpts are the inputs that change a transcript result.
type TranscriptKeyOpts struct {
	Lang uint32
}

// RoundTripKeyOpts are the inputs that change a round-trip result.
type RoundTripKeyOpts struct {
	MaxDepth int
}

// Keyer derives cache keys for the cacheable operations. fileHash is the
// hex content hash of the input file (see [Hash]).
type Keyer interface {
	// ValidateKey keys a validation report.
	ValidateKey(fileHash string) string

	// TranscriptKey keys a rendered transcript.
	TranscriptKey(fileHash string, opts TranscriptKeyOpts) string

	// RoundTripKey keys a canonical re-encode.
	RoundTripKey(fileHash string, opts RoundTripKeyOpts) string
}

// DefaultKeyer is the standard key derivation.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ValidateKey generates a key for a validation report.
// Validation has no options, so the key is the plain prefixed hash.
func (k *DefaultKeyer) ValidateKey(fileHash string) string {
	return "validate:" + fileHash
}

// TranscriptKey generates a key for a transcript, folding the render
// options into the hash so different languages cache separately.
func (k *DefaultKeyer) TranscriptKey(fileHash string, opts TranscriptKeyOpts) string {
	return hashKey("transcript", fileHash, opts)
}

// RoundTripKey generates a key for a canonical re-encode.
func (k *DefaultKeyer) RoundTripKey(fileHash string, opts RoundTripKeyOpts) string {
	return hashKey("roundtrip", fileHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
