// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about codec runs, graph mutations, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCodecHooks(&myCodecHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Codec().OnLoadStart(ctx, name)
//	// ... decode ...
//	observability.Codec().OnLoadComplete(ctx, name, nodeCount, warnings, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Codec Hooks
// =============================================================================

// CodecHooks receives events from conversation load and save runs.
type CodecHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, name string)
	OnLoadComplete(ctx context.Context, name string, nodeCount, warnings int, duration time.Duration, err error)

	// Save events
	OnSaveStart(ctx context.Context, name string, nodeCount int)
	OnSaveComplete(ctx context.Context, name string, bytes int, duration time.Duration, err error)
}

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events from graph mutations.
type GraphHooks interface {
	// OnMutation records a completed mutation (op names follow the public
	// Conversation API: delete, link, restore, ...).
	OnMutation(ctx context.Context, op string, err error)

	// OnSweep records an orphan sweep: how many roots ended up quarantined
	// and how many unreferenced nodes were dropped.
	OnSweep(ctx context.Context, quarantined, dropped int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCodecHooks is a no-op implementation of CodecHooks.
type NoopCodecHooks struct{}

func (NoopCodecHooks) OnLoadStart(context.Context, string) {}
func (NoopCodecHooks) OnLoadComplete(context.Context, string, int, int, time.Duration, error) {
}
func (NoopCodecHooks) OnSaveStart(context.Context, string, int)                          {}
func (NoopCodecHooks) OnSaveComplete(context.Context, string, int, time.Duration, error) {}

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnMutation(context.Context, string, error) {}
func (NoopGraphHooks) OnSweep(context.Context, int, int)         {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	codecHooks CodecHooks = NoopCodecHooks{}
	graphHooks GraphHooks = NoopGraphHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	hooksMu    sync.RWMutex
)

// SetCodecHooks registers custom codec hooks.
// This should be called once at application startup before any load or save.
func SetCodecHooks(h CodecHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		codecHooks = h
	}
}

// SetGraphHooks registers custom graph hooks.
// This should be called once at application startup before any mutations.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Codec returns the registered codec hooks.
func Codec() CodecHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return codecHooks
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	codecHooks = NoopCodecHooks{}
	graphHooks = NoopGraphHooks{}
	cacheHooks = NoopCacheHooks{}
}
