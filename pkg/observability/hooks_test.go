package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Codec hooks
	co := NoopCodecHooks{}
	co.OnLoadStart(ctx, "tavern.dlg")
	co.OnLoadComplete(ctx, "tavern.dlg", 100, 2, time.Second, nil)
	co.OnSaveStart(ctx, "tavern.dlg", 100)
	co.OnSaveComplete(ctx, "tavern.dlg", 4096, time.Second, nil)

	// Graph hooks
	g := NoopGraphHooks{}
	g.OnMutation(ctx, "delete", nil)
	g.OnSweep(ctx, 1, 3)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "transcript")
	c.OnCacheMiss(ctx, "validate")
	c.OnCacheSet(ctx, "transcript", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Codec().(NoopCodecHooks); !ok {
		t.Error("Codec() should return NoopCodecHooks by default")
	}
	if _, ok := Graph().(NoopGraphHooks); !ok {
		t.Error("Graph() should return NoopGraphHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customCodec := &testCodecHooks{}
	SetCodecHooks(customCodec)
	if Codec() != customCodec {
		t.Error("SetCodecHooks should set custom hooks")
	}

	customGraph := &testGraphHooks{}
	SetGraphHooks(customGraph)
	if Graph() != customGraph {
		t.Error("SetGraphHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Codec().(NoopCodecHooks); !ok {
		t.Error("Reset() should restore NoopCodecHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testCodecHooks{}
	SetCodecHooks(custom)

	// Setting nil should be ignored
	SetCodecHooks(nil)

	if Codec() != custom {
		t.Error("SetCodecHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testCodecHooks struct{ NoopCodecHooks }
type testGraphHooks struct{ NoopGraphHooks }
type testCacheHooks struct{ NoopCacheHooks }
