package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dlgforge/dlgforge/pkg/cache"
	"github.com/dlgforge/dlgforge/pkg/dlg"
)

// countCache is an in-process cache backend that counts traffic.
type countCache struct {
	data map[string][]byte
	hits int
	sets int
}

func newCountCache() *countCache { return &countCache{data: map[string][]byte{}} }

func (m *countCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok := m.data[key]
	if ok {
		m.hits++
	}
	return data, ok, nil
}

func (m *countCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.sets++
	m.data[key] = data
	return nil
}

func (m *countCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *countCache) Close() error { return nil }

func TestValidateFileClean(t *testing.T) {
	path := sampleFile(t)

	res := validateFile(context.Background(), path, dlg.Options{}, newCountCache(), cache.NewDefaultKeyer(), 0)

	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if !res.Valid {
		t.Errorf("clean file should be valid, warnings: %+v", res.Warnings)
	}
	if res.Entries != 1 || res.Replies != 1 || res.Starts != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", res.Entries, res.Replies, res.Starts)
	}
}

func TestValidateFileQuarantine(t *testing.T) {
	path := quarantineFile(t)

	res := validateFile(context.Background(), path, dlg.Options{}, newCountCache(), cache.NewDefaultKeyer(), 0)

	if res.Valid {
		t.Fatal("file with an orphaned subtree should not be valid")
	}
	found := false
	for _, w := range res.Warnings {
		if w.Code == string(dlg.WarnOrphan) {
			found = true
			if w.Node == "" {
				t.Error("orphan finding should name the node")
			}
		}
	}
	if !found {
		t.Errorf("expected an %s finding, got %+v", dlg.WarnOrphan, res.Warnings)
	}
}

func TestValidateFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.dlg")

	res := validateFile(context.Background(), path, dlg.Options{}, newCountCache(), cache.NewDefaultKeyer(), 0)

	if res.Err == "" {
		t.Error("missing file should carry an error")
	}
	if res.Valid {
		t.Error("missing file should not count as valid")
	}
}

func TestValidateFileCached(t *testing.T) {
	path := sampleFile(t)
	store := newCountCache()
	keyer := cache.NewDefaultKeyer()

	first := validateFile(context.Background(), path, dlg.Options{}, store, keyer, 0)
	second := validateFile(context.Background(), path, dlg.Options{}, store, keyer, 0)

	if first.cached {
		t.Error("first run should miss the cache")
	}
	if !second.cached {
		t.Error("second run should hit the cache")
	}
	if store.sets != 1 || store.hits != 1 {
		t.Errorf("cache traffic sets=%d hits=%d, want 1/1", store.sets, store.hits)
	}
	if second.File != path {
		t.Errorf("cached result file = %q, want %q", second.File, path)
	}
	if second.Valid != first.Valid || second.Entries != first.Entries {
		t.Error("cached result should match the fresh one")
	}
}

func TestValidateFileSameContentSharesKey(t *testing.T) {
	c := dlg.New()
	c.AddStartEntry().Text = dlg.NewLocText("Halt!")
	a := saveFixture(t, c)
	b := saveFixture(t, c)

	store := newCountCache()
	keyer := cache.NewDefaultKeyer()
	validateFile(context.Background(), a, dlg.Options{}, store, keyer, 0)
	res := validateFile(context.Background(), b, dlg.Options{}, store, keyer, 0)

	if !res.cached {
		t.Error("identical bytes under a different name should hit the cache")
	}
	if res.File != b {
		t.Errorf("cached result file = %q, want %q", res.File, b)
	}
}
