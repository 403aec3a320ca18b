package cli

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
)

func TestFindNode(t *testing.T) {
	c := dlg.New()
	e1 := c.AddStartEntry()
	r1, err := c.AddChild(e1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}

	if n, err := findNode(c, "entry:0"); err != nil || n != e1 {
		t.Errorf("findNode(entry:0) = %v, %v; want the entry", n, err)
	}
	if n, err := findNode(c, "reply:0"); err != nil || n != r1 {
		t.Errorf("findNode(reply:0) = %v, %v; want the reply", n, err)
	}
	if _, err := findNode(c, "entry:7"); err == nil {
		t.Error("out-of-range index should fail")
	}

	if n, err := findNode(c, e1.ID.String()); err != nil || n != e1 {
		t.Errorf("full id lookup = %v, %v; want the entry", n, err)
	}
	if n, err := findNode(c, r1.ID.String()[:8]); err != nil || n != r1 {
		t.Errorf("prefix lookup = %v, %v; want the reply", n, err)
	}
	if _, err := findNode(c, "zzzz"); err == nil {
		t.Error("unknown prefix should fail")
	}
}

func TestFindNodeAmbiguousPrefix(t *testing.T) {
	c := dlg.New()
	e1 := c.AddStartEntry()
	r1, err := c.AddChild(e1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	e1.ID = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	r1.ID = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")

	if _, err := findNode(c, "aaaa"); err == nil {
		t.Error("ambiguous prefix should fail")
	}
}

// quarantineRef loads path and returns the address of its single
// quarantine root, the way runRestore will see it after its own load.
func quarantineRef(t *testing.T, path string) string {
	t.Helper()
	conv, _, err := dlg.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	roots := conv.QuarantineRoots()
	if len(roots) != 1 {
		t.Fatalf("quarantine roots = %d, want 1", len(roots))
	}
	return nodeRef(conv, roots[0])
}

func TestRunRestoreAsStart(t *testing.T) {
	path := quarantineFile(t)
	ref := quarantineRef(t, path)

	if err := newTestCLI().runRestore(context.Background(), path, &restoreOpts{nodeID: ref, asStart: true}); err != nil {
		t.Fatalf("runRestore: %v", err)
	}

	conv, rep, err := dlg.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(conv.QuarantineRoots()); got != 0 {
		t.Errorf("quarantine roots after restore = %d, want 0", got)
	}
	if got := len(conv.Starts); got != 2 {
		t.Errorf("starts after restore = %d, want 2", got)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("restored file should reload clean, got %+v", rep.Warnings)
	}
}

func TestRunRestoreUnderParent(t *testing.T) {
	path := quarantineFile(t)
	ref := quarantineRef(t, path)

	opts := &restoreOpts{nodeID: ref, parentID: "reply:0"}
	if err := newTestCLI().runRestore(context.Background(), path, opts); err != nil {
		t.Fatalf("runRestore: %v", err)
	}

	conv, rep, err := dlg.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(conv.QuarantineRoots()); got != 0 {
		t.Errorf("quarantine roots after restore = %d, want 0", got)
	}
	if got := len(conv.Starts); got != 1 {
		t.Errorf("starts after restore = %d, want 1", got)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("restored file should reload clean, got %+v", rep.Warnings)
	}
}

func TestRunRestoreDiscard(t *testing.T) {
	path := quarantineFile(t)
	ref := quarantineRef(t, path)

	if err := newTestCLI().runRestore(context.Background(), path, &restoreOpts{nodeID: ref, discard: true}); err != nil {
		t.Fatalf("runRestore: %v", err)
	}

	conv, rep, err := dlg.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(conv.QuarantineRoots()); got != 0 {
		t.Errorf("quarantine roots after discard = %d, want 0", got)
	}
	if got := len(conv.Nodes()); got != 2 {
		t.Errorf("nodes after discard = %d, want 2", got)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("file should reload clean after discard, got %+v", rep.Warnings)
	}
}

func TestRunRestoreNothingQuarantined(t *testing.T) {
	path := sampleFile(t)

	if err := newTestCLI().runRestore(context.Background(), path, &restoreOpts{}); err != nil {
		t.Fatalf("runRestore on a clean file: %v", err)
	}
}

func TestRunRestoreFlagConflict(t *testing.T) {
	err := newTestCLI().runRestore(context.Background(), "unused.dlg", &restoreOpts{discard: true, asStart: true})
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidInput {
		t.Errorf("conflicting flags error code = %v, want %v", apperrors.GetCode(err), apperrors.ErrCodeInvalidInput)
	}
}

func TestRunRestoreNotQuarantined(t *testing.T) {
	path := quarantineFile(t)

	err := newTestCLI().runRestore(context.Background(), path, &restoreOpts{nodeID: "entry:0", asStart: true})
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidInput {
		t.Errorf("restoring a live node error code = %v, want %v", apperrors.GetCode(err), apperrors.ErrCodeInvalidInput)
	}
}
