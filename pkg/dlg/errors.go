package dlg

import "fmt"

// WarnCode classifies a structural warning.
type WarnCode string

const (
	// WarnDangling reports a pointer whose stored target index is outside
	// its collection. The edge is skipped on load.
	WarnDangling WarnCode = "DANGLING_POINTER"

	// WarnFieldType reports a field stored with an unexpected payload type.
	// The field falls back to its default.
	WarnFieldType WarnCode = "FIELD_TYPE"

	// WarnStartKind reports a start pointer leading to a reply. Starts must
	// lead to entries.
	WarnStartKind WarnCode = "START_KIND"

	// WarnAlternation reports an edge connecting two nodes of the same
	// kind. Conversations alternate speakers along every path.
	WarnAlternation WarnCode = "ALTERNATION"

	// WarnOrphan reports a node without an owning pointer that links still
	// reference. The node is quarantined, not dropped.
	WarnOrphan WarnCode = "ORPHAN"

	// WarnUnreferenced reports a node nothing points to and no start
	// reaches. It survives in memory but is pruned on save.
	WarnUnreferenced WarnCode = "UNREFERENCED"

	// WarnCycle reports a cycle over owning pointers. Link cycles are
	// normal; owning cycles mean foreign tooling wrote a malformed tree.
	WarnCycle WarnCode = "OWNING_CYCLE"

	// WarnDepth reports a traversal branch cut off by Options.MaxDepth.
	WarnDepth WarnCode = "DEPTH_EXCEEDED"

	// WarnDrift reports container layout that differs from what this
	// package would emit. Purely informational, foreign writers drift.
	WarnDrift WarnCode = "LAYOUT_DRIFT"
)

// Warning is a recoverable structural finding. Warnings accumulate during
// load, sweep, and validation; they never abort an operation.
type Warning struct {
	Code    WarnCode
	Message string
	Node    *Node // involved node, when one exists
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

func warnf(code WarnCode, node *Node, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...), Node: node}
}

// InvariantError reports a rejected mutation. The graph is unchanged; the
// reason is written for humans and surfaces directly in editor UIs.
type InvariantError struct {
	Op     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("dlg: %s: %s", e.Op, e.Reason)
}

func invariant(op, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
