// Package dlg models branching conversation graphs and converts them to and
// from the engine's binary conversation format.
//
// # Overview
//
// A conversation is two ordered collections of nodes — entries spoken by the
// conversation owner and replies spoken by the player — wired together by
// directed pointers. Pointers come in two flavors: an owning pointer places
// its target in the tree, a link pointer borrows a node owned elsewhere.
// Entry points are the start pointers, which always lead to entries.
//
// The package has three layers:
//
//   - The model: [Conversation], [Node], [Pointer], [Param], [LocText].
//   - The mutation engine: [Conversation.AddChild], [Conversation.AddStart],
//     [Conversation.Link], [Conversation.Delete], [Conversation.Move],
//     [Conversation.Restore], [Conversation.Discard]. Mutations keep the
//     graph invariants: pointers never dangle, shared nodes survive deletes,
//     severed subtrees that are still link-referenced move to quarantine
//     instead of being lost.
//   - The codec: [Load], [Save], and [SaveFile] convert between the model
//     and the binary container via package gff.
//
// # Ownership and quarantine
//
// Every node has at most one owning pointer, the first non-link pointer
// registered against it. Deleting edges can leave a node without an owner:
// if anything still links to it, the node becomes a quarantine root and is
// kept (inert, excluded from playback order) until restored or discarded;
// if nothing references it at all, it is garbage and dropped. The sweep
// runs after every delete and iterates to a fixpoint, since dropping
// garbage can strip the links that kept other nodes alive; attach
// operations refresh quarantine flags without dropping anything.
//
// # Cycles
//
// Link pointers routinely form cycles ("back to the main menu"), which is
// legal. Every traversal in this package is guarded by a visited set and a
// configurable depth bound ([Options.MaxDepth]).
//
// # Errors and warnings
//
// Malformed containers fail the whole load with a [gff.FormatError].
// Recoverable oddities — dangling target indices, wrongly typed fields,
// layout drift from foreign writers — accumulate as [Warning] values in the
// load [Report] and never abort. Rejected mutations return an
// [InvariantError] naming the operation and the reason; the graph is left
// untouched.
package dlg
