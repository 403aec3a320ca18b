// Package pkg provides the core libraries for dlgforge conversation tooling.
//
// # Overview
//
// dlgforge reads, validates, edits, and rewrites branching conversation
// files in the engine's binary container format. The pkg directory is
// organized into three main areas:
//
//  1. [dlg] - Domain logic (conversation graph, mutation engine, codec)
//  2. [gff] - Binary container format (reader, layout, builder)
//  3. [cache], [project], [errors], [observability] - Infrastructure
//
// # Architecture
//
// The typical data flow through dlgforge:
//
//	Binary conversation file
//	         ↓
//	    [gff] package (parse container, index structs and fields)
//	         ↓
//	    [dlg] package (build graph, register links, flag quarantine)
//	         ↓
//	    validation reports / transcripts / rewritten files
//
// Writing runs the same path in reverse: the [dlg] encoder walks the graph
// in collection order and emits structs through the [gff] builder, so a
// loaded and re-saved file keeps its layout.
//
// # Quick Start
//
// Load a conversation, check it, and print a transcript:
//
//	import (
//	    "context"
//	    "os"
//	    "github.com/dlgforge/dlgforge/pkg/dlg"
//	)
//
//	// 1. Load the binary file into a graph
//	conv, report, err := dlg.LoadFile(context.Background(), "guard.dlg")
//
//	// 2. Inspect findings from the load and the live graph
//	warnings := dlg.MergeWarnings(report.Warnings, conv.Validate())
//
//	// 3. Render the dialogue as text
//	dlg.WriteTranscript(os.Stdout, conv, dlg.TranscriptOptions{})
//
//	// 4. Write it back out
//	err = dlg.SaveFile(context.Background(), conv, "guard.dlg")
//
// # Main Packages
//
// ## Core Domain Logic
//
// [dlg] - The conversation model and everything that operates on it: the
// node and pointer types, the mutation engine (add, link, move, delete,
// restore, discard) with its ownership and quarantine rules, the census
// that classifies unreachable nodes, the codec to and from the binary
// container, and the transcript renderer.
//
// [gff] - The generic binary container the conversations live in. A
// lazy reader that indexes structs, fields, and labels without decoding
// payloads it is never asked for, a [gff.Layout] describing the twelve
// file sections, and a [gff.Builder] that interns labels and emits the
// sections in canonical order.
//
// ## Infrastructure
//
// [cache] - Content-addressed result cache keyed by file hash. File and
// Redis backends plus a null backend for disabling, and [cache.Keyer]
// implementations that scope keys per project.
//
// [project] - The dlgforge.toml manifest: file sets, language defaults,
// traversal bounds, cache and server configuration.
//
// [errors] - Classified errors carrying a stable code, a user-facing
// message, and the mapping to process exit codes and HTTP statuses.
//
// [observability] - Context-scoped hooks the cache and codec call at
// notable points, used by the CLI and server for counters and logs.
//
// [buildinfo] - Version and commit metadata stamped at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/dlg/...       # Specific package
//	go test -run Example        # Examples only
//
// [dlg]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/dlg
// [gff]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/gff
// [cache]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/cache
// [project]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/project
// [errors]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/errors
// [observability]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/buildinfo
// [gff.Layout]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/gff#Layout
// [gff.Builder]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/gff#Builder
// [cache.Keyer]: https://pkg.go.dev/github.com/dlgforge/dlgforge/pkg/cache#Keyer
package pkg
