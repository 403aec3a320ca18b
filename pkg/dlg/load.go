package dlg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dlgforge/dlgforge/pkg/gff"
	"github.com/dlgforge/dlgforge/pkg/observability"
)

// Load reads a conversation from r. Malformed container bytes abort with
// a [gff.FormatError]; structural oddities (dangling pointers, orphans,
// layout drift) accumulate in the report and the load continues. The
// context is checked between phases, so a cancelled load never hands back
// a half-built graph.
func Load(ctx context.Context, r io.Reader) (*Conversation, *Report, error) {
	return load(ctx, r, "", Options{})
}

// LoadWithOptions is [Load] with a custom traversal bound.
func LoadWithOptions(ctx context.Context, r io.Reader, opts Options) (*Conversation, *Report, error) {
	return load(ctx, r, "", opts)
}

// LoadFile reads a conversation from a file on disk.
func LoadFile(ctx context.Context, path string) (*Conversation, *Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return load(ctx, f, path, Options{})
}

func load(ctx context.Context, r io.Reader, name string, opts Options) (c *Conversation, rep *Report, err error) {
	hooks := observability.Codec()
	hooks.OnLoadStart(ctx, name)
	start := time.Now()
	defer func() {
		nodes, warnings := 0, 0
		if c != nil {
			nodes = len(c.Entries) + len(c.Replies)
		}
		if rep != nil {
			warnings = len(rep.Warnings)
		}
		hooks.OnLoadComplete(ctx, name, nodes, warnings, time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := gff.Read(r)
	if err != nil {
		return nil, nil, err
	}
	if f.FileType() != FileType {
		return nil, nil, &gff.FormatError{Offset: 0, Reason: fmt.Sprintf("file type %q, want %q", f.FileType(), FileType)}
	}
	if err = ctx.Err(); err != nil {
		return nil, nil, err
	}
	c, rep, err = fromFile(f, opts)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range f.Drift() {
		rep.warn(Warning{Code: WarnDrift, Message: d})
	}
	return c, rep, nil
}

// Save flattens the conversation to container bytes. Unreferenced garbage
// is left out of the file; the in-memory graph is not modified. Edges
// broken by out-of-band mutation surface as an [InvariantError] before
// any bytes are produced.
func Save(ctx context.Context, c *Conversation) ([]byte, error) {
	return save(ctx, c, "")
}

func save(ctx context.Context, c *Conversation, name string) (out []byte, err error) {
	hooks := observability.Codec()
	hooks.OnSaveStart(ctx, name, len(c.Entries)+len(c.Replies))
	start := time.Now()
	defer func() {
		hooks.OnSaveComplete(ctx, name, len(out), time.Since(start), err)
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return encode(c)
}

// SaveFile writes the conversation to path through a temporary file in
// the same directory and an atomic rename, so a failed or cancelled save
// never leaves a partial file at the destination.
func SaveFile(ctx context.Context, c *Conversation, path string) error {
	data, err := save(ctx, c, path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
