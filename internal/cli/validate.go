package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dlgforge/dlgforge/pkg/cache"
	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
	"github.com/dlgforge/dlgforge/pkg/observability"
	"github.com/dlgforge/dlgforge/pkg/project"
)

// validateOpts holds the command-line flags for the validate command.
type validateOpts struct {
	projectPath string
	maxDepth    int
	noCache     bool
	jsonOut     bool
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	opts := &validateOpts{}

	cmd := &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check conversation files for structural problems",
		Long: `Check conversation files for structural problems: dangling pointers,
broken speaker alternation, orphaned subtrees, owning cycles, and
layout drift left by foreign tooling.

Without file arguments the files come from the project manifest.
Results are cached by content hash, so re-validating unchanged files is
cheap. The command fails when any file has findings, which makes it
usable as a CI gate.

Examples:
  dlgforge validate guard.dlg merchant.dlg
  dlgforge validate -p campaign/dlgforge.toml
  dlgforge validate --json guard.dlg`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.projectPath, "project", "p", "", "project manifest (default: ./"+project.Filename+" if present)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "traversal depth bound (0 = project or library default)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "machine-readable output")

	return cmd
}

// fileResult is one file's validation outcome. It is also the cached
// representation, keyed by the file's content hash.
type fileResult struct {
	File     string        `json:"file"`
	Valid    bool          `json:"valid"`
	Entries  int           `json:"entries"`
	Replies  int           `json:"replies"`
	Starts   int           `json:"starts"`
	Warnings []fileFinding `json:"warnings"`
	Err      string        `json:"error,omitempty"`

	cached bool
}

type fileFinding struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
}

func (c *CLI) runValidate(ctx context.Context, args []string, opts *validateOpts) error {
	m, err := loadProject(opts.projectPath)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "load project")
	}

	files := args
	if len(files) == 0 {
		if m == nil {
			return apperrors.New(apperrors.ErrCodeInvalidInput, "no files given and no %s found", project.Filename)
		}
		files, err = m.ExpandFiles()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "expand project files")
		}
	}
	if len(files) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "nothing to validate")
	}

	dopts := dlg.Options{MaxDepth: opts.maxDepth}
	var ttl time.Duration
	if m != nil {
		if dopts.MaxDepth == 0 {
			dopts.MaxDepth = m.MaxDepth
		}
		ttl = m.Cache.TTL.Duration
	}

	store, keyer := c.newCache(ctx, m, opts.noCache)
	defer store.Close()

	prog := newProgress(loggerFromContext(ctx))
	sp := newSpinner(ctx, "Validating...")
	sp.Start()
	results := make([]fileResult, 0, len(files))
	bad := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			sp.Stop()
			return err
		}
		sp.SetMessage("Validating " + f)
		res := validateFile(ctx, f, dopts, store, keyer, ttl)
		if !res.Valid {
			bad++
		}
		results = append(results, res)
	}
	sp.Stop()

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(results)
	}
	prog.done(fmt.Sprintf("Validated %d files", len(results)))

	if bad > 0 {
		return apperrors.New(apperrors.ErrCodeInvariant, "%d of %d files have findings", bad, len(results))
	}
	return nil
}

// validateFile checks one file, consulting the cache by content hash
// first. Results are cached whether clean or not; the same bytes always
// produce the same findings.
func validateFile(ctx context.Context, path string, opts dlg.Options, store cache.Cache, keyer cache.Keyer, ttl time.Duration) fileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileResult{File: path, Err: err.Error()}
	}

	key := keyer.ValidateKey(cache.Hash(data))
	if body, ok, cerr := store.Get(ctx, key); cerr == nil && ok {
		var res fileResult
		if json.Unmarshal(body, &res) == nil {
			observability.Cache().OnCacheHit(ctx, "validate")
			res.File = path // cached by content, the path may differ
			res.cached = true
			return res
		}
	}
	observability.Cache().OnCacheMiss(ctx, "validate")

	conv, rep, err := dlg.LoadWithOptions(ctx, bytes.NewReader(data), opts)
	if err != nil {
		return cacheResult(ctx, store, key, ttl, fileResult{File: path, Err: err.Error()})
	}

	warnings := dlg.MergeWarnings(rep.Warnings, conv.Validate())
	res := fileResult{
		File:     path,
		Valid:    len(warnings) == 0,
		Entries:  len(conv.Entries),
		Replies:  len(conv.Replies),
		Starts:   len(conv.Starts),
		Warnings: make([]fileFinding, len(warnings)),
	}
	for i, w := range warnings {
		res.Warnings[i] = fileFinding{Code: string(w.Code), Message: w.Message}
		if w.Node != nil {
			res.Warnings[i].Node = w.Node.ID.String()
		}
	}
	return cacheResult(ctx, store, key, ttl, res)
}

func cacheResult(ctx context.Context, store cache.Cache, key string, ttl time.Duration, res fileResult) fileResult {
	if body, err := json.Marshal(res); err == nil {
		if store.Set(ctx, key, body, ttl) == nil {
			observability.Cache().OnCacheSet(ctx, "validate", len(body))
		}
	}
	return res
}

func printResults(results []fileResult) {
	for _, r := range results {
		switch {
		case r.Err != "":
			printError("%s: %s", r.File, r.Err)
		case r.Valid:
			printSuccess("%s", r.File)
			printStats(r.Entries, r.Replies, r.Starts, r.cached)
		default:
			printWarning("%s: %d findings", r.File, len(r.Warnings))
			for _, w := range r.Warnings {
				printDetail("%s  %s", w.Code, w.Message)
			}
		}
	}
}
