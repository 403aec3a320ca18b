package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dlgforge/dlgforge/pkg/buildinfo"
	"github.com/dlgforge/dlgforge/pkg/cache"
	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
	"github.com/dlgforge/dlgforge/pkg/observability"
)

type warningJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

type validateResponse struct {
	Valid    bool          `json:"valid"`
	Entries  int           `json:"entries"`
	Replies  int           `json:"replies"`
	Starts   int           `json:"starts"`
	Warnings []warningJSON `json:"warnings"`
}

type transcriptResponse struct {
	Transcript string        `json:"transcript"`
	Warnings   []warningJSON `json:"warnings"`
}

type roundTripResponse struct {
	Data     []byte        `json:"data"`
	Bytes    int           `json:"bytes"`
	Warnings []warningJSON `json:"warnings"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// handleValidate loads the posted document and reports every structural
// finding without mutating or re-encoding anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	data, err := s.readDocument(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := s.keyer.ValidateKey(cache.Hash(data))
	if cached, ok := s.cacheGet(r.Context(), key, "validate"); ok {
		s.respondRaw(w, cached)
		return
	}

	c, rep, err := dlg.LoadWithOptions(r.Context(), bytes.NewReader(data), s.options())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	warnings := dlg.MergeWarnings(rep.Warnings, c.Validate())
	resp := validateResponse{
		Valid:    len(warnings) == 0,
		Entries:  len(c.Entries),
		Replies:  len(c.Replies),
		Starts:   len(c.Starts),
		Warnings: warningsJSON(warnings),
	}
	s.respondCached(w, r, key, "validate", resp)
}

// handleTranscript renders the posted document as a plain-text transcript.
// The lang query parameter overrides the configured language.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	data, err := s.readDocument(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	lang := s.cfg.Lang
	if v := r.URL.Query().Get("lang"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			s.fail(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "lang %q is not a language id", v))
			return
		}
		lang = uint32(parsed)
	}

	key := s.keyer.TranscriptKey(cache.Hash(data), cache.TranscriptKeyOpts{Lang: lang})
	if cached, ok := s.cacheGet(r.Context(), key, "transcript"); ok {
		s.respondRaw(w, cached)
		return
	}

	c, rep, err := dlg.LoadWithOptions(r.Context(), bytes.NewReader(data), s.options())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var sb strings.Builder
	if err := dlg.WriteTranscript(&sb, c, dlg.TranscriptOptions{Lang: lang}); err != nil {
		s.fail(w, r, err)
		return
	}

	resp := transcriptResponse{
		Transcript: sb.String(),
		Warnings:   warningsJSON(rep.Warnings),
	}
	s.respondCached(w, r, key, "transcript", resp)
}

// handleRoundTrip re-encodes the posted document into this writer's
// canonical layout, pruning what a save prunes.
func (s *Server) handleRoundTrip(w http.ResponseWriter, r *http.Request) {
	data, err := s.readDocument(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	key := s.keyer.RoundTripKey(cache.Hash(data), cache.RoundTripKeyOpts{MaxDepth: s.cfg.MaxDepth})
	if cached, ok := s.cacheGet(r.Context(), key, "roundtrip"); ok {
		s.respondRaw(w, cached)
		return
	}

	c, rep, err := dlg.LoadWithOptions(r.Context(), bytes.NewReader(data), s.options())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := dlg.Save(r.Context(), c)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := roundTripResponse{
		Data:     out,
		Bytes:    len(out),
		Warnings: warningsJSON(rep.Warnings),
	}
	s.respondCached(w, r, key, "roundtrip", resp)
}

func (s *Server) options() dlg.Options {
	return dlg.Options{MaxDepth: s.cfg.MaxDepth}
}

// readDocument reads the request body under the size cap.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "document exceeds %d bytes", maxErr.Limit)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "read request body")
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "empty document")
	}
	return data, nil
}

// cacheGet looks up a cached response body. Backend failures degrade to
// misses; the cache never fails a request.
func (s *Server) cacheGet(ctx context.Context, key, keyType string) ([]byte, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("cache get", "type", keyType, "err", err)
		return nil, false
	}
	if ok {
		observability.Cache().OnCacheHit(ctx, keyType)
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType)
	}
	return data, ok
}

// respondCached stores the encoded response, then sends it. Cache hits
// and misses serve byte-identical bodies.
func (s *Server) respondCached(w http.ResponseWriter, r *http.Request, key, keyType string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.fail(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode response"))
		return
	}
	if err := s.cache.Set(r.Context(), key, body, s.cfg.CacheTTL); err != nil {
		s.log.Warn("cache set", "type", keyType, "err", err)
	} else {
		observability.Cache().OnCacheSet(r.Context(), keyType, len(body))
	}
	s.respondRaw(w, body)
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) respondRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.Classify(err)
	s.log.Warn("request failed", "path", r.URL.Path, "code", code, "err", err)
	s.respond(w, apperrors.HTTPStatus(code), errorResponse{
		Error: errorBody{Code: string(code), Message: apperrors.UserMessage(err)},
	})
}

func warningsJSON(ws []dlg.Warning) []warningJSON {
	out := make([]warningJSON, len(ws))
	for i, wn := range ws {
		out[i] = warningJSON{Code: string(wn.Code), Message: wn.Message}
		if wn.Node != nil {
			out[i].Node = wn.Node.ID.String()
			out[i].Kind = wn.Node.Kind.String()
		}
	}
	return out
}
