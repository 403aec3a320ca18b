package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dlgforge/dlgforge/pkg/dlg"
)

// memCache is an in-process cache backend that counts traffic.
type memCache struct {
	data map[string][]byte
	gets int
	hits int
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.gets++
	data, ok := m.data[key]
	if ok {
		m.hits++
	}
	return data, ok, nil
}

func (m *memCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	m.sets++
	m.data[key] = data
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memCache) Close() error { return nil }

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

// sampleDocument encodes a two-line conversation: an NPC greeting with one
// player response.
func sampleDocument(t *testing.T) []byte {
	t.Helper()
	c := dlg.New()
	e1 := c.AddStartEntry()
	e1.Text = dlg.NewLocText("Halt!")
	r1, err := c.AddChild(e1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	r1.Text = dlg.NewLocText("Who goes there?")
	data, err := dlg.Save(context.Background(), c)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return data
}

// quarantineDocument encodes a conversation holding an orphaned subtree:
// the third node lost its owner but is still link-referenced.
func quarantineDocument(t *testing.T) []byte {
	t.Helper()
	c := dlg.New()
	e1 := c.AddStartEntry()
	r1, err := c.AddChild(e1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	e2, err := c.AddChild(r1)
	if err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := c.AddChild(e2); err != nil {
		t.Fatalf("AddChild: %v", err)
	}
	if _, err := c.Link(r1, e2); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := c.Delete(c.Owner(e2)); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	data, err := dlg.Save(context.Background(), c)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return data
}

func postBytes(t *testing.T, url string, body []byte) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestValidate(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/validate", sampleDocument(t))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var vr validateResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !vr.Valid {
		t.Errorf("valid = false, warnings %v", vr.Warnings)
	}
	if vr.Entries != 1 || vr.Replies != 1 || vr.Starts != 1 {
		t.Errorf("counts = %d/%d/%d entries/replies/starts, want 1/1/1",
			vr.Entries, vr.Replies, vr.Starts)
	}
}

func TestValidateReportsQuarantine(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/validate", quarantineDocument(t))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var vr validateResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if vr.Valid {
		t.Error("valid = true for a document with orphaned nodes")
	}
	found := false
	for _, w := range vr.Warnings {
		if w.Code == "ORPHAN" {
			found = true
			if w.Node == "" || w.Kind != "entry" {
				t.Errorf("orphan warning missing node info: %+v", w)
			}
		}
	}
	if !found {
		t.Errorf("no ORPHAN warning in %v", vr.Warnings)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/validate", []byte("not a dialogue"))
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", status, body)
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if er.Error.Code != "INVALID_FORMAT" {
		t.Errorf("code = %q, want INVALID_FORMAT", er.Error.Code)
	}
}

func TestValidateEmptyBody(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/validate", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", status, body)
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if er.Error.Code != "INVALID_INPUT" {
		t.Errorf("code = %q, want INVALID_INPUT", er.Error.Code)
	}
}

func TestValidateCaching(t *testing.T) {
	mc := newMemCache()
	ts := newTestServer(t, Config{Cache: mc})
	doc := sampleDocument(t)

	_, first := postBytes(t, ts.URL+"/v1/validate", doc)
	_, second := postBytes(t, ts.URL+"/v1/validate", doc)

	if !bytes.Equal(first, second) {
		t.Errorf("cached response differs:\n%s\n%s", first, second)
	}
	if mc.sets != 1 {
		t.Errorf("sets = %d, want 1", mc.sets)
	}
	if mc.hits != 1 {
		t.Errorf("hits = %d, want 1", mc.hits)
	}
}

func TestTranscript(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/transcript", sampleDocument(t))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var tr transcriptResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "NPC: Halt!\n  PC: Who goes there?\n"
	if tr.Transcript != want {
		t.Errorf("transcript = %q, want %q", tr.Transcript, want)
	}
}

func TestTranscriptBadLang(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/transcript?lang=abc", sampleDocument(t))
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", status, body)
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if er.Error.Code != "INVALID_INPUT" {
		t.Errorf("code = %q, want INVALID_INPUT", er.Error.Code)
	}
}

func TestRoundTrip(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := postBytes(t, ts.URL+"/v1/roundtrip", sampleDocument(t))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var rr roundTripResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rr.Bytes != len(rr.Data) {
		t.Errorf("bytes = %d, data length %d", rr.Bytes, len(rr.Data))
	}

	c, rep, err := dlg.Load(context.Background(), bytes.NewReader(rr.Data))
	if err != nil {
		t.Fatalf("re-encoded document does not load: %v", err)
	}
	if len(rep.Warnings) != 0 {
		t.Errorf("re-encoded document warns: %v", rep.Warnings)
	}
	if len(c.Entries) != 1 || len(c.Replies) != 1 {
		t.Errorf("re-encoded counts = %d entries, %d replies, want 1 and 1",
			len(c.Entries), len(c.Replies))
	}
}

func TestBodyLimit(t *testing.T) {
	ts := newTestServer(t, Config{MaxBody: 8})

	status, body := postBytes(t, ts.URL+"/v1/validate", sampleDocument(t))
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", status, body)
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(er.Error.Message, "exceeds") {
		t.Errorf("message = %q, want size complaint", er.Error.Message)
	}
}
