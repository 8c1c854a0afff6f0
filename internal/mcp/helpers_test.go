package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"mcptoolbox/internal/config"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/protocol"
)

type memJournal struct {
	mu      sync.Mutex
	calls   []model.CallRecord
	entries []model.CacheEntry
}

func (j *memJournal) RecordCall(_ context.Context, rec model.CallRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, rec)
	return nil
}

func (j *memJournal) RecentCalls(_ context.Context, limit int) ([]model.CallRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.CallRecord(nil), j.calls...), nil
}

func (j *memJournal) RecordCacheEntry(_ context.Context, entry model.CacheEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) CacheEntries(_ context.Context, limit int) ([]model.CacheEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.CacheEntry(nil), j.entries...), nil
}

func (j *memJournal) Close() error { return nil }

func newTestServer(t *testing.T, mutate func(*config.Config), deps Deps) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.ToolHome = t.TempDir()
	cfg.CacheDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewServer(cfg, deps)
}

func postRPC(t *testing.T, srv *Server, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, protocol.DefaultMCPPath, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(protocol.MCPSessionHeader, sessionID)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func initializeSession(t *testing.T, srv *Server) string {
	t.Helper()
	rr := postRPC(t, srv, "", `{"jsonrpc":"2.0","id":"init-1","method":"initialize","params":{}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("initialize failed status=%d body=%s", rr.Code, rr.Body.String())
	}
	sessionID := rr.Header().Get(protocol.MCPSessionHeader)
	if sessionID == "" {
		t.Fatal("missing MCP-Session-Id on initialize")
	}
	return sessionID
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v body=%s", err, rr.Body.String())
	}
	return resp
}

// decodeToolResult returns structuredContent and isError of a tools/call
// response.
func decodeToolResult(t *testing.T, rr *httptest.ResponseRecorder) (map[string]any, bool) {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got: %#v", resp)
	}
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("expected structuredContent object, got: %#v", result["structuredContent"])
	}
	content, ok := result["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("expected one content item, got: %#v", result["content"])
	}
	item, _ := content[0].(map[string]any)
	var fromText map[string]any
	if err := json.Unmarshal([]byte(item["text"].(string)), &fromText); err != nil {
		t.Fatalf("content text is not JSON: %v", err)
	}
	if fromText["success"] != structured["success"] {
		t.Fatalf("text and structuredContent disagree: %v vs %v", fromText["success"], structured["success"])
	}
	isError, _ := result["isError"].(bool)
	return structured, isError
}
