package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcptoolbox/internal/config"
	"mcptoolbox/internal/figma"
	"mcptoolbox/internal/markdown"
	"mcptoolbox/internal/protocol"
)

func newFigmaServer(t *testing.T, handler http.HandlerFunc) *figma.Client {
	t.Helper()
	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)
	client := figma.NewClient(figma.Options{APIKey: "test-token", BaseURL: api.URL})
	client.HTTPClient = api.Client()
	return client
}

func TestFigmaGetFile_WritesCacheAndJournal(t *testing.T) {
	var gotPath, gotQuery, gotToken string
	client := newFigmaServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotToken = r.URL.Path, r.URL.RawQuery, r.Header.Get("X-Figma-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Design","document":{"id":"0:0"}}`))
	})
	journal := &memJournal{}
	srv := newTestServer(t, nil, Deps{Figma: client, Journal: journal})

	res := srv.CallTool(context.Background(), protocol.ToolNameFigmaGetFile, map[string]interface{}{
		"file_key": "abc123",
		"depth":    float64(2),
	})
	if !res.OK() {
		t.Fatalf("unexpected failure: %#v", res.Fields())
	}
	if gotPath != "/files/abc123" || gotQuery != "depth=2" || gotToken != "test-token" {
		t.Fatalf("request path=%q query=%q token=%q", gotPath, gotQuery, gotToken)
	}

	fields := res.Fields()
	cachePath, _ := fields["file_path"].(string)
	if !strings.HasPrefix(filepath.Base(cachePath), "file_abc123_") || filepath.Ext(cachePath) != ".json" {
		t.Fatalf("unexpected cache path %q", cachePath)
	}
	if !strings.Contains(fields["message"].(string), "saved to local cache") {
		t.Fatalf("message=%v", fields["message"])
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	var cached map[string]any
	if err := json.Unmarshal(data, &cached); err != nil || cached["name"] != "Design" {
		t.Fatalf("cached payload=%s err=%v", data, err)
	}

	if len(journal.entries) != 1 || journal.entries[0].Kind != figma.CacheKindFile || journal.entries[0].ResourceKey != "abc123" {
		t.Fatalf("cache journal entries=%#v", journal.entries)
	}
	if len(journal.calls) != 1 || journal.calls[0].Tool != protocol.ToolNameFigmaGetFile || !journal.calls[0].Success {
		t.Fatalf("call journal=%#v", journal.calls)
	}
}

func TestFigmaErrors_AreUpstreamFailures(t *testing.T) {
	client := newFigmaServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"err":"Not found"}`))
	})
	journal := &memJournal{}
	srv := newTestServer(t, nil, Deps{Figma: client, Journal: journal})

	res := srv.CallTool(context.Background(), protocol.ToolNameFigmaGetComments, map[string]interface{}{"file_key": "missing"})
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.Message() != "Figma API error: Not found" || res.Kind() != "upstream_error" {
		t.Fatalf("message=%q kind=%q", res.Message(), res.Kind())
	}
	if len(journal.calls) != 1 || journal.calls[0].ErrorKind != "upstream_error" {
		t.Fatalf("call journal=%#v", journal.calls)
	}
}

func TestFigmaMissingAPIKey(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Figma.APIKey = "" }, Deps{})
	res := srv.CallTool(context.Background(), protocol.ToolNameFigmaGetStyle, map[string]interface{}{"key": "s1"})
	if res.OK() || res.Kind() != "config_error" || !strings.Contains(res.Message(), "FIGMA_API_KEY") {
		t.Fatalf("unexpected result: %#v", res.Fields())
	}
}

func TestFigmaPostComment_ClientMeta(t *testing.T) {
	var body map[string]any
	client := newFigmaServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/files/f1/comments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":"c1"}`))
	})
	srv := newTestServer(t, nil, Deps{Figma: client})

	res := srv.CallTool(context.Background(), protocol.ToolNameFigmaPostComment, map[string]interface{}{
		"file_key": "f1",
		"message":  "looks good",
		"client_meta": map[string]interface{}{
			"x":           float64(10),
			"y":           float64(20.5),
			"node_id":     "1:2",
			"node_offset": map[string]interface{}{"x": float64(1), "y": float64(2)},
		},
	})
	if !res.OK() || res.Fields()["id"] != "c1" {
		t.Fatalf("unexpected result: %#v", res.Fields())
	}
	meta, _ := body["client_meta"].(map[string]any)
	if body["message"] != "looks good" || meta["node_id"] != "1:2" || meta["y"] != 20.5 {
		t.Fatalf("unexpected body: %#v", body)
	}
	if _, ok := body["comment_id"]; ok {
		t.Fatalf("empty comment_id should be omitted: %#v", body)
	}

	res = srv.CallTool(context.Background(), protocol.ToolNameFigmaPostComment, map[string]interface{}{
		"file_key":    "f1",
		"message":     "hi",
		"client_meta": map[string]interface{}{"x": float64(1)},
	})
	if res.OK() || res.Message() != "client_meta.y is required" {
		t.Fatalf("expected client_meta validation failure, got %#v", res.Fields())
	}
}

func TestFigmaGetImage_Query(t *testing.T) {
	var gotQuery string
	client := newFigmaServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"images":{}}`))
	})
	srv := newTestServer(t, nil, Deps{Figma: client})

	res := srv.CallTool(context.Background(), protocol.ToolNameFigmaGetImage, map[string]interface{}{
		"file_key":       "f1",
		"ids":            []interface{}{"1:2", "3:4"},
		"scale":          float64(2),
		"format_type":    "svg",
		"svg_include_id": true,
	})
	if !res.OK() {
		t.Fatalf("unexpected failure: %#v", res.Fields())
	}
	if gotQuery != "ids=1:2,3:4&scale=2&format=svg&svg_include_id=true" {
		t.Fatalf("query=%q", gotQuery)
	}
}

func TestConvertFileToMarkdown(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	output := filepath.Join(dir, "out", "page.md")
	if err := os.WriteFile(input, []byte("<html><body><h1>Title</h1><p>Body <b>bold</b></p></body></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, nil, Deps{})

	res := srv.CallTool(context.Background(), protocol.ToolNameConvertFileToMarkdown, map[string]interface{}{
		"input_file":  input,
		"output_file": output,
	})
	if !res.OK() {
		t.Fatalf("unexpected failure: %#v", res.Fields())
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# Title") || !strings.Contains(string(data), "**bold**") {
		t.Fatalf("unexpected markdown:\n%s", data)
	}

	res = srv.CallTool(context.Background(), protocol.ToolNameConvertFileToMarkdown, map[string]interface{}{
		"input_file":  filepath.Join(dir, "missing.html"),
		"output_file": output,
	})
	if res.OK() || res.Kind() != "not_found" || !strings.HasPrefix(res.Message(), "Input file not found: ") {
		t.Fatalf("unexpected result: %#v", res.Fields())
	}
}

func TestConvertURLToMarkdown(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<ul><li>one</li><li>two</li></ul>"))
	}))
	defer site.Close()
	converter := markdown.NewConverter(nil)
	converter.HTTPClient = site.Client()
	srv := newTestServer(t, nil, Deps{Converter: converter})

	output := filepath.Join(t.TempDir(), "site.md")
	res := srv.CallTool(context.Background(), protocol.ToolNameConvertURLToMarkdown, map[string]interface{}{
		"url":         site.URL,
		"output_file": output,
	})
	if !res.OK() || res.Fields()["url"] != site.URL {
		t.Fatalf("unexpected result: %#v", res.Fields())
	}
	data, _ := os.ReadFile(output)
	if !strings.Contains(string(data), "- one") {
		t.Fatalf("unexpected markdown:\n%s", data)
	}

	res = srv.CallTool(context.Background(), protocol.ToolNameConvertURLToMarkdown, map[string]interface{}{
		"url":         "ftp://example.com/x",
		"output_file": output,
	})
	if res.OK() || res.Kind() != "invalid_parameter" {
		t.Fatalf("unexpected result: %#v", res.Fields())
	}
}

func TestCallTool_PanicIsContained(t *testing.T) {
	journal := &memJournal{}
	srv := newTestServer(t, nil, Deps{Journal: journal})
	tool := &Tool{
		Name:          "boom",
		InputSchema:   objectSchema(map[string]interface{}{}),
		failureFields: map[string]interface{}{"content": ""},
		handler: func(context.Context, map[string]interface{}) (map[string]interface{}, error) {
			panic("kaboom")
		},
	}
	srv.tools = append(srv.tools, tool)
	srv.toolIndex[tool.Name] = tool

	res := srv.CallTool(withSession(context.Background(), "s-1"), "boom", nil)
	if res.OK() || res.Kind() != "io_error" || res.Message() != "internal error" {
		t.Fatalf("unexpected result: %#v", res.Fields())
	}
	if res.Fields()["content"] != "" {
		t.Fatalf("failure fields should be kept: %#v", res.Fields())
	}
	if len(journal.calls) != 1 || journal.calls[0].SessionID != "s-1" || journal.calls[0].Success {
		t.Fatalf("journal=%#v", journal.calls)
	}
}

func TestWriteReplaceListRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "notes.txt")
	srv := newTestServer(t, nil, Deps{})
	ctx := context.Background()

	res := srv.CallTool(ctx, protocol.ToolNameWriteFileContent, map[string]interface{}{
		"path":    path,
		"content": "alpha beta alpha",
	})
	if !res.OK() || res.Fields()["size"] != int64(16) {
		t.Fatalf("write: %#v", res.Fields())
	}

	res = srv.CallTool(ctx, protocol.ToolNameReplaceInFile, map[string]interface{}{
		"path":        path,
		"pattern":     `(al)pha`,
		"replacement": `\1PHA`,
		"count":       float64(1),
	})
	if !res.OK() || res.Fields()["replacements"] != 1 {
		t.Fatalf("replace: %#v", res.Fields())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "alPHA beta alpha" {
		t.Fatalf("content=%q", data)
	}

	res = srv.CallTool(ctx, protocol.ToolNameListDirectory, map[string]interface{}{
		"path":      dir,
		"recursive": true,
	})
	if !res.OK() || res.Fields()["count"] != 2 {
		t.Fatalf("list: %#v", res.Fields())
	}
}
