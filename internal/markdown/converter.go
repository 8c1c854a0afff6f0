// Package markdown converts local documents and web pages to Markdown.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"mcptoolbox/internal/fileops"
	"mcptoolbox/internal/model"
)

const (
	DefaultMaxBytes     int64 = 10 << 20
	DefaultFetchTimeout       = 60 * time.Second

	userAgent = "mcp-toolbox/1.0 (+markdown converter)"
)

type documentKind string

const (
	kindHTML     documentKind = "html"
	kindText     documentKind = "text"
	kindMarkdown documentKind = "markdown"
	kindJSON     documentKind = "json"
	kindCSV      documentKind = "csv"
	kindTSV      documentKind = "tsv"
)

// Converter turns documents into Markdown.
type Converter struct {
	HTTPClient *http.Client
	// MaxBytes caps a fetched response body.
	MaxBytes int64

	logger *zap.Logger
}

func NewConverter(logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		HTTPClient: &http.Client{Timeout: DefaultFetchTimeout},
		MaxBytes:   DefaultMaxBytes,
		logger:     logger,
	}
}

// FileResult reports a converted local file.
type FileResult struct {
	InputFile  string
	OutputFile string
}

func (r *FileResult) Fields() map[string]any {
	return map[string]any{"input_file": r.InputFile, "output_file": r.OutputFile}
}

// URLResult reports a converted web page.
type URLResult struct {
	URL        string
	OutputFile string
}

func (r *URLResult) Fields() map[string]any {
	return map[string]any{"url": r.URL, "output_file": r.OutputFile}
}

// ConvertFile converts inputFile and writes the Markdown to outputFile.
func (c *Converter) ConvertFile(ctx context.Context, inputFile, outputFile string) (*FileResult, error) {
	input := fileops.AbsPath(inputFile)
	output := fileops.AbsPath(outputFile)

	info, err := os.Stat(input)
	if err != nil || !info.Mode().IsRegular() {
		kind := model.KindNotFound
		if err == nil {
			kind = model.KindWrongType
		}
		return nil, model.NewToolError(kind, "Input file not found: "+filepath.ToSlash(input), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}
	md, err := Convert(data, "", filepath.Ext(input))
	if err != nil {
		return nil, err
	}
	if err := writeOutput(output, md); err != nil {
		return nil, err
	}
	c.logger.Debug("converted file", zap.String("input", input), zap.String("output", output), zap.Int("bytes", len(md)))
	return &FileResult{InputFile: filepath.ToSlash(input), OutputFile: filepath.ToSlash(output)}, nil
}

// ConvertURL fetches rawURL and writes the Markdown rendering to outputFile.
func (c *Converter) ConvertURL(ctx context.Context, rawURL, outputFile string) (*URLResult, error) {
	output := fileops.AbsPath(outputFile)

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, model.NewToolError(model.KindInvalidParameter, "invalid url: "+err.Error(), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, model.NewToolError(model.KindInvalidParameter, fmt.Sprintf("unsupported url scheme: %q", parsed.Scheme), nil)
	}

	data, contentType, err := c.fetch(ctx, parsed.String())
	if err != nil {
		return nil, err
	}
	md, err := Convert(data, contentType, filepath.Ext(parsed.Path))
	if err != nil {
		return nil, err
	}
	if err := writeOutput(output, md); err != nil {
		return nil, err
	}
	c.logger.Debug("converted url", zap.String("url", rawURL), zap.String("output", output), zap.Int("bytes", len(md)))
	return &URLResult{URL: rawURL, OutputFile: filepath.ToSlash(output)}, nil
}

func (c *Converter) fetch(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", model.NewToolError(model.KindInvalidParameter, "invalid url: "+err.Error(), err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,text/markdown,application/json,text/csv;q=0.9,*/*;q=0.8")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultFetchTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", &model.ProviderError{Code: "FETCH_FAILED", Message: "failed to fetch URL: " + err.Error(), Retryable: true, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &model.ProviderError{
			Code:       "FETCH_FAILED",
			Message:    fmt.Sprintf("failed to fetch URL: HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Retryable:  resp.StatusCode >= http.StatusInternalServerError,
			StatusCode: resp.StatusCode,
		}
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", &model.ProviderError{Code: "FETCH_FAILED", Message: "failed to read response: " + err.Error(), StatusCode: resp.StatusCode, Cause: err}
	}
	if int64(len(data)) > limit {
		return nil, "", &model.ProviderError{
			Code:       "FETCH_TOO_LARGE",
			Message:    fmt.Sprintf("response body exceeds %d bytes", limit),
			StatusCode: resp.StatusCode,
		}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Convert renders data as Markdown. contentType (optional) takes precedence
// over sniffing; ext refines plain text detection.
func Convert(data []byte, contentType, ext string) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	kind, label := detectKind(data, contentType, ext)
	switch kind {
	case kindHTML:
		r, err := charset.NewReader(bytes.NewReader(data), contentType)
		if err != nil {
			return "", fmt.Errorf("detect html charset: %w", err)
		}
		return htmlToMarkdown(r)
	case kindJSON:
		md, err := jsonToMarkdown(data)
		if err != nil {
			return "", model.NewToolError(model.KindDecodeFailure, "invalid JSON document: "+err.Error(), err)
		}
		return md, nil
	case kindCSV, kindTSV:
		comma := ','
		if kind == kindTSV {
			comma = '\t'
		}
		md, err := delimitedToMarkdown(decodeText(data, contentType), comma)
		if err != nil {
			return "", model.NewToolError(model.KindDecodeFailure, "invalid delimited document: "+err.Error(), err)
		}
		return md, nil
	case kindText, kindMarkdown:
		return textToMarkdown(string(decodeText(data, contentType))), nil
	default:
		return "", model.NewToolError(model.KindInvalidParameter, "unsupported document type: "+label, nil)
	}
}

func detectKind(data []byte, contentType, ext string) (documentKind, string) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if kind, ok := kindForMediaType(mediaType); ok {
			return kind, mediaType
		}
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if kind, ok := kindForMediaType(m.String()); ok {
			if kind == kindText {
				if byExt, ok := kindForExtension(ext); ok {
					return byExt, detected.String()
				}
			}
			return kind, detected.String()
		}
	}
	return "", detected.String()
}

func kindForMediaType(mediaType string) (documentKind, bool) {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return kindHTML, true
	case "application/json", "text/json", "application/ld+json", "application/geo+json":
		return kindJSON, true
	case "text/csv":
		return kindCSV, true
	case "text/tab-separated-values":
		return kindTSV, true
	case "text/markdown", "text/x-markdown":
		return kindMarkdown, true
	case "text/plain":
		return kindText, true
	}
	return "", false
}

func kindForExtension(ext string) (documentKind, bool) {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return kindMarkdown, true
	case ".csv":
		return kindCSV, true
	case ".tsv", ".tab":
		return kindTSV, true
	case ".json":
		return kindJSON, true
	case ".html", ".htm", ".xhtml":
		return kindHTML, true
	}
	return "", false
}

// decodeText converts data to UTF-8 when it is not already valid UTF-8,
// using the declared or sniffed charset.
func decodeText(data []byte, contentType string) []byte {
	if utf8.Valid(data) {
		return data
	}
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return out
}

func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
