package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mcptoolbox/internal/model"
)

// WriteRequest describes a write_file_content call.
type WriteRequest struct {
	Path     string
	Content  string
	Encoding string
	Append   bool
}

// WriteResult reports the file after a successful write.
type WriteResult struct {
	Path         string
	Size         int64
	LastModified time.Time
}

func (r *WriteResult) Fields() map[string]any {
	return map[string]any{
		"path":          r.Path,
		"size":          r.Size,
		"last_modified": r.LastModified.Format(time.RFC3339),
	}
}

// WriteFile encodes req.Content and writes it to req.Path, creating parent
// directories as needed. The file is truncated unless req.Append is set.
func WriteFile(req WriteRequest) (*WriteResult, error) {
	path := ExpandPath(req.Path)
	fail := func(err error) error {
		return &model.ToolError{
			Kind:    model.KindOf(err),
			Message: "Failed to write file: " + err.Error(),
			Fields:  map[string]any{"path": req.Path},
			Cause:   err,
		}
	}

	enc, err := LookupEncoding(req.Encoding)
	if err != nil {
		return nil, fail(err)
	}
	data, err := encodeStrict(enc, req.Content)
	if err != nil {
		return nil, fail(fmt.Errorf("encode with %s: %w", req.Encoding, err))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fail(err)
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if req.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fail(err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fail(err)
	}
	if err := f.Close(); err != nil {
		return nil, fail(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fail(err)
	}
	return &WriteResult{Path: path, Size: info.Size(), LastModified: info.ModTime()}, nil
}
