package fileops

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"mcptoolbox/internal/model"
)

const DefaultChunkSize int64 = 1_000_000

// ChunkRequest addresses one chunk of a file.
type ChunkRequest struct {
	Path       string
	Encoding   string
	ChunkSize  int64
	ChunkIndex int64
}

// Chunk is a decoded byte range of a file.
type Chunk struct {
	Content         string
	Size            int64
	ChunkSize       int64
	ChunkIndex      int64
	ChunkActualSize int64
	TotalChunks     int64
	IsLastChunk     bool
	Encoding        string
	LastModified    time.Time
}

// Fields renders the chunk as tool result fields.
func (c *Chunk) Fields() map[string]any {
	return map[string]any{
		"content":           c.Content,
		"size":              c.Size,
		"chunk_size":        c.ChunkSize,
		"chunk_index":       c.ChunkIndex,
		"chunk_actual_size": c.ChunkActualSize,
		"total_chunks":      c.TotalChunks,
		"is_last_chunk":     c.IsLastChunk,
		"encoding":          c.Encoding,
		"last_modified":     c.LastModified.Format(time.RFC3339),
	}
}

// ChunkRangeError reports a chunk index outside [0, TotalChunks).
type ChunkRangeError struct {
	Index       int64
	TotalChunks int64
	FileSize    int64
}

func (e *ChunkRangeError) Error() string {
	return fmt.Sprintf("Invalid chunk index: %d. Valid range is 0 to %d", e.Index, e.TotalChunks-1)
}

// Unwrap exposes the classified form so model.KindOf and model.FromError see
// the range fields.
func (e *ChunkRangeError) Unwrap() error {
	return &model.ToolError{
		Kind:    model.KindInvalidParameter,
		Message: e.Error(),
		Fields: map[string]any{
			"total_chunks": e.TotalChunks,
			"file_size":    e.FileSize,
		},
	}
}

// TotalChunks is ceil(size/chunkSize), with an empty file counting as one
// empty chunk.
func TotalChunks(size, chunkSize int64) int64 {
	if size <= 0 {
		return 1
	}
	return (size-1)/chunkSize + 1
}

// ReadChunk reads chunk req.ChunkIndex of req.Path and decodes it with
// req.Encoding. When the encoding cannot be used the raw bytes are returned
// base64 encoded and Encoding is labelled "base64 (original: <name>)".
func ReadChunk(req ChunkRequest) (*Chunk, error) {
	path := ExpandPath(req.Path)
	encName := req.Encoding
	if encName == "" {
		encName = DefaultEncoding
	}

	info, err := statRegularFile(path, req.Path, "Failed to read file: ")
	if err != nil {
		return nil, err
	}
	if req.ChunkSize < 1 {
		return nil, model.NewToolError(model.KindInvalidParameter, "chunk_size must be >= 1", nil)
	}

	size := info.Size()
	total := TotalChunks(size, req.ChunkSize)
	if req.ChunkIndex < 0 || req.ChunkIndex >= total {
		return nil, &ChunkRangeError{Index: req.ChunkIndex, TotalChunks: total, FileSize: size}
	}

	offset := req.ChunkIndex * req.ChunkSize
	raw, err := readRange(path, offset, min(req.ChunkSize, size-offset))
	if err != nil {
		return nil, &model.ToolError{
			Kind:    model.KindOf(err),
			Message: "Failed to read file: " + err.Error(),
			Cause:   err,
		}
	}

	content, label := decodeChunk(raw, encName)
	return &Chunk{
		Content:         content,
		Size:            size,
		ChunkSize:       req.ChunkSize,
		ChunkIndex:      req.ChunkIndex,
		ChunkActualSize: int64(len(raw)),
		TotalChunks:     total,
		IsLastChunk:     req.ChunkIndex == total-1,
		Encoding:        label,
		LastModified:    info.ModTime(),
	}, nil
}

func readRange(path string, offset, n int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	// The file may have shrunk since it was stat'ed.
	return buf[:read], nil
}

func decodeChunk(raw []byte, encName string) (string, string) {
	enc, err := LookupEncoding(encName)
	if err == nil {
		if text, decErr := decodeLossy(enc, raw); decErr == nil {
			return text, encName
		}
	}
	return base64.StdEncoding.EncodeToString(raw), fmt.Sprintf("base64 (original: %s)", encName)
}

// statRegularFile stats path and classifies a missing path and a path that
// is not a regular file. Messages quote display, the path as the caller gave it.
func statRegularFile(path, display, failurePrefix string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.NewToolError(model.KindNotFound, "File not found: "+display, err)
		}
		return nil, &model.ToolError{Kind: model.KindOf(err), Message: failurePrefix + err.Error(), Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, model.NewToolError(model.KindWrongType, "Path is not a file: "+display, nil)
	}
	return info, nil
}
