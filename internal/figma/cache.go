package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"mcptoolbox/internal/model"
)

const (
	CacheKindFile      = "file"
	CacheKindFileNodes = "file_nodes"
)

var cacheMessages = map[string]string{
	CacheKindFile:      "File data saved to local cache. Use this file path to access the complete data.",
	CacheKindFileNodes: "File nodes data saved to local cache. Use this file path to access the complete data.",
}

// Cache writes large API payloads to disk so callers can read them with the
// file tools instead of receiving them inline. Files are never read back or
// expired.
type Cache struct {
	Dir     string
	Journal model.Journal
	Logger  *zap.Logger

	now func() time.Time
}

func NewCache(dir string, journal model.Journal, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{Dir: dir, Journal: journal, Logger: logger, now: time.Now}
}

// Save writes payload as indented JSON to <dir>/<kind>_<key>_<unix ms>.json
// and returns the absolute path.
func (c *Cache) Save(ctx context.Context, kind, key string, payload map[string]any) (string, error) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now()
	if c.now != nil {
		now = c.now()
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%d.json", kind, filepath.Base(key), now.UnixMilli())
	path, err := filepath.Abs(filepath.Join(c.Dir, name))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	if c.Journal != nil {
		entry := model.CacheEntry{
			Path:        path,
			Kind:        kind,
			ResourceKey: key,
			SizeBytes:   int64(len(data)),
			CreatedAt:   now,
		}
		if err := c.Journal.RecordCacheEntry(ctx, entry); err != nil {
			c.Logger.Warn("failed to record cache entry", zap.String("path", path), zap.Error(err))
		}
	}
	return path, nil
}

// Store saves payload and returns the fields a tool reports: the cache file
// path and a hint message. When the write fails the payload itself is
// returned.
func (c *Cache) Store(ctx context.Context, kind, key string, payload map[string]any) map[string]any {
	path, err := c.Save(ctx, kind, key, payload)
	if err != nil {
		c.Logger.Warn("figma cache write failed, returning payload inline", zap.String("kind", kind), zap.Error(err))
		return payload
	}
	return map[string]any{
		"file_path": path,
		"message":   cacheMessages[kind],
	}
}
