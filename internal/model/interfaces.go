package model

import (
	"context"
	"time"
)

// CallRecord is one journaled tool invocation.
type CallRecord struct {
	ID         int64
	SessionID  string
	Tool       string
	Success    bool
	ErrorKind  ErrorKind
	Error      string
	DurationMS int64
	CalledAt   time.Time
}

// CacheEntry is one response payload written to the on-disk cache.
type CacheEntry struct {
	Path        string
	Kind        string
	ResourceKey string
	SizeBytes   int64
	CreatedAt   time.Time
}

// Journal records tool activity. Implementations must be safe for
// concurrent use.
type Journal interface {
	RecordCall(ctx context.Context, rec CallRecord) error
	RecentCalls(ctx context.Context, limit int) ([]CallRecord, error)
	RecordCacheEntry(ctx context.Context, entry CacheEntry) error
	CacheEntries(ctx context.Context, limit int) ([]CacheEntry, error)
	Close() error
}
