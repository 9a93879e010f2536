package store

import (
	"context"
	"time"

	"github.com/nhle/jira-bridge/internal/model"
)

// Store defines the persistence interface for sync cursors and the local
// activity log. Fetched issues are never persisted.
type Store interface {
	// === Sync cursors ===

	// GetCursor returns the last sync time for (host, query). ok is false
	// when no sync has completed yet.
	GetCursor(ctx context.Context, host, query string) (t time.Time, ok bool, err error)
	SetCursor(ctx context.Context, host, query string, t time.Time) error
	DeleteCursor(ctx context.Context, host, query string) error

	// === Activity log ===

	RecordActivity(ctx context.Context, a model.Activity) error
	ListActivity(ctx context.Context, filter ActivityFilter) ([]model.Activity, error)
}

// ActivityFilter narrows ListActivity results.
type ActivityFilter struct {
	IssueKey *string
	Kind     *model.ActivityKind
	Limit    int
}
