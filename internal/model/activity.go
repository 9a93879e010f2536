package model

import "time"

// ActivityKind names a write operation performed against the tracker.
type ActivityKind string

const (
	ActivityComment ActivityKind = "comment"
	ActivityReopen  ActivityKind = "reopen"
)

// Activity is a local record of a write sent to the tracker.
type Activity struct {
	// ID is the unique identifier for this record.
	ID string `db:"id" json:"id"`

	// Host is the tracker base URL the write went to.
	Host string `db:"host" json:"host"`

	// IssueKey is the issue the write targeted.
	IssueKey string `db:"issue_key" json:"issue_key"`

	Kind ActivityKind `db:"kind" json:"kind"`

	// Detail holds the comment body, or the reopen outcome.
	Detail string `db:"detail" json:"detail"`

	// Applied is false when the tracker was left unchanged, e.g. a reopen
	// with no reopen transition available.
	Applied bool `db:"applied" json:"applied"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SyncCursor records the last successful incremental fetch for a query.
type SyncCursor struct {
	Host     string    `db:"host"`
	Query    string    `db:"query"`
	SyncedAt time.Time `db:"synced_at"`
}
