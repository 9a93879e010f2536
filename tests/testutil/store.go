// Package testutil holds fixtures shared by the store-backed tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/jira-bridge/internal/store"
)

// NewTestStore opens an in-memory store with every migration applied and
// closes it when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test store")

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

// SeedCursor records a sync cursor for host and query as if a previous
// sync had started at at.
func SeedCursor(t *testing.T, s store.Store, host, query string, at time.Time) {
	t.Helper()
	require.NoError(t, s.SetCursor(context.Background(), host, query, at), "seeding cursor")
}
