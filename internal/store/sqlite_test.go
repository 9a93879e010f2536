package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/jira-bridge/internal/model"
	"github.com/nhle/jira-bridge/internal/store"
	"github.com/nhle/jira-bridge/tests/testutil"
)

const host = "https://jira.example.com"

func TestCursor_MissingIsNotAnError(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, ok, err := s.GetCursor(context.Background(), host, "project = ACME")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCursor_SetAndReplace(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)

	require.NoError(t, s.SetCursor(ctx, host, "project = ACME", first))
	require.NoError(t, s.SetCursor(ctx, host, "project = ACME", second))

	got, ok, err := s.GetCursor(ctx, host, "project = ACME")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, second.Equal(got), "want %v, got %v", second, got)
}

func TestCursor_KeyedByHostAndQuery(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.SetCursor(ctx, host, "project = ACME", at))

	_, ok, err := s.GetCursor(ctx, host, "project = OTHER")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetCursor(ctx, "https://other.example.com", "project = ACME")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCursor_Delete(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCursor(ctx, host, "q", time.Now()))
	require.NoError(t, s.DeleteCursor(ctx, host, "q"))

	_, ok, err := s.GetCursor(ctx, host, "q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestActivity_RecordAndList(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordActivity(ctx, model.Activity{
		Host: host, IssueKey: "ACME-1", Kind: model.ActivityComment,
		Detail: "first", Applied: true, CreatedAt: base,
	}))
	require.NoError(t, s.RecordActivity(ctx, model.Activity{
		Host: host, IssueKey: "ACME-2", Kind: model.ActivityReopen,
		Detail: "no reopen action", Applied: false, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, s.RecordActivity(ctx, model.Activity{
		Host: host, IssueKey: "ACME-1", Kind: model.ActivityReopen,
		Detail: "Reopen Issue", Applied: true, CreatedAt: base.Add(2 * time.Minute),
	}))

	all, err := s.ListActivity(ctx, store.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ACME-1", all[0].IssueKey, "newest first")
	assert.Equal(t, model.ActivityReopen, all[0].Kind)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[1].Applied)

	key := "ACME-1"
	byKey, err := s.ListActivity(ctx, store.ActivityFilter{IssueKey: &key})
	require.NoError(t, err)
	assert.Len(t, byKey, 2)

	kind := model.ActivityComment
	byKind, err := s.ListActivity(ctx, store.ActivityFilter{IssueKey: &key, Kind: &kind})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "first", byKind[0].Detail)

	limited, err := s.ListActivity(ctx, store.ActivityFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActivity_RejectsUnknownKind(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.RecordActivity(context.Background(), model.Activity{
		Host: host, IssueKey: "ACME-1", Kind: "delete",
	})
	assert.Error(t, err)
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bridge.db")
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetCursor(ctx, host, "q", at))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, ok, err := s.GetCursor(ctx, host, "q")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, at.Equal(got))
}
