// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "job1", "horror"))

	rec, err := s.Get(ctx, "job1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "horror", rec.Style)
	assert.Equal(t, "pending", rec.State)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestGetUnknownReturnsNil(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDuplicateCreateFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "job1", ""))
	assert.Error(t, s.Create(ctx, "job1", ""))
}

func TestSetState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "job1", ""))

	require.NoError(t, s.SetState(ctx, "job1", "rendering"))
	rec, err := s.Get(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, "rendering", rec.State)

	assert.ErrorIs(t, s.SetState(ctx, "missing", "rendering"), sql.ErrNoRows)
}

func TestFinishRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "job1", "tech"))

	warnings := []string{"scene 2 dropped", "no music found"}
	require.NoError(t, s.Finish(ctx, "job1", "succeeded", "/out/final.mp4", 42*time.Second, 1080, 1920, warnings, ""))

	rec, err := s.Get(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", rec.State)
	assert.Equal(t, "/out/final.mp4", rec.Output)
	assert.Equal(t, int64(42000), rec.DurationMS)
	assert.Equal(t, 1080, rec.Width)
	assert.Equal(t, warnings, rec.Warnings)
	assert.Empty(t, rec.Error)
}

func TestFinishFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "job1", ""))
	require.NoError(t, s.Finish(ctx, "job1", "failed", "", 0, 0, 0, nil, "no valid scenes"))

	rec, err := s.Get(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, "failed", rec.State)
	assert.Equal(t, "no valid scenes", rec.Error)
	assert.Nil(t, rec.Warnings)
}

func TestRecentOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, id, ""))
		time.Sleep(5 * time.Millisecond)
	}

	recs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), "job1", "lofi"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.Get(context.Background(), "job1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "lofi", rec.Style)
}
