package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stackman/internal/core/domain"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func testRun(env string, startedAt time.Time, success bool) domain.DeployRun {
	return domain.DeployRun{
		ID:          uuid.New().String(),
		Environment: env,
		Strategy:    "recreate",
		Success:     success,
		Outcome:     "deployment completed",
		StartedAt:   startedAt,
		FinishedAt:  startedAt.Add(30 * time.Second),
	}
}

func TestHistory_AppendAndList(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	older := testRun("staging", base, true)
	newer := testRun("prod", base.Add(time.Hour), false)
	newer.RolledBack = true

	require.NoError(t, h.Append(ctx, older))
	require.NoError(t, h.Append(ctx, newer))

	runs, err := h.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, "prod", runs[0].Environment)
	assert.False(t, runs[0].Success)
	assert.True(t, runs[0].RolledBack)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.True(t, runs[1].Success)
}

func TestHistory_ListLimit(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Append(ctx, testRun("prod", base.Add(time.Duration(i)*time.Minute), true)))
	}

	runs, err := h.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestHistory_ListEmpty(t *testing.T) {
	h := openTestHistory(t)

	runs, err := h.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHistory_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "history.db")

	h, err := OpenHistory(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, h.Append(context.Background(), testRun("prod", time.Now().UTC(), true)))
	require.NoError(t, h.Close())

	// Reopening runs migrations again against an up-to-date schema.
	h, err = OpenHistory(dsn, nil)
	require.NoError(t, err)
	defer h.Close()

	runs, err := h.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
