package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/training"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func success(id string) training.Success {
	score := 0.9
	return training.Success{Envelope: training.Envelope{
		RunID:     id,
		ModelName: training.ModelSVM,
		Tier:      training.TierBalance,
		Metrics:   map[string]float64{training.MetricAccuracy: 0.95},
		PlotPath:  "plotting/" + id + ".png",
		Search:    training.SearchSummary{Strategy: training.StrategyGridCV, Candidates: 24, Folds: 5, BestScore: &score},
	}}
}

func TestSaveGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, "alice", success("run-1"))
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
	assert.True(t, rec.Flag)

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, training.ModelSVM, got.ModelName)
	assert.Equal(t, training.TierBalance, got.Tier)
	assert.Equal(t, "alice", got.Owner)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Microsecond)

	env := got.Result.(training.Success).Envelope
	assert.Equal(t, 0.95, env.Metrics[training.MetricAccuracy])
	assert.Equal(t, "plotting/run-1.png", env.PlotPath)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Save(ctx, "alice", success("run-1"))
	assert.Error(t, err, "duplicate id")
}

func TestSaveFailure(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	f := training.Failure{RunID: "run-f", ModelName: training.ModelKMeans, Tier: training.TierFast, Message: "boom"}
	_, err := s.Save(ctx, "bob", f)
	require.NoError(t, err)

	got, err := s.Get(ctx, "run-f")
	require.NoError(t, err)
	assert.False(t, got.Flag)
	assert.Equal(t, f, got.Result)

	_, err = s.Save(ctx, "bob", training.Failure{ModelName: training.ModelKMeans})
	var invalid *errors.ValueError
	assert.True(t, errors.As(err, &invalid))
}

func TestList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, r := range []struct {
		owner, id string
	}{{"alice", "a1"}, {"bob", "b1"}, {"alice", "a2"}} {
		_, err := s.Save(ctx, r.owner, success(r.id))
		require.NoError(t, err)
	}

	alice, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "a2", alice[0].ID, "newest first")
	assert.Equal(t, "a1", alice[1].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.List(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewDoesNotOwnConnection(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	s, err := New(db, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// 呼び出し側の接続はまだ使える
	require.NoError(t, db.Ping())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Save(context.Background(), "", success("nested"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}
