package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebateRuns(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	run, err := store.CreateDebateRun(ctx, CreateDebateRunParams{
		Mode:          "develop",
		Idea:          sql.NullString{String: "a chaebol heir returns to 1997", Valid: true},
		MaxRounds:     3,
		PassThreshold: 85,
		Retention:     "last",
	})
	require.NoError(t, err)
	assert.NotZero(t, run.ID)
	assert.Equal(t, "running", run.Status)
	assert.False(t, run.Passed)
	assert.False(t, run.FinishedAt.Valid)

	for i, score := range []int64{60, 90} {
		_, err := store.CreateDebateRound(ctx, CreateDebateRoundParams{
			RunID:  run.ID,
			Round:  int64(i + 1),
			Score:  score,
			Passed: score >= 85,
			Title:  sql.NullString{String: "Ledger", Valid: true},
		})
		require.NoError(t, err)
	}

	_, err = store.CreateDebateRound(ctx, CreateDebateRoundParams{RunID: run.ID, Round: 1})
	assert.Error(t, err, "round numbers are unique per run")

	rounds, err := store.ListDebateRounds(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, int64(1), rounds[0].Round)
	assert.Equal(t, int64(90), rounds[1].Score)
	assert.True(t, rounds[1].Passed)

	err = store.FinishDebateRun(ctx, FinishDebateRunParams{
		ID:         run.ID,
		Status:     "passed",
		Passed:     true,
		FinalRound: sql.NullInt64{Int64: 2, Valid: true},
		FinalScore: sql.NullInt64{Int64: 90, Valid: true},
		Title:      sql.NullString{String: "Ledger", Valid: true},
		PlanPath:   sql.NullString{String: "studio/x/Approved_Plan_v1.json", Valid: true},
	})
	require.NoError(t, err)

	got, err := store.GetDebateRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "passed", got.Status)
	assert.True(t, got.Passed)
	assert.Equal(t, int64(90), got.FinalScore.Int64)
	assert.True(t, got.FinishedAt.Valid)

	avg, err := store.AverageFinalScore(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 90.0, avg.Float64, 0.001)
}

func TestListDebateRuns(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	for _, mode := range []string{"new", "develop", "rescue"} {
		_, err := store.CreateDebateRun(ctx, CreateDebateRunParams{
			Mode: mode, MaxRounds: 3, PassThreshold: 85, Retention: "last",
		})
		require.NoError(t, err)
	}

	runs, err := store.ListDebateRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "rescue", runs[0].Mode)
	assert.Equal(t, "develop", runs[1].Mode)

	count, err := store.CountDebateRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	byStatus, err := store.CountDebateRunsByStatus(ctx)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, CountDebateRunsByStatusRow{Status: "running", Count: 3}, byStatus[0])

	avg, err := store.AverageFinalScore(ctx)
	require.NoError(t, err)
	assert.False(t, avg.Valid)
}

func TestDeleteRunCascadesRounds(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	run, err := store.CreateDebateRun(ctx, CreateDebateRunParams{Mode: "new", MaxRounds: 1, PassThreshold: 85, Retention: "last"})
	require.NoError(t, err)
	_, err = store.CreateDebateRound(ctx, CreateDebateRoundParams{RunID: run.ID, Round: 1})
	require.NoError(t, err)

	_, err = store.ExecContext(ctx, "DELETE FROM debate_runs WHERE id = ?", run.ID)
	require.NoError(t, err)

	rounds, err := store.ListDebateRounds(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, rounds)
}

func TestConfigValues(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetConfig(ctx, SetConfigParams{Key: "pass_threshold", Value: "90"}))
	require.NoError(t, store.SetConfig(ctx, SetConfigParams{Key: "planner_model", Value: "gemini-3-pro"}))

	val, err := store.GetConfig(ctx, "pass_threshold")
	require.NoError(t, err)
	assert.Equal(t, "90", val)

	val, err = store.GetConfig(ctx, "planner_model")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro", val)

	_, err = store.GetConfig(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.SetConfig(ctx, SetConfigParams{Key: "pass_threshold", Value: "75"}))
	all, err := store.ListConfig(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "pass_threshold", all[0].Key)
	assert.Equal(t, "75", all[0].Value)

	require.NoError(t, store.DeleteConfig(ctx, "pass_threshold"))
	_, err = store.GetConfig(ctx, "pass_threshold")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
