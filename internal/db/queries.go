package db

import (
	"context"
	"database/sql"
)

const debateRunColumns = `id, mode, idea, max_rounds, pass_threshold, retention, status, passed,
	final_round, final_score, title, plan_path, error, started_at, finished_at`

func scanDebateRun(row interface{ Scan(...interface{}) error }) (DebateRun, error) {
	var i DebateRun
	err := row.Scan(
		&i.ID,
		&i.Mode,
		&i.Idea,
		&i.MaxRounds,
		&i.PassThreshold,
		&i.Retention,
		&i.Status,
		&i.Passed,
		&i.FinalRound,
		&i.FinalScore,
		&i.Title,
		&i.PlanPath,
		&i.Error,
		&i.StartedAt,
		&i.FinishedAt,
	)
	return i, err
}

const createDebateRun = `-- name: CreateDebateRun :one
INSERT INTO debate_runs (mode, idea, max_rounds, pass_threshold, retention)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + debateRunColumns

type CreateDebateRunParams struct {
	Mode          string         `json:"mode"`
	Idea          sql.NullString `json:"idea"`
	MaxRounds     int64          `json:"max_rounds"`
	PassThreshold int64          `json:"pass_threshold"`
	Retention     string         `json:"retention"`
}

func (q *Queries) CreateDebateRun(ctx context.Context, arg CreateDebateRunParams) (DebateRun, error) {
	row := q.db.QueryRowContext(ctx, createDebateRun,
		arg.Mode,
		arg.Idea,
		arg.MaxRounds,
		arg.PassThreshold,
		arg.Retention,
	)
	return scanDebateRun(row)
}

const finishDebateRun = `-- name: FinishDebateRun :exec
UPDATE debate_runs
SET status = ?, passed = ?, final_round = ?, final_score = ?, title = ?, plan_path = ?, error = ?,
    finished_at = CURRENT_TIMESTAMP
WHERE id = ?`

type FinishDebateRunParams struct {
	Status     string         `json:"status"`
	Passed     bool           `json:"passed"`
	FinalRound sql.NullInt64  `json:"final_round"`
	FinalScore sql.NullInt64  `json:"final_score"`
	Title      sql.NullString `json:"title"`
	PlanPath   sql.NullString `json:"plan_path"`
	Error      sql.NullString `json:"error"`
	ID         int64          `json:"id"`
}

func (q *Queries) FinishDebateRun(ctx context.Context, arg FinishDebateRunParams) error {
	_, err := q.db.ExecContext(ctx, finishDebateRun,
		arg.Status,
		arg.Passed,
		arg.FinalRound,
		arg.FinalScore,
		arg.Title,
		arg.PlanPath,
		arg.Error,
		arg.ID,
	)
	return err
}

const getDebateRun = `-- name: GetDebateRun :one
SELECT ` + debateRunColumns + ` FROM debate_runs WHERE id = ?`

func (q *Queries) GetDebateRun(ctx context.Context, id int64) (DebateRun, error) {
	return scanDebateRun(q.db.QueryRowContext(ctx, getDebateRun, id))
}

const listDebateRuns = `-- name: ListDebateRuns :many
SELECT ` + debateRunColumns + ` FROM debate_runs
ORDER BY id DESC
LIMIT ?`

func (q *Queries) ListDebateRuns(ctx context.Context, limit int64) ([]DebateRun, error) {
	rows, err := q.db.QueryContext(ctx, listDebateRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DebateRun
	for rows.Next() {
		i, err := scanDebateRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countDebateRuns = `-- name: CountDebateRuns :one
SELECT COUNT(*) FROM debate_runs`

func (q *Queries) CountDebateRuns(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countDebateRuns)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countDebateRunsByStatus = `-- name: CountDebateRunsByStatus :many
SELECT status, COUNT(*) AS count FROM debate_runs
GROUP BY status
ORDER BY count DESC, status`

type CountDebateRunsByStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountDebateRunsByStatus(ctx context.Context) ([]CountDebateRunsByStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countDebateRunsByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountDebateRunsByStatusRow
	for rows.Next() {
		var i CountDebateRunsByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const averageFinalScore = `-- name: AverageFinalScore :one
SELECT AVG(final_score) FROM debate_runs WHERE final_score IS NOT NULL`

func (q *Queries) AverageFinalScore(ctx context.Context) (sql.NullFloat64, error) {
	row := q.db.QueryRowContext(ctx, averageFinalScore)
	var avg sql.NullFloat64
	err := row.Scan(&avg)
	return avg, err
}

const createDebateRound = `-- name: CreateDebateRound :one
INSERT INTO debate_rounds (
    run_id, round, score, passed, title, feedback, improvement_notes, generate_error, critique_error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, run_id, round, score, passed, title, feedback, improvement_notes,
    generate_error, critique_error, created_at`

type CreateDebateRoundParams struct {
	RunID            int64          `json:"run_id"`
	Round            int64          `json:"round"`
	Score            int64          `json:"score"`
	Passed           bool           `json:"passed"`
	Title            sql.NullString `json:"title"`
	Feedback         sql.NullString `json:"feedback"`
	ImprovementNotes sql.NullString `json:"improvement_notes"`
	GenerateError    sql.NullString `json:"generate_error"`
	CritiqueError    sql.NullString `json:"critique_error"`
}

func (q *Queries) CreateDebateRound(ctx context.Context, arg CreateDebateRoundParams) (DebateRound, error) {
	row := q.db.QueryRowContext(ctx, createDebateRound,
		arg.RunID,
		arg.Round,
		arg.Score,
		arg.Passed,
		arg.Title,
		arg.Feedback,
		arg.ImprovementNotes,
		arg.GenerateError,
		arg.CritiqueError,
	)
	var i DebateRound
	err := row.Scan(
		&i.ID,
		&i.RunID,
		&i.Round,
		&i.Score,
		&i.Passed,
		&i.Title,
		&i.Feedback,
		&i.ImprovementNotes,
		&i.GenerateError,
		&i.CritiqueError,
		&i.CreatedAt,
	)
	return i, err
}

const listDebateRounds = `-- name: ListDebateRounds :many
SELECT id, run_id, round, score, passed, title, feedback, improvement_notes,
    generate_error, critique_error, created_at
FROM debate_rounds
WHERE run_id = ?
ORDER BY round`

func (q *Queries) ListDebateRounds(ctx context.Context, runID int64) ([]DebateRound, error) {
	rows, err := q.db.QueryContext(ctx, listDebateRounds, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DebateRound
	for rows.Next() {
		var i DebateRound
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Round,
			&i.Score,
			&i.Passed,
			&i.Title,
			&i.Feedback,
			&i.ImprovementNotes,
			&i.GenerateError,
			&i.CritiqueError,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getConfig = `-- name: GetConfig :one
SELECT value FROM config WHERE key = ?`

func (q *Queries) GetConfig(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getConfig, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const setConfig = `-- name: SetConfig :exec
INSERT INTO config (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

type SetConfigParams struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (q *Queries) SetConfig(ctx context.Context, arg SetConfigParams) error {
	_, err := q.db.ExecContext(ctx, setConfig, arg.Key, arg.Value)
	return err
}

const listConfig = `-- name: ListConfig :many
SELECT key, value, updated_at FROM config ORDER BY key`

func (q *Queries) ListConfig(ctx context.Context) ([]Config, error) {
	rows, err := q.db.QueryContext(ctx, listConfig)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Config
	for rows.Next() {
		var i Config
		if err := rows.Scan(&i.Key, &i.Value, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteConfig = `-- name: DeleteConfig :exec
DELETE FROM config WHERE key = ?`

func (q *Queries) DeleteConfig(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteConfig, key)
	return err
}
