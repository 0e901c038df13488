package db

import (
	"database/sql"
)

type Config struct {
	Key       string       `json:"key"`
	Value     string       `json:"value"`
	UpdatedAt sql.NullTime `json:"updated_at"`
}

type DebateRound struct {
	ID               int64          `json:"id"`
	RunID            int64          `json:"run_id"`
	Round            int64          `json:"round"`
	Score            int64          `json:"score"`
	Passed           bool           `json:"passed"`
	Title            sql.NullString `json:"title"`
	Feedback         sql.NullString `json:"feedback"`
	ImprovementNotes sql.NullString `json:"improvement_notes"`
	GenerateError    sql.NullString `json:"generate_error"`
	CritiqueError    sql.NullString `json:"critique_error"`
	CreatedAt        sql.NullTime   `json:"created_at"`
}

type DebateRun struct {
	ID            int64          `json:"id"`
	Mode          string         `json:"mode"`
	Idea          sql.NullString `json:"idea"`
	MaxRounds     int64          `json:"max_rounds"`
	PassThreshold int64          `json:"pass_threshold"`
	Retention     string         `json:"retention"`
	Status        string         `json:"status"`
	Passed        bool           `json:"passed"`
	FinalRound    sql.NullInt64  `json:"final_round"`
	FinalScore    sql.NullInt64  `json:"final_score"`
	Title         sql.NullString `json:"title"`
	PlanPath      sql.NullString `json:"plan_path"`
	Error         sql.NullString `json:"error"`
	StartedAt     sql.NullTime   `json:"started_at"`
	FinishedAt    sql.NullTime   `json:"finished_at"`
}
