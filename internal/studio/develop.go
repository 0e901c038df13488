package studio

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"

	"github.com/abdulachik/storyforge/internal/archive"
	"github.com/abdulachik/storyforge/internal/db"
	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/planner"
	"github.com/abdulachik/storyforge/internal/render"
)

// Run statuses stored in debate_runs.
const (
	StatusRunning    = "running"
	StatusPassed     = "passed"
	StatusBestEffort = "best_effort"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// DevelopRequest describes one develop run. Zero values, and a nil
// PassThreshold, take the configured defaults.
type DevelopRequest struct {
	Plan          planner.Request
	MaxRounds     int
	PassThreshold *int
	Retention     debate.Retention
	Feedback      string

	// OnRound is called after every round, once it has been recorded.
	OnRound func(debate.Round)
}

// DevelopResult is the loop result plus where it was stored.
type DevelopResult struct {
	*debate.Result
	RunID   int64
	Dir     string
	Path    string
	Version int
}

func (a *App) loopConfig(ctx context.Context, req DevelopRequest) debate.Config {
	cfg := debate.DefaultConfig()
	if a.Config != nil {
		cfg.MaxRounds = a.Config.MaxRounds
		cfg.PassThreshold = a.Config.PassThreshold
		cfg.Retention = debate.ParseRetention(a.Config.Retention)
		cfg.Pause = a.Config.CallPause
	}
	a.applySettings(ctx, &cfg)
	if req.MaxRounds > 0 {
		cfg.MaxRounds = req.MaxRounds
	}
	if req.PassThreshold != nil {
		cfg.PassThreshold = *req.PassThreshold
	}
	if req.Retention != "" {
		cfg.Retention = req.Retention
	}
	cfg.InitialFeedback = req.Feedback
	return cfg
}

// Develop runs the plan/critique loop and saves the returned plan as
// version 1 of a new project. Every round is recorded in the run history.
// When no round produced a plan the error wraps debate.ErrNoCandidate and
// the result still carries the trace.
func (a *App) Develop(ctx context.Context, req DevelopRequest) (*DevelopResult, error) {
	// History writes outlive ctx so a cancelled run is still closed.
	dbCtx := context.WithoutCancel(ctx)
	cfg := a.loopConfig(dbCtx, req)

	run, err := a.Store.CreateDebateRun(dbCtx, db.CreateDebateRunParams{
		Mode:          string(req.Plan.Mode),
		Idea:          nullString(req.Plan.Idea),
		MaxRounds:     int64(cfg.MaxRounds),
		PassThreshold: int64(cfg.PassThreshold),
		Retention:     string(cfg.Retention),
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	slog.Info("develop started",
		"run", run.ID,
		"mode", req.Plan.Mode,
		"max_rounds", cfg.MaxRounds,
		"threshold", cfg.PassThreshold,
		"retention", cfg.Retention,
	)

	cfg.OnRound = func(r debate.Round) {
		a.recordRound(dbCtx, run.ID, r)
		if req.OnRound != nil {
			req.OnRound(r)
		}
	}

	res, err := debate.Run(ctx, cfg, a.Planner.Generator(req.Plan), a.Critic.WithThreshold(cfg.PassThreshold).Func())
	out := &DevelopResult{Result: res, RunID: run.ID}

	if err != nil {
		status := StatusFailed
		if res != nil && res.Cancelled {
			status = StatusCancelled
		}
		a.finishRun(dbCtx, db.FinishDebateRunParams{
			ID:     run.ID,
			Status: status,
			Error:  nullString(err.Error()),
		})
		return out, fmt.Errorf("develop: %w", err)
	}

	if res.Cancelled && !res.Passed {
		a.finishRun(dbCtx, db.FinishDebateRunParams{
			ID:         run.ID,
			Status:     StatusCancelled,
			FinalRound: sql.NullInt64{Int64: int64(res.Round), Valid: true},
			FinalScore: sql.NullInt64{Int64: int64(res.Critique.Score), Valid: true},
			Title:      nullString(title(res.Candidate)),
			Error:      nullString("cancelled before a plan passed"),
		})
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return out, fmt.Errorf("develop: %w", cause)
	}

	plan := Approve(res.Candidate, res.Critique, res.Round, res.Passed)

	dir, err := a.Archive.Create(title(plan), a.clock())
	if err == nil {
		out.Dir = dir
		out.Path, out.Version, err = a.Archive.SaveVersion(dir, plan)
	}
	if err != nil {
		a.finishRun(dbCtx, db.FinishDebateRunParams{
			ID:     run.ID,
			Status: StatusFailed,
			Error:  nullString(err.Error()),
		})
		return out, fmt.Errorf("save plan: %w", err)
	}
	res.Candidate = plan

	status := StatusBestEffort
	if res.Passed {
		status = StatusPassed
	}
	a.finishRun(dbCtx, db.FinishDebateRunParams{
		ID:         run.ID,
		Status:     status,
		Passed:     res.Passed,
		FinalRound: sql.NullInt64{Int64: int64(res.Round), Valid: true},
		FinalScore: sql.NullInt64{Int64: int64(res.Critique.Score), Valid: true},
		Title:      nullString(title(plan)),
		PlanPath:   nullString(out.Path),
	})

	slog.Info("develop finished",
		"run", run.ID,
		"status", status,
		"score", res.Critique.Score,
		"round", res.Round,
		"path", out.Path,
	)
	return out, nil
}

// Approve returns a copy of plan carrying its final critique and a
// starting version.
func Approve(plan debate.Candidate, crit debate.Critique, round int, passed bool) debate.Candidate {
	out := maps.Clone(plan)

	status := "REJECT"
	if passed {
		status = "PASS"
	}
	flaws := make([]any, 0, len(crit.FatalFlaws))
	for _, f := range crit.FatalFlaws {
		flaws = append(flaws, f)
	}
	out[render.CritiqueKey] = map[string]any{
		"score":                    crit.Score,
		"status":                   status,
		"round":                    round,
		"critique_summary":         crit.Summary,
		"fatal_flaws":              flaws,
		"improvement_instructions": crit.ImprovementNotes,
	}
	if _, ok := out["version"]; !ok {
		out["version"] = "1.0"
	}
	return out
}

// RemakeResult is the revised plan and where it was saved.
type RemakeResult struct {
	Plan    debate.Candidate
	Project *archive.Project
	Path    string
	Version int
}

// Remake revises the latest plan of project name according to order and
// saves it as the next version. Corrupted projects can be remade; the
// placeholder plan is what the model gets to work from.
func (a *App) Remake(ctx context.Context, name, order string) (*RemakeResult, error) {
	project, err := a.Archive.Load(name)
	if err != nil {
		return nil, err
	}
	if project.Corrupted {
		slog.Warn("remaking corrupted project", "project", project.Name, "problem", project.Problem)
	}

	revised, err := a.Planner.Remake(ctx, project.Plan, order)
	if err != nil {
		return nil, err
	}

	path, version, err := a.Archive.SaveVersion(project.Dir, revised)
	if err != nil {
		return nil, err
	}
	return &RemakeResult{Plan: revised, Project: project, Path: path, Version: version}, nil
}

func (a *App) recordRound(ctx context.Context, runID int64, r debate.Round) {
	params := db.CreateDebateRoundParams{
		RunID:            runID,
		Round:            int64(r.Number),
		Score:            int64(r.Critique.Score),
		Passed:           r.Passed,
		Title:            nullString(title(r.Candidate)),
		Feedback:         nullString(r.Feedback),
		ImprovementNotes: nullString(r.Critique.ImprovementNotes),
		GenerateError:    nullError(r.GenerateErr),
		CritiqueError:    nullError(r.CritiqueErr),
	}
	if _, err := a.Store.CreateDebateRound(ctx, params); err != nil {
		slog.Warn("record round failed", "run", runID, "round", r.Number, "error", err)
	}
}

func (a *App) finishRun(ctx context.Context, params db.FinishDebateRunParams) {
	if err := a.Store.FinishDebateRun(ctx, params); err != nil {
		slog.Warn("finish run failed", "run", params.ID, "error", err)
	}
}

func title(plan debate.Candidate) string {
	if plan == nil {
		return ""
	}
	t, _ := plan["title"].(string)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullError(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}
