// Package debate runs the generate -> critique -> retry cycle that turns a
// first draft into an accepted one.
package debate

import (
	"context"
	"errors"
	"time"
)

// ErrNoCandidate is returned when no round produced a candidate.
var ErrNoCandidate = errors.New("no candidate produced")

// Candidate is the artifact a generator produces. The loop never looks
// inside it.
type Candidate map[string]any

// Critique is the evaluation of one candidate.
type Critique struct {
	Score            int      `json:"score"`
	ImprovementNotes string   `json:"improvement_instructions"`
	Summary          string   `json:"critique_summary,omitempty"`
	FatalFlaws       []string `json:"fatal_flaws,omitempty"`
}

// GenerateFunc drafts a candidate for round, folding in feedback.
type GenerateFunc func(ctx context.Context, feedback string, round int) (Candidate, error)

// CritiqueFunc scores a candidate produced in round.
type CritiqueFunc func(ctx context.Context, candidate Candidate, round int) (Critique, error)

// Retention decides which candidate the loop returns when no round passes.
type Retention string

const (
	// RetainLast returns the candidate from the last completed round.
	RetainLast Retention = "last"
	// RetainBestScore returns the highest-scored candidate, earliest on ties.
	RetainBestScore Retention = "bestScore"
)

// ParseRetention maps a config value onto a Retention, defaulting to
// RetainLast.
func ParseRetention(s string) Retention {
	switch s {
	case string(RetainBestScore), "best", "best_score":
		return RetainBestScore
	default:
		return RetainLast
	}
}

const (
	DefaultMaxRounds     = 3
	DefaultPassThreshold = 85
)

// Config controls a single run of the loop.
type Config struct {
	MaxRounds       int
	PassThreshold   int // 0 accepts any score; negative means DefaultPassThreshold
	Retention       Retention
	InitialFeedback string

	// Pause is slept before every generate and critique call after the
	// first one, to stay under provider rate limits.
	Pause time.Duration

	// OnRound, if set, is called after every round with its record.
	OnRound func(Round)
}

// DefaultConfig returns the observed defaults: 3 rounds, pass at 85,
// keep the last candidate.
func DefaultConfig() Config {
	return Config{
		MaxRounds:     DefaultMaxRounds,
		PassThreshold: DefaultPassThreshold,
		Retention:     RetainLast,
	}
}

// State is a step of the loop's state machine.
type State int

const (
	StateNotStarted State = iota
	StateGenerating
	StateCritiquing
	StatePassed
	StateRetrying
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateGenerating:
		return "generating"
	case StateCritiquing:
		return "critiquing"
	case StatePassed:
		return "passed"
	case StateRetrying:
		return "retrying"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Round records what happened in one generate+critique cycle.
type Round struct {
	Number      int
	Feedback    string
	Candidate   Candidate
	Critique    Critique
	GenerateErr error
	CritiqueErr error
	Passed      bool
}

// Result is the outcome of a run.
type Result struct {
	// Candidate is the returned candidate, chosen by the retention policy.
	Candidate Candidate
	// Critique is the critique of Candidate.
	Critique Critique
	// Round is the round Candidate came from (0 when there is none).
	Round int
	// Passed reports whether any round met the threshold.
	Passed bool
	// Cancelled reports whether the context ended the run early.
	Cancelled bool
	Rounds    []Round
	Trace     []string
}
