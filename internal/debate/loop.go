package debate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Run drives generate and critique until a critique meets the pass
// threshold or the round budget runs out.
//
// Per-round failures never abort the run: a failed generate consumes its
// round and the next one retries with the same feedback; a failed critique
// counts as score 0 with empty notes. The only error returned is
// ErrNoCandidate (possibly wrapping ctx.Err()), and the Result with its
// trace is returned alongside it.
func Run(ctx context.Context, cfg Config, generate GenerateFunc, critique CritiqueFunc) (*Result, error) {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.PassThreshold < 0 {
		cfg.PassThreshold = DefaultPassThreshold
	}
	if cfg.Retention == "" {
		cfg.Retention = RetainLast
	}

	l := &loop{cfg: cfg, state: StateNotStarted, result: &Result{}}
	feedback := cfg.InitialFeedback
	calls := 0

	for round := 1; round <= cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			l.tracef("round %d: cancelled before start: %v", round, err)
			l.result.Cancelled = true
			break
		}

		rec := Round{Number: round, Feedback: feedback}

		l.transition(StateGenerating, round)
		if err := l.pause(ctx, calls); err != nil {
			l.tracef("round %d: cancelled while waiting to generate: %v", round, err)
			l.result.Cancelled = true
			break
		}
		calls++
		candidate, err := generate(ctx, feedback, round)
		if err == nil && candidate == nil {
			err = fmt.Errorf("generator returned no candidate")
		}
		if err != nil {
			rec.GenerateErr = err
			l.tracef("round %d: generation failed: %v", round, err)
			l.record(rec)
			if ctx.Err() != nil {
				l.result.Cancelled = true
				l.tracef("round %d: cancelled during generation", round)
				break
			}
			continue
		}
		rec.Candidate = candidate

		l.transition(StateCritiquing, round)
		if err := l.pause(ctx, calls); err != nil {
			rec.CritiqueErr = err
			l.retain(round, candidate, Critique{})
			l.result.Cancelled = true
			l.tracef("round %d: cancelled while waiting to critique: %v; keeping the unscored candidate", round, err)
			l.record(rec)
			break
		}
		calls++
		crit, err := critique(ctx, candidate, round)
		if err != nil {
			rec.CritiqueErr = err
			crit = Critique{}
			l.tracef("round %d: critique failed: %v; treating score as 0", round, err)
		}
		crit.Score = clampScore(crit.Score)
		rec.Critique = crit

		l.retain(round, candidate, crit)

		if crit.Score >= cfg.PassThreshold {
			rec.Passed = true
			l.result.Passed = true
			l.transition(StatePassed, round)
			l.tracef("round %d: score %d meets threshold %d, accepted", round, crit.Score, cfg.PassThreshold)
			l.record(rec)
			break
		}

		l.record(rec)
		if err := ctx.Err(); err != nil {
			l.result.Cancelled = true
			l.tracef("round %d: score %d below threshold %d, cancelled: %v", round, crit.Score, cfg.PassThreshold, err)
			break
		}
		if round == cfg.MaxRounds {
			l.tracef("round %d: score %d below threshold %d, round budget exhausted", round, crit.Score, cfg.PassThreshold)
			break
		}
		l.transition(StateRetrying, round)
		l.tracef("round %d: score %d below threshold %d, retrying", round, crit.Score, cfg.PassThreshold)
		feedback = crit.ImprovementNotes
	}

	l.transition(StateDone, len(l.result.Rounds))

	if l.result.Candidate == nil {
		if err := ctx.Err(); err != nil {
			return l.result, fmt.Errorf("%w: %w", ErrNoCandidate, err)
		}
		return l.result, ErrNoCandidate
	}
	return l.result, nil
}

type loop struct {
	cfg    Config
	state  State
	result *Result
}

func (l *loop) transition(to State, round int) {
	slog.Debug("debate state change", "from", l.state, "to", to, "round", round)
	l.state = to
}

func (l *loop) tracef(format string, args ...any) {
	l.result.Trace = append(l.result.Trace, fmt.Sprintf(format, args...))
}

func (l *loop) record(r Round) {
	l.result.Rounds = append(l.result.Rounds, r)
	if l.cfg.OnRound != nil {
		l.cfg.OnRound(r)
	}
}

// retain applies the retention policy to a freshly critiqued candidate.
func (l *loop) retain(round int, c Candidate, crit Critique) {
	if l.cfg.Retention == RetainBestScore && l.result.Candidate != nil && crit.Score <= l.result.Critique.Score {
		return
	}
	l.result.Candidate = c
	l.result.Critique = crit
	l.result.Round = round
}

// pause waits cfg.Pause before every external call except the first.
func (l *loop) pause(ctx context.Context, calls int) error {
	if calls == 0 || l.cfg.Pause <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(l.cfg.Pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
