package debate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a scripted generator/critic pair.
type recorder struct {
	feedbacks    []string
	generated    int
	critiqued    int
	scores       []int
	notes        []string
	failGenerate map[int]bool
	failCritique map[int]bool
}

func (r *recorder) generate(_ context.Context, feedback string, round int) (Candidate, error) {
	r.generated++
	r.feedbacks = append(r.feedbacks, feedback)
	if r.failGenerate[round] {
		return nil, fmt.Errorf("model unavailable in round %d", round)
	}
	return Candidate{"title": fmt.Sprintf("draft-%d", round)}, nil
}

func (r *recorder) critique(_ context.Context, c Candidate, round int) (Critique, error) {
	r.critiqued++
	if r.failCritique[round] {
		return Critique{}, errors.New("critic timed out")
	}
	idx := r.critiqued - 1
	crit := Critique{Score: r.scores[min(idx, len(r.scores)-1)]}
	if idx < len(r.notes) {
		crit.ImprovementNotes = r.notes[idx]
	}
	return crit, nil
}

func cfg(maxRounds int) Config {
	return Config{MaxRounds: maxRounds, PassThreshold: 85, Retention: RetainLast}
}

func TestRun_EarlyExit(t *testing.T) {
	r := &recorder{scores: []int{90}}

	res, err := Run(context.Background(), cfg(3), r.generate, r.critique)
	require.NoError(t, err)

	assert.Equal(t, 1, r.generated)
	assert.Equal(t, 1, r.critiqued)
	assert.Equal(t, "draft-1", res.Candidate["title"])
	assert.True(t, res.Passed)
	assert.Equal(t, 1, res.Round)
	assert.Len(t, res.Rounds, 1)
}

func TestRun_ThresholdIsInclusive(t *testing.T) {
	r := &recorder{scores: []int{85}}

	res, err := Run(context.Background(), cfg(3), r.generate, r.critique)
	require.NoError(t, err)

	assert.True(t, res.Passed)
	assert.Equal(t, 1, r.generated)
}

func TestRun_ExhaustionReturnsLastCandidate(t *testing.T) {
	r := &recorder{scores: []int{10}}

	res, err := Run(context.Background(), cfg(3), r.generate, r.critique)
	require.NoError(t, err)

	assert.Equal(t, 3, r.generated)
	assert.Equal(t, 3, r.critiqued)
	assert.Equal(t, "draft-3", res.Candidate["title"])
	assert.Equal(t, 3, res.Round)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Trace[len(res.Trace)-1], "round budget exhausted")
}

func TestRun_LastNotBest(t *testing.T) {
	r := &recorder{scores: []int{80, 20, 40}}

	res, err := Run(context.Background(), cfg(3), r.generate, r.critique)
	require.NoError(t, err)

	assert.Equal(t, "draft-3", res.Candidate["title"])
	assert.Equal(t, 40, res.Critique.Score)
}

func TestRun_BestScoreRetention(t *testing.T) {
	r := &recorder{scores: []int{80, 20, 80}}
	c := cfg(3)
	c.Retention = RetainBestScore

	res, err := Run(context.Background(), c, r.generate, r.critique)
	require.NoError(t, err)

	assert.Equal(t, "draft-1", res.Candidate["title"], "ties keep the earlier round")
	assert.Equal(t, 80, res.Critique.Score)
	assert.Equal(t, 1, res.Round)
}

func TestRun_GenerationFailureConsumesRound(t *testing.T) {
	r := &recorder{
		scores:       []int{90},
		failGenerate: map[int]bool{1: true},
	}
	c := cfg(3)
	c.InitialFeedback = "start here"

	res, err := Run(context.Background(), c, r.generate, r.critique)
	require.NoError(t, err)

	assert.Equal(t, 2, r.generated)
	assert.Equal(t, 1, r.critiqued)
	assert.Equal(t, "draft-2", res.Candidate["title"])
	assert.Equal(t, []string{"start here", "start here"}, r.feedbacks, "failed round keeps the same feedback")
	assert.Contains(t, res.Trace[0], "round 1: generation failed")
	require.Len(t, res.Rounds, 2)
	assert.Error(t, res.Rounds[0].GenerateErr)
}

func TestRun_TotalFailure(t *testing.T) {
	r := &recorder{
		scores:       []int{90},
		failGenerate: map[int]bool{1: true, 2: true, 3: true},
	}

	res, err := Run(context.Background(), cfg(3), r.generate, r.critique)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCandidate))

	require.NotNil(t, res)
	assert.Nil(t, res.Candidate)
	assert.Equal(t, 0, r.critiqued)

	failures := 0
	for _, line := range res.Trace {
		if strings.Contains(line, "generation failed") {
			failures++
		}
	}
	assert.Equal(t, 3, failures)
}

func TestRun_NilCandidateCountsAsFailure(t *testing.T) {
	gen := func(context.Context, string, int) (Candidate, error) { return nil, nil }
	crit := func(context.Context, Candidate, int) (Critique, error) { return Critique{Score: 100}, nil }

	_, err := Run(context.Background(), cfg(2), gen, crit)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestRun_CritiqueFailureScoresZero(t *testing.T) {
	r := &recorder{
		scores:       []int{90},
		notes:        []string{"unused"},
		failCritique: map[int]bool{1: true},
	}

	res, err := Run(context.Background(), cfg(2), r.generate, r.critique)
	require.NoError(t, err)

	require.Len(t, res.Rounds, 2)
	assert.Equal(t, 0, res.Rounds[0].Critique.Score)
	assert.Error(t, res.Rounds[0].CritiqueErr)
	assert.Contains(t, res.Trace[0], "critique failed")
	assert.Equal(t, []string{"", ""}, r.feedbacks, "empty notes drive round 2")
	assert.Equal(t, "draft-2", res.Candidate["title"])
}

func TestRun_CritiqueFailureStillKeepsCandidate(t *testing.T) {
	r := &recorder{
		scores:       []int{0},
		failCritique: map[int]bool{1: true},
	}

	res, err := Run(context.Background(), cfg(1), r.generate, r.critique)
	require.NoError(t, err)
	assert.Equal(t, "draft-1", res.Candidate["title"])
	assert.False(t, res.Passed)
}

func TestRun_FeedbackIsReplaced(t *testing.T) {
	r := &recorder{
		scores: []int{30, 50, 70},
		notes:  []string{"fix the timeline", "sharpen the villain", "unused"},
	}
	c := cfg(3)
	c.InitialFeedback = "initial"

	_, err := Run(context.Background(), c, r.generate, r.critique)
	require.NoError(t, err)

	require.Len(t, r.feedbacks, 3)
	assert.Equal(t, "initial", r.feedbacks[0])
	assert.Equal(t, "fix the timeline", r.feedbacks[1])
	assert.Equal(t, "sharpen the villain", r.feedbacks[2])
}

func TestRun_ScoresAreClamped(t *testing.T) {
	r := &recorder{scores: []int{250}}

	res, err := Run(context.Background(), cfg(3), r.generate, r.critique)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Critique.Score)

	r = &recorder{scores: []int{-5}}
	res, err = Run(context.Background(), cfg(1), r.generate, r.critique)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Critique.Score)
}

func TestRun_Defaults(t *testing.T) {
	r := &recorder{scores: []int{84}}

	res, err := Run(context.Background(), Config{PassThreshold: -1}, r.generate, r.critique)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRounds, r.generated)
	assert.Equal(t, "draft-3", res.Candidate["title"])
	assert.False(t, res.Passed)
}

func TestRun_ZeroThresholdAcceptsAnyScore(t *testing.T) {
	r := &recorder{scores: []int{0}}

	res, err := Run(context.Background(), Config{MaxRounds: 3}, r.generate, r.critique)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 1, r.generated)
	assert.Equal(t, "round 1: score 0 meets threshold 0, accepted", res.Trace[0])
}

func TestRun_OnRound(t *testing.T) {
	r := &recorder{scores: []int{10, 95}}
	c := cfg(3)
	var seen []int
	c.OnRound = func(rd Round) { seen = append(seen, rd.Number) }

	_, err := Run(context.Background(), c, r.generate, r.critique)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRun_Cancellation(t *testing.T) {
	t.Run("cancelled before the first round", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := &recorder{scores: []int{90}}

		res, err := Run(ctx, cfg(3), r.generate, r.critique)
		assert.ErrorIs(t, err, ErrNoCandidate)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, res.Cancelled)
		assert.Equal(t, 0, r.generated)
	})

	t.Run("cancelled after a candidate exists", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := &recorder{scores: []int{10}}
		crit := func(ctx context.Context, c Candidate, round int) (Critique, error) {
			cancel()
			return r.critique(ctx, c, round)
		}

		res, err := Run(ctx, cfg(3), r.generate, crit)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Equal(t, "draft-1", res.Candidate["title"])
		assert.Equal(t, 1, r.generated)
	})

	t.Run("cancelled while waiting to critique the last round", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := &recorder{scores: []int{90}}
		gen := func(ctx context.Context, feedback string, round int) (Candidate, error) {
			cancel()
			return r.generate(ctx, feedback, round)
		}
		c := cfg(1)
		c.Pause = 10 * time.Millisecond

		res, err := Run(ctx, c, gen, r.critique)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.False(t, res.Passed)
		assert.Equal(t, "draft-1", res.Candidate["title"])
		assert.Equal(t, 0, r.critiqued)
		require.Len(t, res.Rounds, 1)
		assert.ErrorIs(t, res.Rounds[0].CritiqueErr, context.Canceled)
		for _, line := range res.Trace {
			assert.NotContains(t, line, "round budget exhausted")
		}
		assert.Contains(t, res.Trace[len(res.Trace)-1], "cancelled while waiting to critique")
	})

	t.Run("cancelled inside the last generate", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		r := &recorder{scores: []int{10}}
		gen := func(ctx context.Context, feedback string, round int) (Candidate, error) {
			if round == 2 {
				cancel()
				return nil, ctx.Err()
			}
			return r.generate(ctx, feedback, round)
		}

		res, err := Run(ctx, cfg(2), gen, r.critique)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Equal(t, "draft-1", res.Candidate["title"])
		assert.Contains(t, res.Trace[len(res.Trace)-1], "cancelled during generation")
	})
}

func TestRun_Pause(t *testing.T) {
	r := &recorder{scores: []int{10}}
	c := cfg(2)
	c.Pause = 5 * time.Millisecond

	start := time.Now()
	_, err := Run(context.Background(), c, r.generate, r.critique)
	require.NoError(t, err)

	// 4 calls, 3 pauses.
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestParseRetention(t *testing.T) {
	assert.Equal(t, RetainBestScore, ParseRetention("bestScore"))
	assert.Equal(t, RetainBestScore, ParseRetention("best"))
	assert.Equal(t, RetainLast, ParseRetention("last"))
	assert.Equal(t, RetainLast, ParseRetention(""))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(99).String())
}
