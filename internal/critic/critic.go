// Package critic red-teams drafted plans and scores them.
package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/llm"
)

// Completer is the part of llm.Chain the critic needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Config holds configuration for the critic.
type Config struct {
	Chain     Completer
	Library   *knowledge.Library
	Prompts   knowledge.PromptSet
	Threshold int
}

// Critic scores plans.
type Critic struct {
	chain     Completer
	library   *knowledge.Library
	prompts   knowledge.PromptSet
	threshold int
}

// New creates a new Critic.
func New(cfg Config) *Critic {
	prompts := cfg.Prompts
	if prompts.System == "" {
		prompts.System = DefaultPrompts.System
	}
	if prompts.User == "" {
		prompts.User = DefaultPrompts.User
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = debate.DefaultPassThreshold
	}
	return &Critic{
		chain:     cfg.Chain,
		library:   cfg.Library,
		prompts:   prompts,
		threshold: threshold,
	}
}

type promptData struct {
	Materials knowledge.Materials
	Round     int
	Plan      string
	Examples  string
	Threshold int
}

// reviewResponse mirrors the JSON the model is asked for. Score and flaws
// are decoded loosely since models return them in several shapes.
type reviewResponse struct {
	Score        any    `json:"score"`
	Status       string `json:"status"`
	Summary      string `json:"critique_summary"`
	FatalFlaws   any    `json:"fatal_flaws"`
	Instructions string `json:"improvement_instructions"`
}

// Review critiques the plan drafted in round.
func (c *Critic) Review(ctx context.Context, plan debate.Candidate, round int) (debate.Critique, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return debate.Critique{}, fmt.Errorf("marshal plan: %w", err)
	}

	var materials knowledge.Materials
	if c.library != nil {
		materials, err = c.library.Gather(ctx, knowledge.CriticProfile, searchQuery(plan))
		if err != nil {
			return debate.Critique{}, fmt.Errorf("gather evidence: %w", err)
		}
	}

	system, user, err := c.prompts.Render(promptData{
		Materials: materials,
		Round:     round,
		Plan:      string(planJSON),
		Examples:  fewShot,
		Threshold: c.threshold,
	})
	if err != nil {
		return debate.Critique{}, err
	}

	resp, err := c.chain.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: 0.3,
	})
	if err != nil {
		return debate.Critique{}, fmt.Errorf("critique plan: %w", err)
	}

	var raw reviewResponse
	if err := llm.DecodeObject(resp.Text, &raw); err != nil {
		return debate.Critique{}, fmt.Errorf("parse critique: %w", err)
	}

	score, err := parseScore(raw.Score)
	if err != nil {
		return debate.Critique{}, err
	}

	critique := debate.Critique{
		Score:            score,
		ImprovementNotes: strings.TrimSpace(raw.Instructions),
		Summary:          strings.TrimSpace(raw.Summary),
		FatalFlaws:       parseFlaws(raw.FatalFlaws),
	}

	slog.Info("plan reviewed",
		"round", round,
		"score", critique.Score,
		"status", raw.Status,
		"provider", resp.Provider,
		"model", resp.Model,
	)
	return critique, nil
}

// WithThreshold returns a copy of c that quotes threshold in its prompt.
// Negative values keep the current threshold.
func (c *Critic) WithThreshold(threshold int) *Critic {
	cp := *c
	if threshold >= 0 {
		cp.threshold = threshold
	}
	return &cp
}

// Func adapts Review to the debate loop.
func (c *Critic) Func() debate.CritiqueFunc {
	return c.Review
}

// searchQuery builds the retrieval query for fact checking a plan.
func searchQuery(plan debate.Candidate) string {
	var parts []string
	for _, key := range []string{"title", "genre", "logline", "synopsis"} {
		if s, ok := plan[key].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// parseScore reads a score given as a number or numeric string and clamps
// it to [0, 100].
func parseScore(v any) (int, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "/100"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse critique score %q: %w", t, err)
		}
		f = parsed
	case nil:
		return 0, fmt.Errorf("parse critique: missing score")
	default:
		return 0, fmt.Errorf("parse critique: unexpected score type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse critique: score is not a number")
	}

	score := int(math.Round(f))
	return min(max(score, 0), 100), nil
}

// parseFlaws accepts a list of strings or a single string.
func parseFlaws(v any) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				if s != "" {
					out = append(out, s)
				}
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	}
	return nil
}
