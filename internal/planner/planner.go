// Package planner drafts web novel proposals with a language model.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/llm"
)

// ErrInvalidPlan is returned when the model answers with something that is
// not a usable plan.
var ErrInvalidPlan = errors.New("invalid plan")

// Mode selects what the planner is asked to do.
type Mode string

const (
	ModeNew     Mode = "new"
	ModeDevelop Mode = "develop"
	ModeRescue  Mode = "rescue"

	// ModeRemake revises a saved plan. It is used by Remake and is not
	// offered by ParseMode.
	ModeRemake Mode = "remake"
)

// ParseMode accepts a mode name or its menu number (1, 2, 3).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", string(ModeNew):
		return ModeNew, nil
	case "2", string(ModeDevelop):
		return ModeDevelop, nil
	case "3", string(ModeRescue):
		return ModeRescue, nil
	default:
		return "", fmt.Errorf("unknown planning mode %q (want new, develop or rescue)", s)
	}
}

// Request describes one planning job.
type Request struct {
	Mode Mode
	// Idea is the user's idea for develop, the failed story for rescue,
	// or the revision order for remake.
	Idea string
}

// Instruction returns the task line for the request's mode.
func (r Request) Instruction() string {
	switch r.Mode {
	case ModeDevelop:
		return fmt.Sprintf("Develop the user's idea into a commercial hit: %q.", r.Idea)
	case ModeRescue:
		return fmt.Sprintf("Rescue this failed story and make it sellable: %q.", r.Idea)
	case ModeRemake:
		return fmt.Sprintf("Revise the existing plan below according to this order: %q.", r.Idea)
	default:
		return "Create a brand-new original hit web novel."
	}
}

// Completer is the part of llm.Chain the planner needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Config holds configuration for the planner.
type Config struct {
	Chain       Completer
	Library     *knowledge.Library
	Prompts     knowledge.PromptSet
	Temperature float64
}

// Planner drafts plans.
type Planner struct {
	chain       Completer
	library     *knowledge.Library
	prompts     knowledge.PromptSet
	temperature float64
}

// New creates a new Planner.
func New(cfg Config) *Planner {
	prompts := cfg.Prompts
	if prompts.System == "" {
		prompts.System = DefaultPrompts.System
	}
	if prompts.User == "" {
		prompts.User = DefaultPrompts.User
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.9
	}
	return &Planner{
		chain:       cfg.Chain,
		library:     cfg.Library,
		prompts:     prompts,
		temperature: temp,
	}
}

type promptData struct {
	Instruction string
	Round       int
	Materials   knowledge.Materials
	Feedback    string
	Template    string
}

// Draft asks the model for plan version round, folding in feedback.
func (p *Planner) Draft(ctx context.Context, req Request, feedback string, round int) (debate.Candidate, error) {
	var materials knowledge.Materials
	if p.library != nil {
		m, err := p.library.Gather(ctx, knowledge.PlannerProfile, feedback)
		if err != nil {
			return nil, fmt.Errorf("gather materials: %w", err)
		}
		materials = m
	}

	system, user, err := p.prompts.Render(promptData{
		Instruction: req.Instruction(),
		Round:       round,
		Materials:   materials,
		Feedback:    feedback,
		Template:    planTemplate,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("drafting plan", "round", round, "mode", req.Mode)

	resp, err := p.chain.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: p.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("draft plan: %w", err)
	}

	plan, err := parsePlan(resp.Text)
	if err != nil {
		return nil, err
	}

	slog.Info("plan drafted",
		"round", round,
		"title", plan["title"],
		"provider", resp.Provider,
		"model", resp.Model,
	)
	return plan, nil
}

// Generator adapts Draft to the debate loop.
func (p *Planner) Generator(req Request) debate.GenerateFunc {
	return func(ctx context.Context, feedback string, round int) (debate.Candidate, error) {
		return p.Draft(ctx, req, feedback, round)
	}
}

// Remake revises plan according to order. On failure the original plan is
// returned together with the error.
func (p *Planner) Remake(ctx context.Context, plan debate.Candidate, order string) (debate.Candidate, error) {
	original, err := json.Marshal(plan)
	if err != nil {
		return plan, fmt.Errorf("marshal plan: %w", err)
	}

	instruction := fmt.Sprintf(remakeInstruction, truncate(string(original), 4000), order)
	slog.Info("remaking plan", "title", plan["title"], "order", order)

	revised, err := p.Draft(ctx, Request{Mode: ModeRemake, Idea: order}, instruction, 1)
	if err != nil {
		return plan, fmt.Errorf("remake plan: %w", err)
	}

	EnsureSWOT(revised)
	revised["version"] = NextVersion(plan["version"])
	return revised, nil
}

// parsePlan decodes a model answer into a plan. An "error" key or a missing
// title marks the answer unusable.
func parsePlan(text string) (debate.Candidate, error) {
	var plan debate.Candidate
	if err := llm.DecodeObject(text, &plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	if e, ok := plan["error"]; ok {
		return nil, fmt.Errorf("%w: model reported error: %v", ErrInvalidPlan, e)
	}
	title, _ := plan["title"].(string)
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidPlan)
	}
	return plan, nil
}

// EnsureSWOT fills in a placeholder SWOT analysis when the plan has none.
func EnsureSWOT(plan debate.Candidate) {
	if v, ok := plan["swot_analysis"]; ok && !isEmpty(v) {
		return
	}
	plan["swot_analysis"] = map[string]any{
		"strength":    "Pending analysis",
		"weakness":    "Needs work",
		"opportunity": "Review against trends",
		"threat":      "Competitor analysis",
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// NextVersion bumps a plan version by 0.1. A missing version counts as
// "1.0"; anything unparsable restarts at "1.1".
func NextVersion(v any) string {
	var f float64
	switch t := v.(type) {
	case nil:
		f = 1.0
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return "1.1"
		}
		f = parsed
	default:
		return "1.1"
	}
	return strconv.FormatFloat(math.Round((f+0.1)*10)/10, 'f', 1, 64)
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
