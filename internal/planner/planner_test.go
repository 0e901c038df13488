package planner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/llm"
)

type fakeChain struct {
	answers  []string
	err      error
	requests []llm.Request
}

func (f *fakeChain) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	answer := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return llm.Response{Text: answer, Provider: "gemini", Model: "gemini-3-pro"}, nil
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"", ModeNew},
		{"1", ModeNew},
		{"new", ModeNew},
		{"2", ModeDevelop},
		{"Develop", ModeDevelop},
		{"3", ModeRescue},
		{" rescue ", ModeRescue},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("publish")
	assert.Error(t, err)
	_, err = ParseMode("remake")
	assert.Error(t, err, "remake is only reachable through Remake")
}

func TestRequest_Instruction(t *testing.T) {
	assert.Contains(t, Request{Mode: ModeNew}.Instruction(), "brand-new")
	assert.Contains(t, Request{Mode: ModeDevelop, Idea: "a chaebol heir regresses"}.Instruction(), `"a chaebol heir regresses"`)
	assert.Contains(t, Request{Mode: ModeRescue, Idea: "dead serial"}.Instruction(), "Rescue")
	assert.Equal(t, `Revise the existing plan below according to this order: "cut the romance".`,
		Request{Mode: ModeRemake, Idea: "cut the romance"}.Instruction())
}

func TestPlanner_Draft(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes a fenced plan", func(t *testing.T) {
		chain := &fakeChain{answers: []string{"```json\n{\"title\": \"Regressor's Ledger\", \"genre\": \"fantasy\"}\n```"}}
		p := New(Config{Chain: chain})

		plan, err := p.Draft(ctx, Request{Mode: ModeNew}, "", 1)
		require.NoError(t, err)
		assert.Equal(t, "Regressor's Ledger", plan["title"])

		require.Len(t, chain.requests, 1)
		req := chain.requests[0]
		assert.Contains(t, req.System, "web novel studio")
		assert.Contains(t, req.User, "Draft proposal V1")
		assert.Contains(t, req.User, "None yet. This is the first draft.")
		assert.Contains(t, req.User, `"episode_plots"`)
		assert.Equal(t, 0.9, req.Temperature)
	})

	t.Run("feedback and materials reach the prompt", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "trend.json"), []byte("regression is hot"), 0o644))
		lib := knowledge.NewLibrary(knowledge.Config{TrendPath: filepath.Join(dir, "trend.json"), Seed: 1})

		chain := &fakeChain{answers: []string{`{"title": "T"}`}}
		p := New(Config{Chain: chain, Library: lib})

		_, err := p.Draft(ctx, Request{Mode: ModeDevelop, Idea: "idol manager"}, "Fix the 1997 smartphone error.", 2)
		require.NoError(t, err)

		user := chain.requests[0].User
		assert.Contains(t, user, "Draft proposal V2")
		assert.Contains(t, user, "Fix the 1997 smartphone error.")
		assert.Contains(t, user, "# Market trend\nregression is hot")
		assert.Contains(t, user, `"idol manager"`)
		assert.NotContains(t, user, "# Writing tips")
	})

	t.Run("error key is a failure", func(t *testing.T) {
		chain := &fakeChain{answers: []string{`{"error": "JSON Parsing Error", "raw": "..."}`}}
		_, err := New(Config{Chain: chain}).Draft(ctx, Request{}, "", 1)
		assert.ErrorIs(t, err, ErrInvalidPlan)
		assert.Contains(t, err.Error(), "JSON Parsing Error")
	})

	t.Run("missing title is a failure", func(t *testing.T) {
		chain := &fakeChain{answers: []string{`{"genre": "romance"}`}}
		_, err := New(Config{Chain: chain}).Draft(ctx, Request{}, "", 1)
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("prose answer is a failure", func(t *testing.T) {
		chain := &fakeChain{answers: []string{"I'm sorry, I can't write that."}}
		_, err := New(Config{Chain: chain}).Draft(ctx, Request{}, "", 1)
		assert.ErrorIs(t, err, ErrInvalidPlan)
		assert.ErrorIs(t, err, llm.ErrNoJSON)
	})

	t.Run("chain failure", func(t *testing.T) {
		chain := &fakeChain{err: llm.ErrAllProvidersFailed}
		_, err := New(Config{Chain: chain}).Draft(ctx, Request{}, "", 1)
		assert.ErrorIs(t, err, llm.ErrAllProvidersFailed)
	})

	t.Run("custom prompts", func(t *testing.T) {
		chain := &fakeChain{answers: []string{`{"title": "T"}`}}
		p := New(Config{Chain: chain, Prompts: knowledge.PromptSet{User: "round {{.Round}}: {{.Feedback}}"}})

		_, err := p.Draft(ctx, Request{}, "tighten pacing", 3)
		require.NoError(t, err)
		assert.Equal(t, "round 3: tighten pacing", chain.requests[0].User)
		assert.Equal(t, systemPrompt, chain.requests[0].System)
	})
}

func TestPlanner_GeneratorInLoop(t *testing.T) {
	chain := &fakeChain{answers: []string{`{"title": "First"}`, `{"title": "Second"}`}}
	p := New(Config{Chain: chain})

	scores := []int{60, 90}
	critique := func(_ context.Context, _ debate.Candidate, round int) (debate.Critique, error) {
		return debate.Critique{Score: scores[round-1], ImprovementNotes: "raise the stakes"}, nil
	}

	res, err := debate.Run(context.Background(), debate.DefaultConfig(), p.Generator(Request{Mode: ModeNew}), critique)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, "Second", res.Candidate["title"])
	assert.Contains(t, chain.requests[1].User, "raise the stakes")
}

func TestPlanner_Remake(t *testing.T) {
	ctx := context.Background()
	original := debate.Candidate{"title": "Old", "version": "1.3"}

	t.Run("bumps version and fills swot", func(t *testing.T) {
		chain := &fakeChain{answers: []string{`{"title": "New", "remake_analysis": "darker villain"}`}}
		revised, err := New(Config{Chain: chain}).Remake(ctx, original, "make the villain darker")
		require.NoError(t, err)

		assert.Equal(t, "New", revised["title"])
		assert.Equal(t, "1.4", revised["version"])
		swot, ok := revised["swot_analysis"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Needs work", swot["weakness"])

		user := chain.requests[0].User
		assert.Contains(t, user, "[Revision order]: make the villain darker")
		assert.Contains(t, user, `"title":"Old"`)
		assert.Contains(t, user, `Revise the existing plan below according to this order: "make the villain darker".`)
		assert.NotContains(t, user, "Develop the user's idea")
		assert.NotContains(t, user, `"Remake"`)
	})

	t.Run("keeps existing swot", func(t *testing.T) {
		chain := &fakeChain{answers: []string{`{"title": "New", "swot_analysis": {"strength": "hook"}}`}}
		revised, err := New(Config{Chain: chain}).Remake(ctx, original, "x")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"strength": "hook"}, revised["swot_analysis"])
	})

	t.Run("failure returns the original", func(t *testing.T) {
		chain := &fakeChain{err: errors.New("quota")}
		got, err := New(Config{Chain: chain}).Remake(ctx, original, "x")
		require.Error(t, err)
		assert.Equal(t, original, got)
	})
}

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"missing", nil, "1.1"},
		{"string", "1.0", "1.1"},
		{"float", 2.0, "2.1"},
		{"int", 3, "3.1"},
		{"rounding", "1.9", "2.0"},
		{"file name", "Approved_Plan_v2.json", "1.1"},
		{"legacy marker", "Old", "1.1"},
		{"nan", "NaN", "1.1"},
		{"unexpected type", []any{}, "1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextVersion(tt.in))
		})
	}
}

func TestEnsureSWOT(t *testing.T) {
	plan := debate.Candidate{"swot_analysis": ""}
	EnsureSWOT(plan)
	assert.NotEmpty(t, plan["swot_analysis"])
}
