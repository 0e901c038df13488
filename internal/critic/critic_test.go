package critic

import (
	"context"
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
	answer   string
	err      error
	requests []llm.Request
}

func (f *fakeChain) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.answer, Provider: "openai", Model: "gpt-5.2"}, nil
}

var plan = debate.Candidate{
	"title":   "Regressor's Ledger",
	"logline": "A bankrupt trader wakes up in 1997.",
}

func TestCritic_Review(t *testing.T) {
	ctx := context.Background()

	t.Run("full critique", func(t *testing.T) {
		chain := &fakeChain{answer: "```json\n" + `{
  "score": 72,
  "status": "REJECT",
  "critique_summary": "The rival never reacts.",
  "fatal_flaws": ["1. Timeline error: smartphones in 1997", "2. Logic error: passive rival"],
  "improvement_instructions": "Replace the smartphone with a pager and give the rival a counterattack."
}` + "\n```"}
		c := New(Config{Chain: chain})

		got, err := c.Review(ctx, plan, 2)
		require.NoError(t, err)
		assert.Equal(t, 72, got.Score)
		assert.Equal(t, "The rival never reacts.", got.Summary)
		assert.Len(t, got.FatalFlaws, 2)
		assert.Equal(t, "Replace the smartphone with a pager and give the rival a counterattack.", got.ImprovementNotes)

		req := chain.requests[0]
		assert.Equal(t, 0.3, req.Temperature)
		assert.Contains(t, req.System, "logic auditor")
		assert.Contains(t, req.User, "# Proposal V2")
		assert.Contains(t, req.User, `"title": "Regressor's Ledger"`)
		assert.Contains(t, req.User, `"PASS" if score >= 85`)
		assert.Contains(t, req.User, "butterfly effect")
	})

	t.Run("threshold is shown to the model", func(t *testing.T) {
		chain := &fakeChain{answer: `{"score": 90}`}
		_, err := New(Config{Chain: chain, Threshold: 70}).Review(ctx, plan, 1)
		require.NoError(t, err)
		assert.Contains(t, chain.requests[0].User, `"PASS" if score >= 70`)
	})

	t.Run("with threshold copies the critic", func(t *testing.T) {
		chain := &fakeChain{answer: `{"score": 90}`}
		base := New(Config{Chain: chain})
		_, err := base.WithThreshold(60).Review(ctx, plan, 1)
		require.NoError(t, err)
		_, err = base.WithThreshold(-1).Review(ctx, plan, 1)
		require.NoError(t, err)
		_, err = base.WithThreshold(0).Review(ctx, plan, 1)
		require.NoError(t, err)

		assert.Contains(t, chain.requests[0].User, `"PASS" if score >= 60`)
		assert.Contains(t, chain.requests[1].User, `"PASS" if score >= 85`)
		assert.Contains(t, chain.requests[2].User, `"PASS" if score >= 0`)
	})

	t.Run("evidence from the library", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "facts"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "facts", "1997.md"), []byte("IMF bailout in December 1997"), 0o644))
		lib := knowledge.NewLibrary(knowledge.Config{FactsDir: filepath.Join(dir, "facts"), Seed: 3})

		chain := &fakeChain{answer: `{"score": 50}`}
		_, err := New(Config{Chain: chain, Library: lib}).Review(ctx, plan, 1)
		require.NoError(t, err)
		assert.Contains(t, chain.requests[0].User, "IMF bailout")
	})

	t.Run("unparsable answer is an error", func(t *testing.T) {
		chain := &fakeChain{answer: "Looks great to me!"}
		_, err := New(Config{Chain: chain}).Review(ctx, plan, 1)
		assert.ErrorIs(t, err, llm.ErrNoJSON)
	})

	t.Run("missing score is an error", func(t *testing.T) {
		chain := &fakeChain{answer: `{"critique_summary": "meh"}`}
		_, err := New(Config{Chain: chain}).Review(ctx, plan, 1)
		assert.Error(t, err)
	})

	t.Run("chain failure", func(t *testing.T) {
		chain := &fakeChain{err: llm.ErrAllProvidersFailed}
		_, err := New(Config{Chain: chain}).Func()(ctx, plan, 1)
		assert.ErrorIs(t, err, llm.ErrAllProvidersFailed)
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{"integer", float64(85), 85, false},
		{"fraction rounds", 84.6, 85, false},
		{"numeric string", "72", 72, false},
		{"out of hundred", "64/100", 64, false},
		{"above range", float64(130), 100, false},
		{"below range", float64(-5), 0, false},
		{"word", "high", 0, true},
		{"missing", nil, 0, true},
		{"list", []any{1.0}, 0, true},
		{"infinite", "Inf", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScore(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlaws(t *testing.T) {
	assert.Equal(t, []string{"one flaw"}, parseFlaws(" one flaw "))
	assert.Nil(t, parseFlaws(""))
	assert.Equal(t, []string{"a", "3"}, parseFlaws([]any{"a", "", float64(3)}))
	assert.Nil(t, parseFlaws(map[string]any{}))
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "Regressor's Ledger\nA bankrupt trader wakes up in 1997.", searchQuery(plan))
}
