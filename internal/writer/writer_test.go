package writer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/storyforge/internal/archive"
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
	return llm.Response{Text: answer, Provider: "anthropic", Model: "claude-opus-4-5"}, nil
}

const fourScenes = `# Ledger - Episode 1 Treatment
## Scene 1: trading floor / dawn
## Scene 2: rooftop / noon
## Scene 3: boardroom / evening
## Scene 4: alley / midnight`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testProject(t *testing.T) *archive.Project {
	t.Helper()
	return &archive.Project{
		Name: "20260314_0905_Ledger",
		Dir:  t.TempDir(),
		Plan: debate.Candidate{
			"title":    "Ledger",
			"genre":    "regression",
			"logline":  "A trader returns to 1997.",
			"synopsis": "He rebuilds the family firm before the crash.",
			"episode_plots": []any{
				map[string]any{"ep": float64(1), "title": "Wake", "summary": "He wakes in 1997."},
				map[string]any{"ep": float64(2), "title": "Bet", "summary": "He shorts the won."},
			},
		},
	}
}

func testLibrary(t *testing.T) *knowledge.Library {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tips", "plot_ladder.md"), "raise the stakes every scene")
	writeFile(t, filepath.Join(dir, "tips", "style_short_lines.md"), "short sentences in action")
	writeFile(t, filepath.Join(dir, "tips", "market.md"), "readers pay for regressors")
	writeFile(t, filepath.Join(dir, "settings", "seoul_1997.txt"), "Yeouido exchange floor")
	return knowledge.NewLibrary(knowledge.Config{
		TipsDir:     filepath.Join(dir, "tips"),
		SettingsDir: filepath.Join(dir, "settings"),
	})
}

func TestWriter_Treatment(t *testing.T) {
	ctx := context.Background()

	t.Run("saves the treatment and uses plot tips", func(t *testing.T) {
		chain := &fakeChain{answers: []string{"```markdown\n" + fourScenes + "\n```"}}
		project := testProject(t)
		w := New(Config{Chain: chain, Library: testLibrary(t)})

		d, err := w.Treatment(ctx, project, 2)
		require.NoError(t, err)

		assert.Equal(t, 2, d.Episode)
		assert.Equal(t, 4, d.Scenes)
		assert.Equal(t, fourScenes, d.Text)
		assert.Equal(t, "claude-opus-4-5", d.Model)
		assert.Equal(t, filepath.Join(project.Dir, "Treatment_EP02.md"), d.Path)

		saved, err := os.ReadFile(d.Path)
		require.NoError(t, err)
		assert.Equal(t, fourScenes+"\n", string(saved))

		require.Len(t, chain.requests, 1)
		req := chain.requests[0]
		assert.Contains(t, req.System, "storyboard")
		assert.Contains(t, req.User, "episode 2")
		assert.Contains(t, req.User, "Episode 2 outline: Bet: He shorts the won.")
		assert.Contains(t, req.User, "4 to 6 scenes")
		assert.Contains(t, req.User, "raise the stakes every scene")
		assert.NotContains(t, req.User, "short sentences in action")
		assert.NotContains(t, req.User, "readers pay for regressors")
		assert.Equal(t, 0.8, req.Temperature)
	})

	t.Run("scene count outside the range is still saved", func(t *testing.T) {
		chain := &fakeChain{answers: []string{"# Ledger\n[Scene 1] office\n[Scene 2] street"}}
		d, err := New(Config{Chain: chain}).Treatment(ctx, testProject(t), 1)
		require.NoError(t, err)
		assert.Equal(t, 2, d.Scenes)
		assert.FileExists(t, d.Path)
	})

	t.Run("legacy core points stand in for episode 1", func(t *testing.T) {
		chain := &fakeChain{answers: []string{fourScenes}}
		project := testProject(t)
		delete(project.Plan, "episode_plots")
		project.Plan["ep1_core_points"] = map[string]any{"hook": "the crash"}

		_, err := New(Config{Chain: chain}).Treatment(ctx, project, 1)
		require.NoError(t, err)
		assert.Contains(t, chain.requests[0].User, `Episode 1 outline: {"hook":"the crash"}`)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		chain := &fakeChain{answers: []string{fourScenes}}
		w := New(Config{Chain: chain})

		_, err := w.Treatment(ctx, testProject(t), 0)
		assert.Error(t, err)

		broken := testProject(t)
		broken.Corrupted = true
		broken.Problem = "unexpected end of JSON input"
		_, err = w.Treatment(ctx, broken, 1)
		assert.ErrorIs(t, err, ErrUnusablePlan)

		assert.Empty(t, chain.requests)
	})

	t.Run("model failure writes nothing", func(t *testing.T) {
		project := testProject(t)
		_, err := New(Config{Chain: &fakeChain{err: errors.New("quota")}}).Treatment(ctx, project, 1)
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(project.Dir, TreatmentFile(1)))

		_, err = New(Config{Chain: &fakeChain{answers: []string{"  "}}}).Treatment(ctx, project, 1)
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(project.Dir, TreatmentFile(1)))
	})
}

func TestWriter_Episode(t *testing.T) {
	ctx := context.Background()

	t.Run("reads the saved treatment", func(t *testing.T) {
		project := testProject(t)
		writeFile(t, filepath.Join(project.Dir, TreatmentFile(1)), "## Scene 1: edited by hand\n")
		chain := &fakeChain{answers: []string{"The phone rang at 4 a.m."}}
		w := New(Config{Chain: chain, Library: testLibrary(t)})

		d, err := w.Episode(ctx, project, 1, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(project.Dir, "Episode_EP01.md"), d.Path)
		assert.Equal(t, "The phone rang at 4 a.m.", d.Text)

		req := chain.requests[0].User
		assert.Contains(t, req, "edited by hand")
		assert.Contains(t, req, "[Setting: seoul_1997.txt]\nYeouido exchange floor")
		assert.Contains(t, req, "[Style Tip: style_short_lines.md]")
		assert.NotContains(t, req, "raise the stakes every scene")
		assert.Contains(t, req, "Write in Korean")
		assert.Equal(t, 0.9, chain.requests[0].Temperature)
	})

	t.Run("treatment argument wins over the file", func(t *testing.T) {
		project := testProject(t)
		writeFile(t, filepath.Join(project.Dir, TreatmentFile(1)), "old treatment")
		chain := &fakeChain{answers: []string{"text"}}

		_, err := New(Config{Chain: chain, Language: "English"}).Episode(ctx, project, 1, "fresh treatment")
		require.NoError(t, err)
		assert.Contains(t, chain.requests[0].User, "fresh treatment")
		assert.NotContains(t, chain.requests[0].User, "old treatment")
		assert.Contains(t, chain.requests[0].User, "Write in English")
	})

	t.Run("missing treatment", func(t *testing.T) {
		chain := &fakeChain{answers: []string{"text"}}
		_, err := New(Config{Chain: chain}).Episode(ctx, testProject(t), 3, "")
		assert.ErrorIs(t, err, ErrNoTreatment)
		assert.Empty(t, chain.requests)
	})

	t.Run("empty treatment file", func(t *testing.T) {
		project := testProject(t)
		writeFile(t, filepath.Join(project.Dir, TreatmentFile(1)), "\n  \n")
		_, err := New(Config{Chain: &fakeChain{answers: []string{"text"}}}).Episode(ctx, project, 1, "")
		assert.ErrorIs(t, err, ErrNoTreatment)
	})
}

func TestWriter_CustomPrompts(t *testing.T) {
	chain := &fakeChain{answers: []string{fourScenes}}
	w := New(Config{
		Chain:            chain,
		TreatmentPrompts: knowledge.PromptSet{User: "Scenes for {{.Title}} #{{.Episode}}"},
	})

	_, err := w.Treatment(context.Background(), testProject(t), 1)
	require.NoError(t, err)
	assert.Equal(t, "Scenes for Ledger #1", chain.requests[0].User)
	assert.Equal(t, DefaultTreatmentPrompts.System, chain.requests[0].System)
}

func TestCountScenes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"markdown headers", fourScenes, 4},
		{"bracket headers", "[Scene 1] a\n[scene 2] b\n[SCENE 3] c", 3},
		{"title line is not a scene", "# Ledger - Episode 1 Treatment", 0},
		{"scene mentioned mid-line", "The scene ends.\n## Scene 1", 1},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountScenes(tt.text))
		})
	}
}

func TestUnfence(t *testing.T) {
	assert.Equal(t, "# Title\nbody", unfence("```markdown\n# Title\nbody\n```"))
	assert.Equal(t, "plain", unfence("  plain  "))
	assert.Equal(t, "keep ```code``` inside", unfence("keep ```code``` inside"))
	assert.Equal(t, "", unfence("``````"))
}
