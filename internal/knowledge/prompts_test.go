package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var builtin = PromptSet{
	System: "You plan {{.Genre}} stories.",
	User:   "Idea: {{.Idea}}",
}

func TestLoadPromptSet(t *testing.T) {
	dir := t.TempDir()

	t.Run("no path", func(t *testing.T) {
		p, err := LoadPromptSet("", builtin)
		require.NoError(t, err)
		assert.Equal(t, builtin, p)
	})

	t.Run("missing file", func(t *testing.T) {
		p, err := LoadPromptSet(filepath.Join(dir, "none.yaml"), builtin)
		require.NoError(t, err)
		assert.Equal(t, builtin, p)
	})

	t.Run("partial override", func(t *testing.T) {
		path := filepath.Join(dir, "planner.yaml")
		require.NoError(t, os.WriteFile(path, []byte("user: |\n  Pitch: {{.Idea}}\n"), 0o644))

		p, err := LoadPromptSet(path, builtin)
		require.NoError(t, err)
		assert.Equal(t, builtin.System, p.System)
		assert.Equal(t, "Pitch: {{.Idea}}\n", p.User)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("system: [unclosed"), 0o644))

		p, err := LoadPromptSet(path, builtin)
		assert.Error(t, err)
		assert.Equal(t, builtin, p)
	})
}

func TestPromptSet_Render(t *testing.T) {
	system, user, err := builtin.Render(map[string]string{"Genre": "regression", "Idea": "  a trader returns  "})
	require.NoError(t, err)
	assert.Equal(t, "You plan regression stories.", system)
	assert.Equal(t, "Idea:   a trader returns", user)

	_, _, err = builtin.Render(map[string]string{"Genre": "x"})
	assert.ErrorContains(t, err, "render user prompt")

	_, _, err = PromptSet{System: "{{.Broken"}.Render(nil)
	assert.ErrorContains(t, err, "parse system prompt")
}
