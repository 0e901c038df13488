package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(providers ...string) func(string) bool {
	set := make(map[string]bool)
	for _, p := range providers {
		set[p] = true
	}
	return func(p string) bool { return set[p] }
}

func TestLineup_ForTask(t *testing.T) {
	l := DefaultLineup()

	t.Run("creative prefers gemini", func(t *testing.T) {
		assert.Equal(t, "gemini-3-pro", l.ForTask(TaskCreative, keys(ProviderGemini, ProviderOpenAI)))
	})

	t.Run("logic prefers openai reasoning", func(t *testing.T) {
		assert.Equal(t, "o3", l.ForTask(TaskLogic, keys(ProviderGemini, ProviderOpenAI)))
	})

	t.Run("skips providers without keys", func(t *testing.T) {
		assert.Equal(t, "claude-3-5-haiku-latest", l.ForTask(TaskSpeed, keys(ProviderAnthropic)))
	})

	t.Run("no keys falls back", func(t *testing.T) {
		assert.Equal(t, FallbackModel, l.ForTask(TaskCoding, keys()))
	})
}

func TestLineup_ForProvider(t *testing.T) {
	l := DefaultLineup()

	assert.Equal(t, "gemini-3-deep-think", l.ForProvider(ProviderGemini, TaskLogic))
	assert.Equal(t, "claude-opus-4-1", l.ForProvider(ProviderAnthropic, TaskCoding))
	assert.Equal(t, "", l.ForProvider(ProviderOllama, TaskCreative))
}

func TestParseTask(t *testing.T) {
	assert.Equal(t, TaskLogic, ParseTask(" Logic "))
	assert.Equal(t, TaskSpeed, ParseTask("speed"))
	assert.Equal(t, TaskCreative, ParseTask("whatever"))
}
