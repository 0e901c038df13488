package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func versionOnly() Table {
	return Table{
		Versions: []Token{
			{Match: "v3", Points: 3},
			{Match: "v2", Points: 2},
			{Match: "v1", Points: 1},
		},
		Fallback: "fallback-model",
	}
}

func TestSelectBestModel(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		expected  string
	}{
		{
			name:      "nil input",
			available: nil,
			expected:  FallbackModel,
		},
		{
			name:      "empty input",
			available: []string{},
			expected:  FallbackModel,
		},
		{
			name:      "only disallowed markers",
			available: []string{"gemini-pro-vision", "gpt-5-nano", "text-embedding-004"},
			expected:  FallbackModel,
		},
		{
			name:      "newer version beats older pro",
			available: []string{"gemini-1.5-pro", "gemini-2.5-pro", "gemini-2.0-flash"},
			expected:  "gemini-2.5-pro",
		},
		{
			name:      "pro tier beats flash at same version",
			available: []string{"gemini-2.5-flash", "gemini-2.5-pro"},
			expected:  "gemini-2.5-pro",
		},
		{
			name:      "experimental gets a small bonus",
			available: []string{"gemini-2.5-pro", "gemini-2.5-pro-exp-03-25"},
			expected:  "gemini-2.5-pro-exp-03-25",
		},
		{
			name:      "unmatched ids still beat nothing",
			available: []string{"", "  ", "mystery-model"},
			expected:  "mystery-model",
		},
		{
			name:      "unmatched id loses to on-topic id",
			available: []string{"mystery-model", "gemini-3-flash"},
			expected:  "gemini-3-flash",
		},
		{
			name:      "case insensitive",
			available: []string{"Gemini-1.5-Flash", "GEMINI-3-PRO"},
			expected:  "GEMINI-3-PRO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectBestModel(tt.available))
		})
	}
}

func TestSelector_Deterministic(t *testing.T) {
	available := []string{"gemini-2.0-flash", "gpt-4o", "gemini-3-pro-preview", "claude-3-5-haiku"}

	first := SelectBestModel(available)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, SelectBestModel(available))
	}
}

func TestSelector_VersionOrdering(t *testing.T) {
	s := New(versionOnly())

	assert.Equal(t, "foo-v3", s.Select([]string{"foo-v1", "foo-v3", "foo-v2"}))
	assert.Equal(t, "foo-v3", s.Select([]string{"foo-v3", "foo-v1", "foo-v2"}))
	assert.Equal(t, "foo-v3", s.Select([]string{"foo-v2", "foo-v1", "foo-v3"}))
}

func TestSelector_TieBreak(t *testing.T) {
	s := New(versionOnly())

	assert.Equal(t, "alpha-v2", s.Select([]string{"alpha-v2", "beta-v2"}))
	assert.Equal(t, "beta-v2", s.Select([]string{"beta-v2", "alpha-v2"}))
	assert.Equal(t, "first", s.Select([]string{"first", "second"}))
}

func TestSelector_CustomFallback(t *testing.T) {
	s := New(Table{Disallowed: []string{"bad"}, Fallback: "safe"})

	assert.Equal(t, "safe", s.Select(nil))
	assert.Equal(t, "safe", s.Select([]string{"bad-1", "also-bad"}))
	assert.Equal(t, "safe", s.Fallback())

	s = New(Table{})
	assert.Equal(t, FallbackModel, s.Fallback())
}

func TestSelector_Ranked(t *testing.T) {
	s := New(versionOnly())

	ranked := s.Ranked([]string{"a-v1", "b-v3", "c-v1", "d-v2"})
	assert.Equal(t, []Scored{
		{Model: "b-v3", Score: 3},
		{Model: "d-v2", Score: 2},
		{Model: "a-v1", Score: 1},
		{Model: "c-v1", Score: 1},
	}, ranked)
}

func TestSelector_Score(t *testing.T) {
	s := New(DefaultTable())

	// Only the best version token and best tier token count.
	assert.Equal(t, 250+50+5, s.Score("gemini-2.5-pro-preview"))
	assert.Equal(t, 300+20, s.Score("gemini-3-flash"))
	assert.Equal(t, 0, s.Score("unknown"))
}
