// Package engine picks which hosted model to call when the caller only has a
// list of model identifiers to go on.
package engine

import (
	"sort"
	"strings"
)

// FallbackModel is returned whenever no usable identifier is available.
const FallbackModel = "gemini-3-pro"

// Token awards Points to any identifier containing Match (case-insensitive).
type Token struct {
	Match  string
	Points int
}

// Table is the scoring configuration for a Selector.
//
// Within Versions and within Tiers only the highest-scoring match counts, so
// "gemini-2.5-pro-exp" collects one version bonus, one tier bonus and the
// experimental bonus. Any identifier containing a Disallowed marker is
// dropped before scoring.
type Table struct {
	Versions     []Token
	Tiers        []Token
	Experimental []Token
	Disallowed   []string
	Fallback     string
}

// DefaultTable reflects the current model lineups: newest major versions
// first, pro-class tiers above fast ones, and a small nudge toward
// experimental releases.
func DefaultTable() Table {
	return Table{
		Versions: []Token{
			{Match: "gemini-3", Points: 300},
			{Match: "gpt-5", Points: 300},
			{Match: "opus-4", Points: 300},
			{Match: "3.0", Points: 280},
			{Match: "2.5", Points: 250},
			{Match: "2.0", Points: 200},
			{Match: "gpt-4", Points: 180},
			{Match: "1.5", Points: 150},
			{Match: "1.0", Points: 100},
		},
		Tiers: []Token{
			{Match: "pro", Points: 50},
			{Match: "opus", Points: 50},
			{Match: "deep-think", Points: 45},
			{Match: "sonnet", Points: 35},
			{Match: "flash", Points: 20},
			{Match: "fast", Points: 20},
			{Match: "haiku", Points: 10},
			{Match: "lite", Points: 5},
		},
		Experimental: []Token{
			{Match: "exp", Points: 5},
			{Match: "preview", Points: 5},
		},
		Disallowed: []string{"vision", "nano", "embedding", "tts", "image", "aqa", "audio"},
		Fallback:   FallbackModel,
	}
}

// Scored is a model identifier with its total score.
type Scored struct {
	Model string
	Score int
}

// Selector scores model identifiers against a Table. It holds no state beyond
// the table, so a Selector is safe for concurrent use.
type Selector struct {
	table Table
}

// New creates a selector over the given table. An empty Fallback is replaced
// by FallbackModel.
func New(table Table) *Selector {
	if table.Fallback == "" {
		table.Fallback = FallbackModel
	}
	return &Selector{table: table}
}

var defaultSelector = New(DefaultTable())

// SelectBestModel picks the preferred identifier using DefaultTable.
func SelectBestModel(available []string) string {
	return defaultSelector.Select(available)
}

// Select returns the highest-scoring usable identifier. Ties go to the
// identifier that appears first in available. Nil, empty, or fully filtered
// input yields the table's fallback.
func (s *Selector) Select(available []string) string {
	ranked := s.Ranked(available)
	if len(ranked) == 0 {
		return s.table.Fallback
	}
	return ranked[0].Model
}

// Ranked returns every usable identifier with its score, highest first.
// Identifiers with equal scores keep their input order.
func (s *Selector) Ranked(available []string) []Scored {
	out := make([]Scored, 0, len(available))
	for _, model := range available {
		if !s.usable(model) {
			continue
		}
		out = append(out, Scored{Model: model, Score: s.Score(model)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Score computes the additive score of a single identifier. Identifiers that
// match nothing score 0.
func (s *Selector) Score(model string) int {
	id := strings.ToLower(model)
	return bestMatch(id, s.table.Versions) +
		bestMatch(id, s.table.Tiers) +
		bestMatch(id, s.table.Experimental)
}

// Fallback returns the identifier used when nothing is selectable.
func (s *Selector) Fallback() string {
	return s.table.Fallback
}

func (s *Selector) usable(model string) bool {
	id := strings.ToLower(strings.TrimSpace(model))
	if id == "" {
		return false
	}
	for _, marker := range s.table.Disallowed {
		if marker != "" && strings.Contains(id, strings.ToLower(marker)) {
			return false
		}
	}
	return true
}

func bestMatch(id string, tokens []Token) int {
	best := 0
	for _, t := range tokens {
		if t.Match == "" {
			continue
		}
		if strings.Contains(id, strings.ToLower(t.Match)) && t.Points > best {
			best = t.Points
		}
	}
	return best
}
