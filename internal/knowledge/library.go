package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Kinds of knowledge files.
const (
	KindTip     = "tip"
	KindFact    = "fact"
	KindSetting = "setting"
)

// Passage is a piece of a knowledge file, as stored in and returned by a
// Searcher.
type Passage struct {
	Kind   string
	Source string
	Index  int
	Text   string
	Score  float32
}

// Searcher finds passages of a kind relevant to a query.
type Searcher interface {
	SearchKind(ctx context.Context, query, kind string, k int) ([]Passage, error)
}

// Profile bounds how much material is pulled into one prompt. Counts of
// zero mean "all files"; char limits of zero mean "no limit".
type Profile struct {
	Tips        int
	TipChars    int
	Facts       int
	FactChars   int
	FactTotal   int
	TrendChars  int
	RubricChars int
}

// PlannerProfile feeds the planner a wide sample of tips and the whole fact
// library.
var PlannerProfile = Profile{
	Tips:       15,
	TipChars:   5000,
	FactChars:  15000,
	FactTotal:  30000,
	TrendChars: 1000,
}

// CriticProfile gives the critic one tip and one fact sheet.
var CriticProfile = Profile{
	Tips:        1,
	TipChars:    1000,
	Facts:       1,
	FactChars:   3000,
	TrendChars:  1000,
	RubricChars: 1000,
}

// searchK is the passage count requested when a profile asks for all files.
const searchK = 8

// Materials is the prompt-ready reference text.
type Materials struct {
	Rubric string
	Trend  string
	Tips   string
	Facts  string
}

// Config holds the knowledge file locations.
type Config struct {
	RubricPath  string
	TrendPath   string
	TipsDir     string
	FactsDir    string
	SettingsDir string // world-building notes quoted when writing episodes
	// Seed makes file sampling reproducible when non-zero.
	Seed uint64
}

// Library reads knowledge files and samples them for prompts.
type Library struct {
	cfg      Config
	searcher Searcher

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLibrary creates a library over the configured files.
func NewLibrary(cfg Config) *Library {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Library{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// WithSearcher attaches a vector index. Tips and facts are then retrieved
// by relevance to the gather query instead of sampled.
func (l *Library) WithSearcher(s Searcher) *Library {
	l.searcher = s
	return l
}

// Gather collects materials bounded by p. The query, usually the latest
// critique, steers passage retrieval when a searcher is attached.
func (l *Library) Gather(ctx context.Context, p Profile, query string) (Materials, error) {
	var m Materials

	if l.cfg.RubricPath != "" {
		rubric, err := LoadRubric(l.cfg.RubricPath)
		if err != nil {
			return m, err
		}
		m.Rubric = truncate(rubric.Format(), p.RubricChars)
	}

	if l.cfg.TrendPath != "" {
		data, err := os.ReadFile(l.cfg.TrendPath)
		if err != nil && !os.IsNotExist(err) {
			return m, fmt.Errorf("read trend report: %w", err)
		}
		m.Trend = truncate(strings.TrimSpace(string(data)), p.TrendChars)
	}

	tips, err := l.section(ctx, KindTip, "Writing Tip", p.Tips, p.TipChars, 0, query)
	if err != nil {
		return m, err
	}
	m.Tips = tips

	facts, err := l.section(ctx, KindFact, "Fact DB", p.Facts, p.FactChars, p.FactTotal, query)
	if err != nil {
		return m, err
	}
	m.Facts = facts

	return m, nil
}

func (l *Library) section(ctx context.Context, kind, label string, count, perItem, total int, query string) (string, error) {
	if l.searcher != nil && strings.TrimSpace(query) != "" {
		k := count
		if k <= 0 {
			k = searchK
		}
		passages, err := l.searcher.SearchKind(ctx, query, kind, k)
		if err != nil {
			slog.Warn("knowledge search failed, sampling files", "kind", kind, "error", err)
		} else if len(passages) > 0 {
			var b strings.Builder
			for _, ps := range passages {
				fmt.Fprintf(&b, "\n[%s: %s]\n%s\n", label, ps.Source, truncate(ps.Text, perItem))
			}
			return truncate(b.String(), total), nil
		}
	}

	files, err := l.Files(kind)
	if err != nil {
		return "", err
	}
	files = l.sample(files, count)

	var b strings.Builder
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("skip unreadable knowledge file", "path", path, "error", err)
			continue
		}
		fmt.Fprintf(&b, "\n[%s: %s]\n%s\n", label, filepath.Base(path), truncate(string(data), perItem))
	}
	return truncate(b.String(), total), nil
}

// Files lists the .md and .txt files of a kind, sorted. A missing directory
// yields no files.
func (l *Library) Files(kind string) ([]string, error) {
	var dir string
	switch kind {
	case KindTip:
		dir = l.cfg.TipsDir
	case KindFact:
		dir = l.cfg.FactsDir
	case KindSetting:
		dir = l.cfg.SettingsDir
	default:
		return nil, fmt.Errorf("unknown knowledge kind %q", kind)
	}
	if dir == "" {
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s files: %w", kind, err)
	}

	slices.Sort(files)
	return files, nil
}

// Select quotes up to n files of a kind, perItem runes each, under label.
// With keywords, only files whose name contains one of them (case
// insensitive) qualify. Files are taken in name order.
func (l *Library) Select(kind, label string, keywords []string, n, perItem int) (string, error) {
	files, err := l.Files(kind)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	picked := 0
	for _, path := range files {
		if n > 0 && picked == n {
			break
		}
		if len(keywords) > 0 && !nameHasAny(filepath.Base(path), keywords) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Debug("skip unreadable knowledge file", "path", path, "error", err)
			continue
		}
		fmt.Fprintf(&b, "\n[%s: %s]\n%s\n", label, filepath.Base(path), truncate(string(data), perItem))
		picked++
	}
	return b.String(), nil
}

func nameHasAny(name string, keywords []string) bool {
	name = strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// sample picks n files at random, or all of them when n <= 0.
func (l *Library) sample(files []string, n int) []string {
	if n <= 0 || n >= len(files) {
		return files
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	picked := slices.Clone(files)
	l.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	return picked[:n]
}

// truncate cuts s to at most n runes; n <= 0 leaves s untouched.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
