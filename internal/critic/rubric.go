package critic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/llm"
)

// RubricCategories are the criteria every built rubric defines.
var RubricCategories = []string{"Commerciality", "Character", "Plot_Pacing", "Episode_Hook"}

var (
	// ErrNoSources is returned when there are no tips or facts to learn from.
	ErrNoSources = errors.New("no knowledge files to build a rubric from")
	// ErrIncompleteRubric is returned when the model leaves out a category
	// or one of its score anchors.
	ErrIncompleteRubric = errors.New("rubric is incomplete")
)

const defaultSourceChars = 100000

// RubricMakerConfig holds configuration for the rubric maker.
type RubricMakerConfig struct {
	// Analyst distills the knowledge files into a report.
	Analyst Completer
	// Legislator turns the report into the rubric JSON.
	Legislator Completer
	Library    *knowledge.Library
	// SourceChars caps the knowledge text sent to the analyst (default 100000).
	SourceChars int
}

// RubricMaker builds the evaluation rubric from the knowledge library in two
// passes: an analyst report on what sells, then a strict JSON codification.
type RubricMaker struct {
	analyst     Completer
	legislator  Completer
	library     *knowledge.Library
	sourceChars int
}

// NewRubricMaker creates a RubricMaker.
func NewRubricMaker(cfg RubricMakerConfig) *RubricMaker {
	chars := cfg.SourceChars
	if chars <= 0 {
		chars = defaultSourceChars
	}
	return &RubricMaker{
		analyst:     cfg.Analyst,
		legislator:  cfg.Legislator,
		library:     cfg.Library,
		sourceChars: chars,
	}
}

// BuiltRubric is a validated rubric and the material it came from.
type BuiltRubric struct {
	Rubric  *knowledge.Rubric
	JSON    []byte
	Report  string
	Sources []string
}

// Build reads every tip and fact file, asks the analyst for a report and the
// legislator for the rubric, and validates the result. Nothing is written.
func (m *RubricMaker) Build(ctx context.Context) (*BuiltRubric, error) {
	sources, text, err := m.sources()
	if err != nil {
		return nil, err
	}
	slog.Info("building rubric", "sources", len(sources), "chars", len([]rune(text)))

	report, err := m.analyst.Complete(ctx, llm.Request{
		System:      rubricAnalystSystem,
		User:        fmt.Sprintf(rubricAnalystUser, text),
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze knowledge: %w", err)
	}
	if strings.TrimSpace(report.Text) == "" {
		return nil, fmt.Errorf("analyze knowledge: empty report from %s/%s", report.Provider, report.Model)
	}
	slog.Info("knowledge analyzed", "provider", report.Provider, "model", report.Model)

	resp, err := m.legislator.Complete(ctx, llm.Request{
		System:      rubricLegislatorSystem,
		User:        fmt.Sprintf(rubricLegislatorUser, strings.TrimSpace(report.Text)),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("codify rubric: %w", err)
	}

	data, rubric, err := parseBuiltRubric(resp.Text)
	if err != nil {
		return nil, err
	}
	slog.Info("rubric built", "criteria", len(rubric.Criteria), "provider", resp.Provider, "model", resp.Model)

	return &BuiltRubric{
		Rubric:  rubric,
		JSON:    data,
		Report:  strings.TrimSpace(report.Text),
		Sources: sources,
	}, nil
}

// sources concatenates the tip and fact files under source markers.
func (m *RubricMaker) sources() ([]string, string, error) {
	if m.library == nil {
		return nil, "", ErrNoSources
	}

	var names []string
	var b strings.Builder
	for _, kind := range []string{knowledge.KindTip, knowledge.KindFact} {
		files, err := m.library.Files(kind)
		if err != nil {
			return nil, "", err
		}
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Debug("skip unreadable knowledge file", "path", path, "error", err)
				continue
			}
			names = append(names, filepath.Base(path))
			fmt.Fprintf(&b, "\n--- Source: %s ---\n%s\n", filepath.Base(path), data)
		}
	}
	if len(names) == 0 {
		return nil, "", ErrNoSources
	}
	return names, cutRunes(b.String(), m.sourceChars), nil
}

// parseBuiltRubric extracts the JSON object from a model answer, checks
// that every category carries all three anchors and re-indents it with
// the category order kept.
func parseBuiltRubric(text string) ([]byte, *knowledge.Rubric, error) {
	obj := llm.ExtractObject(llm.StripFences(text))
	if obj == "" {
		return nil, nil, fmt.Errorf("codify rubric: %w", llm.ErrNoJSON)
	}
	if !json.Valid([]byte(obj)) {
		return nil, nil, fmt.Errorf("codify rubric: answer is not valid JSON")
	}

	rubric, err := knowledge.ParseRubric([]byte(obj))
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]knowledge.Criterion, len(rubric.Criteria))
	for _, c := range rubric.Criteria {
		byName[c.Name] = c
	}
	var missing []string
	for _, name := range RubricCategories {
		c, ok := byName[name]
		switch {
		case !ok:
			missing = append(missing, name)
		case c.Score1 == "" || c.Score5 == "" || c.Score10 == "":
			missing = append(missing, name+" anchors")
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing %s", ErrIncompleteRubric, strings.Join(missing, ", "))
	}

	var out bytes.Buffer
	if err := json.Indent(&out, []byte(obj), "", "  "); err != nil {
		return nil, nil, fmt.Errorf("format rubric: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), rubric, nil
}

// SaveRubric writes data to path through a temporary file, so a failed
// write leaves the previous rubric in place.
func SaveRubric(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create rubric folder: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rubric-*.json")
	if err != nil {
		return fmt.Errorf("write rubric: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write rubric: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write rubric: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write rubric: %w", err)
	}
	slog.Info("rubric saved", "path", path)
	return nil
}

func cutRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
