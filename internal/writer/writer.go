// Package writer turns an approved plan into production drafts: a
// scene-by-scene treatment first, then the episode manuscript written from
// it. Both are saved in the project folder next to the plan.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdulachik/storyforge/internal/archive"
	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/llm"
)

var (
	// ErrNoTreatment is returned when an episode is requested before its
	// treatment exists.
	ErrNoTreatment = errors.New("no treatment for episode")
	// ErrUnusablePlan is returned for a project whose plan could not be read.
	ErrUnusablePlan = errors.New("project has no usable plan")
)

// File name keywords that mark plot and style tips.
var (
	plotKeywords  = []string{"도입부", "플롯", "구조", "전개", "opening", "plot", "structure", "pacing"}
	styleKeywords = []string{"문장", "묘사", "style", "prose", "sentence", "description"}
)

// Scene counts a treatment is asked for.
const (
	MinScenes = 4
	MaxScenes = 6
)

var sceneHeader = regexp.MustCompile(`(?im)^\s*(#+\s*|\[)\s*scene\b`)

// TreatmentFile is the file name of the treatment of episode n.
func TreatmentFile(n int) string {
	return fmt.Sprintf("Treatment_EP%02d.md", n)
}

// EpisodeFile is the file name of the manuscript of episode n.
func EpisodeFile(n int) string {
	return fmt.Sprintf("Episode_EP%02d.md", n)
}

// Completer is the part of llm.Chain the writer needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Config holds configuration for the writer.
type Config struct {
	Chain            Completer
	Library          *knowledge.Library
	TreatmentPrompts knowledge.PromptSet
	EpisodePrompts   knowledge.PromptSet
	// Language of the manuscript (default: Korean).
	Language string
}

// Writer drafts treatments and episodes.
type Writer struct {
	chain     Completer
	library   *knowledge.Library
	treatment knowledge.PromptSet
	episode   knowledge.PromptSet
	language  string
}

// New creates a new Writer.
func New(cfg Config) *Writer {
	w := &Writer{
		chain:     cfg.Chain,
		library:   cfg.Library,
		treatment: withDefaults(cfg.TreatmentPrompts, DefaultTreatmentPrompts),
		episode:   withDefaults(cfg.EpisodePrompts, DefaultEpisodePrompts),
		language:  cfg.Language,
	}
	if w.language == "" {
		w.language = "Korean"
	}
	return w
}

func withDefaults(p, builtin knowledge.PromptSet) knowledge.PromptSet {
	if p.System == "" {
		p.System = builtin.System
	}
	if p.User == "" {
		p.User = builtin.User
	}
	return p
}

// Draft is a saved treatment or episode.
type Draft struct {
	Episode  int
	Text     string
	Path     string
	Scenes   int // treatments only
	Provider string
	Model    string
}

type treatmentData struct {
	Episode  int
	Title    string
	Genre    string
	Logline  string
	Synopsis string
	Outline  string
	Tips     string
}

type episodeData struct {
	Episode   int
	Title     string
	Genre     string
	Settings  string
	Style     string
	Treatment string
	Language  string
}

// Treatment breaks episode of project into scenes and saves the result as
// TreatmentFile(episode), replacing any earlier treatment.
func (w *Writer) Treatment(ctx context.Context, project *archive.Project, episode int) (*Draft, error) {
	if err := checkInput(project, episode); err != nil {
		return nil, err
	}

	var tips string
	if w.library != nil {
		var err error
		if tips, err = w.library.Select(knowledge.KindTip, "Tip", plotKeywords, 5, 1500); err != nil {
			return nil, fmt.Errorf("gather plot tips: %w", err)
		}
	}

	plan := project.Plan
	system, user, err := w.treatment.Render(treatmentData{
		Episode:  episode,
		Title:    project.Title(),
		Genre:    field(plan, "genre"),
		Logline:  field(plan, "logline"),
		Synopsis: field(plan, "synopsis"),
		Outline:  outline(plan, episode),
		Tips:     tips,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("writing treatment", "project", project.Name, "episode", episode)

	d, err := w.complete(ctx, system, user, 0.8)
	if err != nil {
		return nil, fmt.Errorf("write treatment: %w", err)
	}
	d.Episode = episode
	d.Scenes = CountScenes(d.Text)
	if d.Scenes < MinScenes || d.Scenes > MaxScenes {
		slog.Warn("treatment scene count out of range",
			"episode", episode,
			"scenes", d.Scenes,
			"want_min", MinScenes,
			"want_max", MaxScenes,
		)
	}

	if d.Path, err = save(project.Dir, TreatmentFile(episode), d.Text); err != nil {
		return nil, err
	}
	slog.Info("treatment saved", "path", d.Path, "scenes", d.Scenes, "model", d.Model)
	return d, nil
}

// Episode writes the manuscript of episode from treatment and saves it as
// EpisodeFile(episode). An empty treatment is read from the project
// folder, so a hand-edited treatment is what the model works from.
func (w *Writer) Episode(ctx context.Context, project *archive.Project, episode int, treatment string) (*Draft, error) {
	if err := checkInput(project, episode); err != nil {
		return nil, err
	}

	if strings.TrimSpace(treatment) == "" {
		data, err := os.ReadFile(filepath.Join(project.Dir, TreatmentFile(episode)))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w %d: run the treatment stage first", ErrNoTreatment, episode)
		}
		if err != nil {
			return nil, fmt.Errorf("read treatment: %w", err)
		}
		treatment = string(data)
	}
	if strings.TrimSpace(treatment) == "" {
		return nil, fmt.Errorf("%w %d: treatment file is empty", ErrNoTreatment, episode)
	}

	var settings, style string
	if w.library != nil {
		var err error
		if settings, err = w.library.Select(knowledge.KindSetting, "Setting", nil, 5, 1000); err != nil {
			return nil, fmt.Errorf("gather settings: %w", err)
		}
		if style, err = w.library.Select(knowledge.KindTip, "Style Tip", styleKeywords, 3, 1000); err != nil {
			return nil, fmt.Errorf("gather style tips: %w", err)
		}
	}

	system, user, err := w.episode.Render(episodeData{
		Episode:   episode,
		Title:     project.Title(),
		Genre:     field(project.Plan, "genre"),
		Settings:  settings,
		Style:     style,
		Treatment: strings.TrimSpace(treatment),
		Language:  w.language,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("writing episode", "project", project.Name, "episode", episode)

	d, err := w.complete(ctx, system, user, 0.9)
	if err != nil {
		return nil, fmt.Errorf("write episode: %w", err)
	}
	d.Episode = episode

	if d.Path, err = save(project.Dir, EpisodeFile(episode), d.Text); err != nil {
		return nil, err
	}
	slog.Info("episode saved", "path", d.Path, "chars", len([]rune(d.Text)), "model", d.Model)
	return d, nil
}

func (w *Writer) complete(ctx context.Context, system, user string, temperature float64) (*Draft, error) {
	resp, err := w.chain.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}

	text := unfence(resp.Text)
	if text == "" {
		return nil, fmt.Errorf("model %s/%s returned no text", resp.Provider, resp.Model)
	}
	return &Draft{Text: text, Provider: resp.Provider, Model: resp.Model}, nil
}

// unfence drops a code fence wrapped around the whole answer, language tag
// included. Fences inside the text are kept.
func unfence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	body := strings.TrimSuffix(text, "```")
	if _, rest, ok := strings.Cut(body, "\n"); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func checkInput(project *archive.Project, episode int) error {
	if episode < 1 {
		return fmt.Errorf("episode must be 1 or more, got %d", episode)
	}
	if project.Corrupted {
		return fmt.Errorf("%w: %s: %s", ErrUnusablePlan, project.Name, project.Problem)
	}
	return nil
}

func save(dir, name, text string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// CountScenes counts scene headers ("## Scene 2", "[Scene 2]") in a
// treatment.
func CountScenes(text string) int {
	return len(sceneHeader.FindAllStringIndex(text, -1))
}

// field renders a plan value as prompt text.
func field(plan debate.Candidate, key string) string {
	switch v := plan[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

// outline finds the plan's summary of episode. Plans from early versions
// of the studio only carry ep1_core_points.
func outline(plan debate.Candidate, episode int) string {
	plots, _ := plan["episode_plots"].([]any)
	for _, p := range plots {
		entry, ok := p.(map[string]any)
		if !ok || episodeNumber(entry["ep"]) != episode {
			continue
		}
		title, _ := entry["title"].(string)
		summary, _ := entry["summary"].(string)
		switch {
		case title != "" && summary != "":
			return title + ": " + summary
		case summary != "":
			return summary
		default:
			return title
		}
	}
	if episode == 1 {
		return field(plan, "ep1_core_points")
	}
	return ""
}

func episodeNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(n))
		return i
	}
	return 0
}
