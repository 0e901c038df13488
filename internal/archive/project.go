package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/abdulachik/storyforge/internal/debate"
)

// Keys of the nested plan format written by early versions of the studio.
const (
	legacyInfoKey    = "1_작품_기본_정보"
	legacyTitleKey   = "제목"
	legacyGenreKey   = "장르"
	legacyLoglineKey = "3_작품_소개_로그라인"
)

// Project is a loaded project folder. A folder whose plan cannot be read
// is still returned, marked Corrupted with the reason in Problem.
type Project struct {
	Name      string
	Dir       string
	File      string
	Plan      debate.Candidate
	Legacy    bool
	Corrupted bool
	Problem   string
	ModTime   time.Time
}

// Title returns the plan title or the folder name.
func (p *Project) Title() string {
	if t, ok := p.Plan["title"].(string); ok && t != "" {
		return t
	}
	return p.Name
}

// LoadProject reads the latest plan in dir. Read and parse failures are
// reported on the project rather than returned.
func LoadProject(dir string) (*Project, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	p := &Project{
		Name:    filepath.Base(dir),
		Dir:     dir,
		ModTime: info.ModTime(),
	}

	file, err := LatestPlanFile(dir)
	if err != nil {
		return nil, err
	}
	if file == "" {
		p.corrupt("no plan file")
		return p, nil
	}
	p.File = file

	plan, err := readPlan(file)
	if err != nil {
		p.corrupt(err.Error())
		return p, nil
	}

	if _, ok := plan[legacyInfoKey]; ok {
		p.Plan = flattenLegacy(plan, p.Name)
		p.Legacy = true
		return p, nil
	}

	p.Plan = plan
	return p, nil
}

func (p *Project) corrupt(reason string) {
	p.Corrupted = true
	p.Problem = reason
	p.Plan = debate.Candidate{
		"title":      p.Name,
		"genre":      "Error",
		"logline":    "Corrupted data: " + reason,
		"synopsis":   "The plan could not be read. Remake the project to recover it.",
		"characters": []any{},
	}
}

func readPlan(path string) (debate.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.New("empty file")
	}

	var plan debate.Candidate
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if plan == nil {
		return nil, errors.New("plan is null")
	}
	return plan, nil
}

// flattenLegacy maps the nested format onto the flat plan keys.
func flattenLegacy(plan debate.Candidate, folder string) debate.Candidate {
	info, _ := plan[legacyInfoKey].(map[string]any)

	title, _ := info[legacyTitleKey].(string)
	if title == "" {
		title = folder
	}
	genre, _ := info[legacyGenreKey].(string)
	if genre == "" {
		genre = "Unknown"
	}
	logline, _ := plan[legacyLoglineKey].(string)
	if logline == "" {
		logline = "No logline"
	}

	return debate.Candidate{
		"title":      title,
		"genre":      genre,
		"logline":    logline,
		"synopsis":   "Legacy plan. Remaking it is recommended.",
		"characters": []any{},
		"version":    "Old",
	}
}

// List loads every project folder, newest first. Hidden folders are
// skipped. A missing archive root is an empty archive.
func (a *Archive) List() ([]*Project, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}

	var projects []*Project
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := LoadProject(filepath.Join(a.root, e.Name()))
		if err != nil {
			continue
		}
		projects = append(projects, p)
	}

	sort.SliceStable(projects, func(i, j int) bool {
		if !projects[i].ModTime.Equal(projects[j].ModTime) {
			return projects[i].ModTime.After(projects[j].ModTime)
		}
		return projects[i].Name > projects[j].Name
	})
	return projects, nil
}

// Load resolves name inside the archive and loads it.
func (a *Archive) Load(name string) (*Project, error) {
	dir, err := a.Resolve(name)
	if err != nil {
		return nil, err
	}
	return LoadProject(dir)
}
