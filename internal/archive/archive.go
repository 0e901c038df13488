// Package archive stores approved plans on disk, one folder per project and
// one JSON file per version.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/abdulachik/storyforge/internal/debate"
)

const (
	// LegacyPlanFile is the unversioned file older projects were saved as.
	LegacyPlanFile = "Approved_Plan.json"

	titleRunes = 10
)

var (
	// ErrNotFound is returned for a project folder that does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrOutsideRoot is returned for paths that escape the archive root.
	ErrOutsideRoot = errors.New("path is outside the archive")

	versionFile = regexp.MustCompile(`^Approved_Plan_v(\d+)\.json$`)
)

// VersionFile returns the file name of plan version n.
func VersionFile(n int) string {
	return fmt.Sprintf("Approved_Plan_v%d.json", n)
}

// Archive is a directory of project folders.
type Archive struct {
	root string
}

// New creates an archive rooted at dir.
func New(root string) *Archive {
	return &Archive{root: root}
}

// Root returns the archive directory.
func (a *Archive) Root() string {
	return a.root
}

// FolderName builds "YYYYMMDD_HHMM_<title>" with the title normalized to
// NFC, stripped of path-unsafe characters and cut to 10 runes.
func FolderName(title string, now time.Time) string {
	return now.Format("20060102_1504") + "_" + safeTitle(title)
}

func safeTitle(title string) string {
	title = norm.NFC.String(title)

	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(title) {
		if n == titleRunes {
			break
		}
		if unicode.IsControl(r) || strings.ContainsRune(`/\:*?"<>|`, r) {
			continue
		}
		b.WriteRune(r)
		n++
	}

	name := strings.Trim(b.String(), " .")
	if name == "" {
		return "Untitled"
	}
	return name
}

// Create makes the folder for a new project and returns its path. An
// existing folder with the same name is reused.
func (a *Archive) Create(title string, now time.Time) (string, error) {
	dir := filepath.Join(a.root, FolderName(title, now))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create project folder: %w", err)
	}
	return dir, nil
}

// SaveVersion writes plan as the next version in dir and returns the file
// path and version number.
func (a *Archive) SaveVersion(dir string, plan debate.Candidate) (string, int, error) {
	next, err := NextVersion(dir)
	if err != nil {
		return "", 0, err
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("marshal plan: %w", err)
	}

	path := filepath.Join(dir, VersionFile(next))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("write plan: %w", err)
	}

	slog.Info("plan saved", "path", path, "version", next)
	return path, next, nil
}

// NextVersion returns the version number the next save in dir will use.
// The legacy unversioned file counts as version 1.
func NextVersion(dir string) (int, error) {
	latest, err := LatestPlanFile(dir)
	if err != nil {
		return 0, err
	}
	if latest == "" {
		return 1, nil
	}

	name := filepath.Base(latest)
	if m := versionFile.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n + 1, nil
	}
	if name == LegacyPlanFile {
		return 2, nil
	}
	return 1, nil
}

// LatestPlanFile picks the file holding the newest plan in dir: the highest
// Approved_Plan_vN.json, else Approved_Plan.json, else the most recently
// modified draft. It returns "" when the folder holds no plan.
func LatestPlanFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return "", fmt.Errorf("read project folder: %w", err)
	}

	best := -1
	var bestName string
	hasLegacy := false
	var draft string
	var draftTime time.Time

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if m := versionFile.FindStringSubmatch(name); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > best {
				best, bestName = n, name
			}
			continue
		}
		if name == LegacyPlanFile {
			hasLegacy = true
			continue
		}
		if strings.Contains(name, "Draft") && strings.HasSuffix(name, ".json") {
			info, err := e.Info()
			if err != nil {
				continue
			}
			if draft == "" || info.ModTime().After(draftTime) {
				draft, draftTime = name, info.ModTime()
			}
		}
	}

	switch {
	case best >= 0:
		return filepath.Join(dir, bestName), nil
	case hasLegacy:
		return filepath.Join(dir, LegacyPlanFile), nil
	case draft != "":
		return filepath.Join(dir, draft), nil
	}
	return "", nil
}

// Versions lists the version numbers saved in dir, ascending. The legacy
// file is reported as version 1 when no v1 file exists.
func Versions(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("read project folder: %w", err)
	}

	var versions []int
	legacy := false
	for _, e := range entries {
		if m := versionFile.FindStringSubmatch(e.Name()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				versions = append(versions, n)
			}
		} else if e.Name() == LegacyPlanFile {
			legacy = true
		}
	}
	if legacy && !slices.Contains(versions, 1) {
		versions = append(versions, 1)
	}
	slices.Sort(versions)
	return versions, nil
}

// versionPath resolves version n in dir to a file, falling back to the
// legacy file for version 1.
func versionPath(dir string, n int) (string, error) {
	path := filepath.Join(dir, VersionFile(n))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if n == 1 {
		legacy := filepath.Join(dir, LegacyPlanFile)
		if _, err := os.Stat(legacy); err == nil {
			return legacy, nil
		}
	}
	return "", fmt.Errorf("version %d not found in %s", n, filepath.Base(dir))
}

// Resolve turns a project folder name, or a path to one, into a folder
// inside the archive.
func (a *Archive) Resolve(name string) (string, error) {
	root, err := filepath.Abs(a.root)
	if err != nil {
		return "", fmt.Errorf("resolve archive root: %w", err)
	}

	dir := filepath.Join(root, name)
	if filepath.IsAbs(name) || strings.ContainsRune(filepath.Clean(name), filepath.Separator) {
		if dir, err = filepath.Abs(name); err != nil {
			return "", fmt.Errorf("resolve project: %w", err)
		}
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return dir, nil
}

// Delete removes a project folder.
func (a *Archive) Delete(name string) error {
	dir, err := a.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	slog.Info("project deleted", "path", dir)
	return nil
}
