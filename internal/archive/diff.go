package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// VersionDiff is a line diff between two saved versions of a plan.
type VersionDiff struct {
	From  int
	To    int
	Diffs []diffmatchpatch.Diff
}

// Diff compares versions from and to of the project in dir. Both plans are
// re-indented first so formatting differences do not show up.
func Diff(dir string, from, to int) (*VersionDiff, error) {
	before, err := canonicalVersion(dir, from)
	if err != nil {
		return nil, err
	}
	after, err := canonicalVersion(dir, to)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	return &VersionDiff{From: from, To: to, Diffs: diffs}, nil
}

func canonicalVersion(dir string, n int) (string, error) {
	path, err := versionPath(dir, n)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read version %d: %w", n, err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(data), "", "  "); err != nil {
		// Unparsable files are compared as raw text.
		return string(data), nil
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

// Changed reports whether the two versions differ.
func (d *VersionDiff) Changed() bool {
	for _, diff := range d.Diffs {
		if diff.Type != diffmatchpatch.DiffEqual {
			return true
		}
	}
	return false
}

// Stats counts added and removed lines.
func (d *VersionDiff) Stats() (added, removed int) {
	for _, diff := range d.Diffs {
		n := len(splitLines(diff.Text))
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

// Unified renders the diff with "+", "-" and " " line prefixes. Unchanged
// runs longer than 2*context lines are collapsed.
func (d *VersionDiff) Unified(context int) string {
	var b strings.Builder
	added, removed := d.Stats()
	fmt.Fprintf(&b, "--- v%d\n+++ v%d\n@@ +%d -%d @@\n", d.From, d.To, added, removed)

	for i, diff := range d.Diffs {
		lines := splitLines(diff.Text)
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				b.WriteString("+" + l + "\n")
			}
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				b.WriteString("-" + l + "\n")
			}
		default:
			writeContext(&b, lines, context, i == 0, i == len(d.Diffs)-1)
		}
	}
	return b.String()
}

func writeContext(b *strings.Builder, lines []string, context int, first, last bool) {
	head, tail := context, context
	if first {
		head = 0
	}
	if last {
		tail = 0
	}
	if context < 0 || len(lines) <= head+tail {
		for _, l := range lines {
			b.WriteString(" " + l + "\n")
		}
		return
	}

	for _, l := range lines[:head] {
		b.WriteString(" " + l + "\n")
	}
	if skipped := len(lines) - head - tail; skipped > 0 {
		fmt.Fprintf(b, " ... %d unchanged lines\n", skipped)
	}
	for _, l := range lines[len(lines)-tail:] {
		b.WriteString(" " + l + "\n")
	}
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
