// Package render turns a plan into a readable document.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/abdulachik/storyforge/internal/debate"
)

// CritiqueKey is the plan key holding the final critique of an approved plan.
const CritiqueKey = "red_team_critique"

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

	swotOrder = []string{"strength", "weakness", "opportunity", "threat"}
)

// Markdown renders plan as a Markdown document. Missing sections are
// skipped; unknown keys are ignored.
func Markdown(plan debate.Candidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", orDefault(str(plan["title"]), "Untitled"))

	var meta []string
	if g := str(plan["genre"]); g != "" {
		meta = append(meta, "**Genre:** "+g)
	}
	if a := str(plan["target_audience"]); a != "" {
		meta = append(meta, "**Audience:** "+a)
	}
	if v := str(plan["version"]); v != "" {
		meta = append(meta, "**Version:** "+v)
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " · ") + "\n\n")
	}
	if kw := strs(plan["keywords"]); len(kw) > 0 {
		b.WriteString(strings.Join(kw, " ") + "\n\n")
	}
	if l := str(plan["logline"]); l != "" {
		fmt.Fprintf(&b, "> %s\n\n", l)
	}

	section(&b, "Planning Intent", str(plan["planning_intent"]))
	characters(&b, plan["characters"])
	section(&b, "Synopsis", str(plan["synopsis"]))
	episodes(&b, plan["episode_plots"])
	list(&b, "Sales Points", strs(plan["sales_points"]))
	swot(&b, plan["swot_analysis"])
	critique(&b, plan[CritiqueKey])

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// HTML renders plan as a standalone HTML page.
func HTML(plan debate.Candidate) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(plan)), &body); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(orDefault(str(plan["title"]), "Untitled")))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

func section(b *strings.Builder, heading, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, strings.TrimSpace(text))
}

func list(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func characters(b *strings.Builder, v any) {
	chars := maps(v)
	if len(chars) == 0 {
		return
	}
	b.WriteString("## Characters\n\n")
	for _, c := range chars {
		name := orDefault(str(c["name"]), "Unnamed")
		line := "- **" + name + "**"
		if role := str(c["role"]); role != "" {
			line += " (" + titleCase(role) + ")"
		}
		if mbti := str(c["mbti"]); mbti != "" {
			line += " `" + strings.ToUpper(mbti) + "`"
		}
		if desc := str(c["desc"]); desc != "" {
			line += ": " + desc
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func episodes(b *strings.Builder, v any) {
	eps := maps(v)
	if len(eps) == 0 {
		return
	}
	b.WriteString("## Episodes\n\n| Ep | Title | Summary |\n|---|---|---|\n")
	for i, e := range eps {
		ep := str(e["ep"])
		if ep == "" {
			ep = fmt.Sprint(i + 1)
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", ep, cell(str(e["title"])), cell(str(e["summary"])))
	}
	b.WriteString("\n")
}

func swot(b *strings.Builder, v any) {
	m := asMap(v)
	if len(m) == 0 {
		return
	}
	b.WriteString("## SWOT\n\n")
	seen := make(map[string]bool)
	for _, k := range swotOrder {
		if s := str(m[k]); s != "" {
			fmt.Fprintf(b, "- **%s:** %s\n", titleCase(k), s)
		}
		seen[k] = true
	}
	var extra []string
	for k := range m {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if s := str(m[k]); s != "" {
			fmt.Fprintf(b, "- **%s:** %s\n", titleCase(k), s)
		}
	}
	b.WriteString("\n")
}

func critique(b *strings.Builder, v any) {
	m := asMap(v)
	if len(m) == 0 {
		return
	}
	b.WriteString("## Red Team Review\n\n")
	if s := str(m["score"]); s != "" {
		fmt.Fprintf(b, "**Score:** %s/100\n\n", s)
	}
	if s := str(m["critique_summary"]); s != "" {
		b.WriteString(s + "\n\n")
	}
	for _, f := range strs(m["fatal_flaws"]) {
		fmt.Fprintf(b, "- %s\n", f)
	}
	if flaws := strs(m["fatal_flaws"]); len(flaws) > 0 {
		b.WriteString("\n")
	}
	if s := str(m["improvement_instructions"]); s != "" {
		fmt.Fprintf(b, "**Next steps:** %s\n\n", s)
	}
}

// str formats scalars; whole floats print without a fraction.
func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case int:
		return fmt.Sprintf("%d", x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func strs(v any) []string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return []string{s}
		}
	case []string:
		return x
	case []any:
		var out []string
		for _, it := range x {
			if s := str(it); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func maps(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, it := range items {
		if m := asMap(it); len(m) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// asMap accepts decoded JSON objects as well as structs that marshal to one.
func asMap(v any) map[string]any {
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return x
	case debate.Candidate:
		return x
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return nil
	}
	return m
}

// titleCase builds a new Caser per call; Casers keep state.
func titleCase(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
