package knowledge

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptSet is a system/user prompt pair. Both halves are text/template
// sources.
type PromptSet struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// LoadPromptSet reads a YAML prompt override from path. A missing file, or
// a field left empty in it, falls back to the built-in prompt.
func LoadPromptSet(path string, builtin PromptSet) (PromptSet, error) {
	if path == "" {
		return builtin, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return builtin, nil
	}
	if err != nil {
		return builtin, fmt.Errorf("read prompt file: %w", err)
	}

	var override PromptSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return builtin, fmt.Errorf("parse prompt file %s: %w", path, err)
	}

	if strings.TrimSpace(override.System) == "" {
		override.System = builtin.System
	}
	if strings.TrimSpace(override.User) == "" {
		override.User = builtin.User
	}
	return override, nil
}

// Render executes both templates against data.
func (p PromptSet) Render(data any) (system, user string, err error) {
	system, err = render("system", p.System, data)
	if err != nil {
		return "", "", err
	}
	user, err = render("user", p.User, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func render(name, src string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s prompt: %w", name, err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
