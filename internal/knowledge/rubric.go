// Package knowledge gathers the reference material fed to the planner and
// critic prompts: the evaluation rubric, the trend report, writing tips and
// the fact library.
package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Criterion is one rubric category with its anchor descriptions.
type Criterion struct {
	Name    string
	Score1  string `yaml:"score_1_description"`
	Score5  string `yaml:"score_5_description"`
	Score10 string `yaml:"score_10_description"`
}

// Rubric is an ordered list of criteria. The raw file text is kept for
// prompts that quote the rubric verbatim.
type Rubric struct {
	Criteria []Criterion
	Raw      string
}

// ParseRubric reads a rubric document. JSON rubrics are accepted since yaml.v3
// parses them as flow mappings. Category order follows the document.
func ParseRubric(data []byte) (*Rubric, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rubric: %w", err)
	}

	r := &Rubric{Raw: strings.TrimSpace(string(data))}
	if len(doc.Content) == 0 {
		return r, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse rubric: expected a mapping, got %s", kindName(root.Kind))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]

		c := Criterion{Name: key.Value}
		switch val.Kind {
		case yaml.MappingNode:
			if err := val.Decode(&c); err != nil {
				return nil, fmt.Errorf("parse rubric criterion %q: %w", key.Value, err)
			}
			c.Name = key.Value
		case yaml.ScalarNode:
			c.Score10 = val.Value
		default:
			continue
		}
		r.Criteria = append(r.Criteria, c)
	}

	return r, nil
}

// LoadRubric reads the rubric at path. A missing file yields an empty rubric.
func LoadRubric(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Rubric{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	return ParseRubric(data)
}

// Empty reports whether the rubric has no content.
func (r *Rubric) Empty() bool {
	return r == nil || (len(r.Criteria) == 0 && r.Raw == "")
}

// Format renders the rubric as compact prompt text.
func (r *Rubric) Format() string {
	if r == nil {
		return ""
	}
	if len(r.Criteria) == 0 {
		return r.Raw
	}

	var b strings.Builder
	for _, c := range r.Criteria {
		fmt.Fprintf(&b, "## %s\n", c.Name)
		if c.Score1 != "" {
			fmt.Fprintf(&b, "- 1/10: %s\n", c.Score1)
		}
		if c.Score5 != "" {
			fmt.Fprintf(&b, "- 5/10: %s\n", c.Score5)
		}
		if c.Score10 != "" {
			fmt.Fprintf(&b, "- 10/10: %s\n", c.Score10)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
