package planner

import "github.com/abdulachik/storyforge/internal/knowledge"

// systemPrompt sets the planner persona.
const systemPrompt = `You are the lead planner of a commercial web novel studio. You turn ideas into serial fiction proposals that editors can greenlight: a sharp hook, a protagonist with a clear desire and a real flaw, a supporting cast that pulls the plot forward, and a first arc that pays off early and often.

Write in the language of the request. Answer with a single JSON object and nothing else.`

// userPrompt is rendered with promptData.
const userPrompt = `# Task
{{.Instruction}}
Draft proposal V{{.Round}} following the plan template exactly.

# Requirements
1. Exactly 5 characters: 1 protagonist and 4 key supporting roles, each with a desire and a flaw.
2. The synopsis covers beginning, development, crisis and ending.
3. Outline episodes 1 to 5 with a title and the core event of each.
4. JSON only. No commentary, no code fences.
{{if .Materials.Rubric}}
# Evaluation rubric
{{.Materials.Rubric}}
{{end}}{{if .Materials.Trend}}
# Market trend
{{.Materials.Trend}}
{{end}}{{if .Materials.Tips}}
# Writing tips
{{.Materials.Tips}}
{{end}}{{if .Materials.Facts}}
# Setting facts
{{.Materials.Facts}}
{{end}}
# Editor feedback
{{if .Feedback}}{{.Feedback}}{{else}}None yet. This is the first draft.{{end}}

# Plan template
{{.Template}}`

// planTemplate is the JSON shape every draft must follow.
const planTemplate = `{
  "title": "Working title",
  "genre": "e.g. modern fantasy, regression, chaebol drama",
  "keywords": ["#tag1", "#tag2", "#tag3"],
  "target_audience": "Who pays for this",
  "logline": "One-sentence high-concept hook",
  "planning_intent": "Why this sells",
  "characters": [
    {"name": "Name", "role": "Protagonist", "mbti": "INTJ", "desc": "Personality, ability, desire, flaw"},
    {"name": "Name", "role": "Main villain", "desc": "Motive and relationship to the protagonist"}
  ],
  "synopsis": "Beginning, development, crisis and ending",
  "episode_plots": [
    {"ep": 1, "title": "Episode title", "summary": "Core event"}
  ],
  "sales_points": ["Point 1", "Point 2", "Point 3"],
  "swot_analysis": {"strength": "", "weakness": "", "opportunity": "", "threat": ""}
}`

// remakeInstruction carries the existing plan and the revision order in the
// feedback slot of a remake draft.
const remakeInstruction = `[Original plan]: %s
[Revision order]: %s

[Mission]
1. Apply the revision order in full.
2. Keep the plan template structure (title, logline, characters, SWOT, plots).
3. Add a "remake_analysis" field explaining what changed.
4. Output JSON only.`

// DefaultPrompts is the built-in planner prompt pair.
var DefaultPrompts = knowledge.PromptSet{
	System: systemPrompt,
	User:   userPrompt,
}
