package writer

import "github.com/abdulachik/storyforge/internal/knowledge"

const treatmentSystem = `You are the lead storyboard artist of a top-tier web novel studio. You break an approved plan into scenes a writer can draft from without guessing. Answer in Markdown only.`

// treatmentUser is rendered with treatmentData.
const treatmentUser = `# Task
Write a scene-by-scene treatment for episode {{.Episode}}.

# Project
- Title: {{.Title}}
- Genre: {{.Genre}}
- Logline: {{.Logline}}
- Synopsis: {{.Synopsis}}
{{if .Outline}}- Episode {{.Episode}} outline: {{.Outline}}
{{end}}{{if .Tips}}
# Plot tips
{{.Tips}}
{{end}}
# Breakdown
Split the episode into 4 to 6 scenes. For each scene give:
1. Header: "## Scene N: location / time"
2. Characters on stage
3. Action, with concrete details
4. Conflict and the point of tension
5. Objective: what the scene does for the story

Open the episode on a hook and close it on a cliffhanger.
Start with "# {{.Title}} - Episode {{.Episode}} Treatment".`

const episodeSystem = `You are a best-selling web novel author. You write fast, immersive serial fiction that makes readers pay for the next episode.`

// episodeUser is rendered with episodeData.
const episodeUser = `# Task
Write the full manuscript of episode {{.Episode}}.

# Project
- Title: {{.Title}}
- Genre: {{.Genre}}
{{if .Settings}}
# World settings
{{.Settings}}
{{end}}{{if .Style}}
# Style tips
{{.Style}}
{{end}}
# Treatment
{{.Treatment}}

# Rules
1. Write in {{.Language}}, in natural web novel prose.
2. Follow the world settings exactly: names, places and rules of magic.
3. Keep the pacing fast and rewarding.
4. End on a cliffhanger.
5. Aim for 3000 to 5000 characters.

Start with the story text itself. No preface, no notes.`

// DefaultTreatmentPrompts is the built-in treatment prompt pair.
var DefaultTreatmentPrompts = knowledge.PromptSet{
	System: treatmentSystem,
	User:   treatmentUser,
}

// DefaultEpisodePrompts is the built-in episode prompt pair.
var DefaultEpisodePrompts = knowledge.PromptSet{
	System: episodeSystem,
	User:   episodeUser,
}
