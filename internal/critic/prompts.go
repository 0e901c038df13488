package critic

import "github.com/abdulachik/storyforge/internal/knowledge"

const systemPrompt = `You are a logic auditor and the most demanding chief editor in web fiction. You hunt plot holes, time paradoxes, lazy causality and characters who act against their own nature, and you judge whether the proposal can sell. Answer with a single JSON object and nothing else.`

// fewShot shows the level of precision expected from a critique.
const fewShot = `[Case 1: timeline error]
Input: "January 1997. The hero trades stocks on his smartphone..."
Critique: "FATAL. Smartphones did not exist in 1997 and online brokerage was in its infancy. Period research failed."

[Case 2: causality error]
Input: "The regressor leaks a rival's secrets and takes the market. The rival never reacts and goes bankrupt."
Critique: "LOGIC. No butterfly effect. A competent rival audits the leak and counterattacks. The plot is contrived."`

// userPrompt is rendered with promptData.
const userPrompt = `# Reference
{{if .Materials.Rubric}}- Evaluation rubric:
{{.Materials.Rubric}}
{{end}}{{if .Materials.Trend}}- Market trend: {{.Materials.Trend}}
{{end}}{{if .Materials.Facts}}- Fact check: {{.Materials.Facts}}
{{end}}{{if .Materials.Tips}}- Writing standard: {{.Materials.Tips}}
{{end}}
# Proposal V{{.Round}}
{{.Plan}}

# Audit protocol
1. Timeline: build the timeline of events. Is each event physically and historically possible?
2. Causality: when the protagonist acts, does the world react the way it realistically would?
3. Character consistency: do actions match each character's stated personality and flaw?
4. Market fit: against the trend, is this fresh or a cliche?

# Examples
{{.Examples}}

# Output
JSON only, in the language of the proposal:
{
  "score": 0-100 integer,
  "status": "PASS" if score >= {{.Threshold}} else "REJECT",
  "critique_summary": "The single biggest flaw in one sentence",
  "fatal_flaws": ["1. Timeline error: ...", "2. Logic error: ..."],
  "improvement_instructions": "Specific, actionable fixes for the planner"
}`

// DefaultPrompts is the built-in critic prompt pair.
var DefaultPrompts = knowledge.PromptSet{
	System: systemPrompt,
	User:   userPrompt,
}

const rubricAnalystSystem = `You are an elite web novel trend analyst. You find the unwritten rules that make serial fiction sell.`

// rubricAnalystUser takes the concatenated knowledge files.
const rubricAnalystUser = `Extract the rules of success from the writing tips and facts below. Think along three branches before you conclude:

1. Market logic: what makes readers pay? Name the triggers (cliffhangers, hot tropes, regression).
2. Emotional logic: why do readers love a character? Define the fatal flaw and the charm.
3. Structural logic: how fast must the plot move? Define the rhythm of payoffs.

Merge the branches into one report on what makes a web novel sell now. Quote the specific keywords found in the data.

# Data
%s`

const rubricLegislatorSystem = `You are a cold, exact rule writer. Output JSON only.`

// rubricLegislatorUser takes the analyst report.
const rubricLegislatorUser = `Codify the analyst report below into an evaluation rubric.

Work in three steps: draft the criteria, then replace every vague phrase with a testable one ("good character" becomes "the character acts on a clear desire and lack"; "fast paced" becomes "a major event every 2 episodes"), then output the final JSON.

# Report
%s

# Output
A JSON object with exactly these keys, in this order:
- "Commerciality": market fit, title, keywords
- "Character": agency, charm, villain
- "Plot_Pacing": payoff frequency, limits on frustration arcs
- "Episode_Hook": cliffhangers and endings

Each key maps to an object with "score_1_description" (what fails), "score_5_description" (what is average) and "score_10_description" (what is a masterpiece).

Return the JSON only.`
