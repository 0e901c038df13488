package engine

import "strings"

// Task names the kind of work a model is being picked for.
type Task string

const (
	TaskCreative Task = "creative"
	TaskLogic    Task = "logic"
	TaskCoding   Task = "coding"
	TaskSpeed    Task = "speed"
)

// Provider names used by the lineup.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Tier names used by the lineup.
const (
	TierFlagship  = "flagship"
	TierFast      = "fast"
	TierReasoning = "reasoning"
	TierBalanced  = "balanced"
)

// Lineup maps provider -> tier -> model id. It is used when a provider
// cannot enumerate its models.
type Lineup map[string]map[string]string

// DefaultLineup is the static lineup known at build time.
func DefaultLineup() Lineup {
	return Lineup{
		ProviderGemini: {
			TierFlagship:  "gemini-3-pro",
			TierFast:      "gemini-3-flash",
			TierReasoning: "gemini-3-deep-think",
		},
		ProviderOpenAI: {
			TierFlagship:  "gpt-5.2",
			TierFast:      "gpt-5-mini",
			TierReasoning: "o3",
		},
		ProviderAnthropic: {
			TierFlagship: "claude-opus-4-1",
			TierBalanced: "claude-sonnet-4-20250514",
			TierFast:     "claude-3-5-haiku-latest",
		},
	}
}

type slot struct {
	provider string
	tier     string
}

// taskPreference lists, per task, the provider/tier pairs to try in order.
var taskPreference = map[Task][]slot{
	TaskCreative: {
		{ProviderGemini, TierFlagship},
		{ProviderOpenAI, TierFlagship},
		{ProviderAnthropic, TierFlagship},
	},
	TaskLogic: {
		{ProviderOpenAI, TierReasoning},
		{ProviderGemini, TierReasoning},
		{ProviderAnthropic, TierFlagship},
	},
	TaskCoding: {
		{ProviderOpenAI, TierReasoning},
		{ProviderGemini, TierFlagship},
	},
	TaskSpeed: {
		{ProviderGemini, TierFast},
		{ProviderOpenAI, TierFast},
		{ProviderAnthropic, TierFast},
	},
}

// ParseTask maps a free-form name onto a Task, defaulting to TaskCreative.
func ParseTask(name string) Task {
	switch Task(strings.ToLower(strings.TrimSpace(name))) {
	case TaskLogic:
		return TaskLogic
	case TaskCoding:
		return TaskCoding
	case TaskSpeed:
		return TaskSpeed
	default:
		return TaskCreative
	}
}

// ForTask returns the first lineup model for task whose provider is
// available according to hasKey. It falls back to FallbackModel.
func (l Lineup) ForTask(task Task, hasKey func(provider string) bool) string {
	for _, s := range taskPreference[task] {
		if hasKey != nil && !hasKey(s.provider) {
			continue
		}
		if model := l[s.provider][s.tier]; model != "" {
			return model
		}
	}
	return FallbackModel
}

// ForProvider returns the lineup model a single provider should use for
// task, preferring the tier the task asks of that provider and then its
// flagship. The empty string means the lineup knows nothing about provider.
func (l Lineup) ForProvider(provider string, task Task) string {
	tiers := l[provider]
	if len(tiers) == 0 {
		return ""
	}
	for _, s := range taskPreference[task] {
		if s.provider == provider && tiers[s.tier] != "" {
			return tiers[s.tier]
		}
	}
	return tiers[TierFlagship]
}

// Models lists every model the lineup knows for provider.
func (l Lineup) Models(provider string) []string {
	var out []string
	for _, tier := range []string{TierFlagship, TierReasoning, TierBalanced, TierFast} {
		if m := l[provider][tier]; m != "" {
			out = append(out, m)
		}
	}
	return out
}
