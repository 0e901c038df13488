package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/engine"
)

// KnownProviders lists the provider names PROVIDER_ORDER may contain.
var KnownProviders = []string{
	engine.ProviderGemini,
	engine.ProviderOpenAI,
	engine.ProviderAnthropic,
	engine.ProviderOllama,
}

// Config holds all application configuration.
type Config struct {
	// Storage
	DatabasePath  string
	StudioDir     string // project folders (default: data/studio)
	VecLitePath   string // knowledge vectors (default: data/knowledge.veclite)
	VecLiteConfig string // optional veclite embedder config file

	// Knowledge
	RubricPath        string
	TrendPath         string
	TipsDir           string
	FactsDir          string
	SettingsDir       string // world-building notes for the episode writer
	PlannerPromptPath string // optional YAML override of the planner prompt
	CriticPromptPath  string // optional YAML override of the critic prompt
	KnowledgeSeed     uint64 // 0 samples differently every run

	// Providers
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	OllamaModel     string
	ProviderOrder   []string
	PlannerModel    string // "model" or "provider:model,provider:model"
	CriticModel     string
	WriterModel     string
	RequestTimeout  time.Duration

	// Debate loop
	MaxRounds     int
	PassThreshold int
	Retention     string
	CallPause     time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:      getEnv("DATABASE_PATH", "data/storyforge.db"),
		StudioDir:         getEnv("STUDIO_DIR", "data/studio"),
		VecLitePath:       getEnv("VECLITE_PATH", "data/knowledge.veclite"),
		VecLiteConfig:     getEnv("VECLITE_CONFIG", ""),
		RubricPath:        getEnv("RUBRIC_PATH", "knowledge/rubric.json"),
		TrendPath:         getEnv("TREND_PATH", "knowledge/trend_report.md"),
		TipsDir:           getEnv("TIPS_DIR", "knowledge/tips"),
		FactsDir:          getEnv("FACTS_DIR", "knowledge/facts"),
		SettingsDir:       getEnv("SETTINGS_DIR", "knowledge/settings"),
		PlannerPromptPath: getEnv("PLANNER_PROMPT", ""),
		CriticPromptPath:  getEnv("CRITIC_PROMPT", ""),
		GeminiAPIKey:      firstEnv("GEMINI_API_KEY", "GEMINI_KEY_PLANNING"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:        normalizeOllamaHost(getEnv("OLLAMA_HOST", "http://localhost:11434")),
		OllamaModel:       getEnv("OLLAMA_MODEL", ""),
		ProviderOrder:     splitList(strings.ToLower(getEnv("PROVIDER_ORDER", "gemini,openai,anthropic"))),
		PlannerModel:      getEnv("PLANNER_MODEL", ""),
		CriticModel:       getEnv("CRITIC_MODEL", ""),
		WriterModel:       getEnv("WRITER_MODEL", ""),
		Retention:         getEnv("RETENTION_POLICY", string(debate.RetainLast)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.MaxRounds, err = strconv.Atoi(getEnv("MAX_ROUNDS", strconv.Itoa(debate.DefaultMaxRounds))); err != nil {
		return nil, fmt.Errorf("invalid MAX_ROUNDS: %w", err)
	}
	if cfg.PassThreshold, err = strconv.Atoi(getEnv("PASS_THRESHOLD", strconv.Itoa(debate.DefaultPassThreshold))); err != nil {
		return nil, fmt.Errorf("invalid PASS_THRESHOLD: %w", err)
	}
	if cfg.CallPause, err = time.ParseDuration(getEnv("CALL_PAUSE", "1s")); err != nil {
		return nil, fmt.Errorf("invalid CALL_PAUSE: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "5m")); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.KnowledgeSeed, err = strconv.ParseUint(getEnv("KNOWLEDGE_SEED", "0"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid KNOWLEDGE_SEED: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.StudioDir == "" {
		return fmt.Errorf("STUDIO_DIR is required")
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("MAX_ROUNDS must be at least 1, got %d", c.MaxRounds)
	}
	if c.PassThreshold < 0 || c.PassThreshold > 100 {
		return fmt.Errorf("PASS_THRESHOLD must be between 0 and 100, got %d", c.PassThreshold)
	}
	switch debate.Retention(c.Retention) {
	case debate.RetainLast, debate.RetainBestScore:
	default:
		return fmt.Errorf("invalid RETENTION_POLICY: %s (must be 'last' or 'bestScore')", c.Retention)
	}
	for _, p := range c.ProviderOrder {
		if !slices.Contains(KnownProviders, p) {
			return fmt.Errorf("invalid PROVIDER_ORDER entry: %s (must be one of %s)", p, strings.Join(KnownProviders, ", "))
		}
	}
	return nil
}

// ValidateForDevelop checks configuration needed to run the planner and
// critic.
func (c *Config) ValidateForDevelop() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("no provider is usable: set GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY, or add ollama to PROVIDER_ORDER")
	}
	return nil
}

// ValidateForIndex checks configuration needed to build knowledge vectors.
func (c *Config) ValidateForIndex() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.VecLitePath == "" {
		return fmt.Errorf("VECLITE_PATH is required")
	}
	if c.TipsDir == "" && c.FactsDir == "" {
		return fmt.Errorf("TIPS_DIR or FACTS_DIR is required for indexing")
	}
	return nil
}

// HasKey reports whether provider has the credentials it needs. Ollama
// needs none beyond a host.
func (c *Config) HasKey(provider string) bool {
	switch provider {
	case engine.ProviderGemini:
		return c.GeminiAPIKey != ""
	case engine.ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case engine.ProviderAnthropic:
		return c.AnthropicAPIKey != ""
	case engine.ProviderOllama:
		return c.OllamaHost != ""
	}
	return false
}

// EnabledProviders is PROVIDER_ORDER minus providers without credentials,
// in order and without duplicates.
func (c *Config) EnabledProviders() []string {
	var out []string
	for _, p := range c.ProviderOrder {
		if c.HasKey(p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// PlannerOverrides returns the per-provider planner model pins.
func (c *Config) PlannerOverrides() map[string]string {
	return c.overrides(c.PlannerModel)
}

// CriticOverrides returns the per-provider critic model pins.
func (c *Config) CriticOverrides() map[string]string {
	return c.overrides(c.CriticModel)
}

// WriterOverrides returns the per-provider pins for the treatment and
// episode writer.
func (c *Config) WriterOverrides() map[string]string {
	return c.overrides(c.WriterModel)
}

// overrides parses "provider:model" pairs. A bare model name pins the
// first enabled provider. OLLAMA_MODEL pins ollama unless a pair does.
func (c *Config) overrides(value string) map[string]string {
	out := make(map[string]string)
	if c.OllamaModel != "" {
		out[engine.ProviderOllama] = c.OllamaModel
	}

	for _, item := range splitList(value) {
		provider, model, ok := strings.Cut(item, ":")
		if ok && slices.Contains(KnownProviders, provider) {
			out[provider] = strings.TrimSpace(model)
			continue
		}
		if enabled := c.EnabledProviders(); len(enabled) > 0 {
			out[enabled[0]] = item
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeOllamaHost turns a bind address such as "0.0.0.0" (what the
// Ollama server reads from OLLAMA_HOST) into a client URL.
func normalizeOllamaHost(host string) string {
	switch host {
	case "", "0.0.0.0", "0.0.0.0:11434":
		return "http://localhost:11434"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		return "http://" + host
	}
	return host
}
