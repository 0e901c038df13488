// Package studio wires configuration, providers, storage and the debate
// loop into the operations the CLI exposes.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abdulachik/storyforge/internal/archive"
	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/critic"
	"github.com/abdulachik/storyforge/internal/db"
	"github.com/abdulachik/storyforge/internal/engine"
	"github.com/abdulachik/storyforge/internal/knowledge"
	"github.com/abdulachik/storyforge/internal/llm"
	"github.com/abdulachik/storyforge/internal/planner"
	"github.com/abdulachik/storyforge/internal/vectorstore"
	"github.com/abdulachik/storyforge/internal/writer"
)

// App is the main application container holding all dependencies.
type App struct {
	Config    *config.Config
	Store     *db.Store
	Health    *llm.Health
	Library   *knowledge.Library
	Knowledge *vectorstore.KnowledgeStore // nil until `storyforge index` has run
	Planner   *planner.Planner
	Critic    *critic.Critic
	Writer    *writer.Writer
	Rubrics   *critic.RubricMaker
	Archive   *archive.Archive

	now func() time.Time
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	providers, err := Providers(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	health := llm.NewHealth()
	lineup := engine.DefaultLineup()
	plannerChain := llm.BuildChain(ctx, health, providers, cfg.PlannerOverrides(), engine.TaskCreative, lineup)
	criticChain := llm.BuildChain(ctx, health, providers, cfg.CriticOverrides(), engine.TaskLogic, lineup)
	writerChain := llm.BuildChain(ctx, health, providers, cfg.WriterOverrides(), engine.TaskCreative, lineup)

	library := knowledge.NewLibrary(knowledge.Config{
		RubricPath:  cfg.RubricPath,
		TrendPath:   cfg.TrendPath,
		TipsDir:     cfg.TipsDir,
		FactsDir:    cfg.FactsDir,
		SettingsDir: cfg.SettingsDir,
		Seed:        cfg.KnowledgeSeed,
	})
	ks := openKnowledge(cfg)
	if ks != nil {
		library.WithSearcher(ks)
	}

	plannerPrompts, err := knowledge.LoadPromptSet(cfg.PlannerPromptPath, planner.DefaultPrompts)
	if err != nil {
		slog.Warn("using built-in planner prompt", "error", err)
	}
	criticPrompts, err := knowledge.LoadPromptSet(cfg.CriticPromptPath, critic.DefaultPrompts)
	if err != nil {
		slog.Warn("using built-in critic prompt", "error", err)
	}

	return &App{
		Config:    cfg,
		Store:     store,
		Health:    health,
		Library:   library,
		Knowledge: ks,
		Planner: planner.New(planner.Config{
			Chain:   plannerChain,
			Library: library,
			Prompts: plannerPrompts,
		}),
		Critic: critic.New(critic.Config{
			Chain:     criticChain,
			Library:   library,
			Prompts:   criticPrompts,
			Threshold: cfg.PassThreshold,
		}),
		Writer: writer.New(writer.Config{
			Chain:   writerChain,
			Library: library,
		}),
		Rubrics: critic.NewRubricMaker(critic.RubricMakerConfig{
			Analyst:    plannerChain,
			Legislator: criticChain,
			Library:    library,
		}),
		Archive: archive.New(cfg.StudioDir),
		now:     time.Now,
	}, nil
}

// Open creates an App with only storage wired, for commands that read or
// change history and settings without talking to a model.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return &App{
		Config:  cfg,
		Store:   store,
		Archive: archive.New(cfg.StudioDir),
		now:     time.Now,
	}, nil
}

// Providers builds an adapter for every enabled provider, in
// PROVIDER_ORDER.
func Providers(cfg *config.Config) ([]llm.Provider, error) {
	var out []llm.Provider
	for _, name := range cfg.EnabledProviders() {
		switch name {
		case engine.ProviderGemini:
			out = append(out, llm.NewGemini(llm.GeminiConfig{
				APIKey:  cfg.GeminiAPIKey,
				Timeout: cfg.RequestTimeout,
			}))
		case engine.ProviderOpenAI:
			p, err := llm.NewOpenAI(llm.OpenAIConfig{APIKey: cfg.OpenAIAPIKey})
			if err != nil {
				return nil, fmt.Errorf("create openai provider: %w", err)
			}
			out = append(out, p)
		case engine.ProviderAnthropic:
			out = append(out, llm.NewAnthropic(llm.AnthropicConfig{
				APIKey:  cfg.AnthropicAPIKey,
				Timeout: cfg.RequestTimeout,
			}))
		case engine.ProviderOllama:
			p, err := llm.NewOllama(llm.OllamaConfig{
				Host:    cfg.OllamaHost,
				Timeout: cfg.RequestTimeout,
			})
			if err != nil {
				return nil, fmt.Errorf("create ollama provider: %w", err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// openKnowledge opens the vector index when one has been built. Any
// failure leaves the library on random sampling.
func openKnowledge(cfg *config.Config) *vectorstore.KnowledgeStore {
	if cfg.VecLitePath == "" {
		return nil
	}
	if _, err := os.Stat(cfg.VecLitePath); err != nil {
		slog.Debug("no knowledge index, sampling files", "path", cfg.VecLitePath)
		return nil
	}

	ks, err := vectorstore.New(vectorstore.Config{
		Path:       cfg.VecLitePath,
		ConfigPath: cfg.VecLiteConfig,
	})
	if err != nil {
		slog.Warn("knowledge index unavailable, sampling files", "error", err)
		return nil
	}
	if ks.Count() == 0 {
		ks.Close()
		return nil
	}
	slog.Info("knowledge index attached", "passages", ks.Count())
	return ks
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Knowledge != nil {
		if err := a.Knowledge.Close(); err != nil {
			slog.Warn("close knowledge index", "error", err)
		}
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}
