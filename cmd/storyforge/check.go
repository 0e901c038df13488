package main

import (
	"context"
	"fmt"
	"time"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/engine"
	"github.com/abdulachik/storyforge/internal/llm"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var checkPrompt bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check provider connectivity",
	Long: `Contact every enabled provider and report whether it answers. With --prompt
a one-line completion is requested as well, which spends a few tokens.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkPrompt, "prompt", false, "Also send a tiny completion request")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDevelop(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	providers, err := studio.Providers(cfg)
	if err != nil {
		return err
	}

	for _, name := range config.KnownProviders {
		if !cfg.HasKey(name) {
			fmt.Printf("%-10s skipped (no credentials)\n", name)
		}
	}

	health := llm.NewHealth()
	for _, p := range providers {
		checkProvider(ctx, health, p)
	}

	for _, st := range health.All() {
		state := "ok"
		if !st.Healthy {
			state = "FAILED"
		}
		fmt.Printf("%-10s %-6s %-28s %s\n", st.Provider, state, st.Model, st.Message)
	}

	if !health.Healthy() {
		return fmt.Errorf("one or more providers failed")
	}
	return nil
}

func checkProvider(ctx context.Context, health *llm.Health, p llm.Provider) {
	models, err := p.ListModels(ctx)
	if err != nil {
		health.Failed(p.Name(), "", fmt.Errorf("list models: %w", err))
		return
	}
	model, _ := llm.ResolveModel(ctx, p, "", engine.TaskSpeed, engine.DefaultLineup())

	if !checkPrompt || model == "" {
		health.Succeeded(p.Name(), model, fmt.Sprintf("%d models listed", len(models)))
		return
	}

	start := time.Now()
	text, err := p.Complete(ctx, llm.Request{
		Model:     model,
		User:      "Reply with the single word OK.",
		MaxTokens: 16,
	})
	if err != nil {
		health.Failed(p.Name(), model, err)
		return
	}
	health.Succeeded(p.Name(), model, fmt.Sprintf("answered %q in %s", text, time.Since(start).Round(time.Millisecond)))
}
