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

var modelsLimit int

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List and score the models each provider offers",
	Long: `Ask every enabled provider for its model list, rank the models with the
engine selector, and show which model the planner and critic would use.`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().IntVar(&modelsLimit, "limit", 10, "Models shown per provider (0 for all)")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
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

	selector := engine.New(engine.DefaultTable())
	lineup := engine.DefaultLineup()
	plannerPins := cfg.PlannerOverrides()
	criticPins := cfg.CriticOverrides()

	for _, p := range providers {
		fmt.Printf("=== %s ===\n", p.Name())

		models, err := p.ListModels(ctx)
		if err != nil {
			fmt.Printf("  listing failed: %v\n", err)
		} else {
			ranked := selector.Ranked(models)
			fmt.Printf("  %d models, %d usable\n", len(models), len(ranked))
			for i, s := range ranked {
				if modelsLimit > 0 && i == modelsLimit {
					fmt.Printf("  ... %d more\n", len(ranked)-i)
					break
				}
				fmt.Printf("  %4d  %s\n", s.Score, s.Model)
			}
		}

		plannerModel, plannerSource := llm.ResolveModel(ctx, p, plannerPins[p.Name()], engine.TaskCreative, lineup)
		criticModel, criticSource := llm.ResolveModel(ctx, p, criticPins[p.Name()], engine.TaskLogic, lineup)
		fmt.Printf("  planner: %s\n", describePick(plannerModel, plannerSource))
		fmt.Printf("  critic:  %s\n", describePick(criticModel, criticSource))
		fmt.Println()
	}
	return nil
}

func describePick(model, source string) string {
	if model == "" {
		return "no usable model, provider skipped"
	}
	return fmt.Sprintf("%s (%s)", model, source)
}
