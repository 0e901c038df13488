package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List develop runs or show the rounds of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	app, err := studio.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open studio: %w", err)
	}
	defer app.Close()

	if len(args) == 0 {
		runs, err := app.Store.ListDebateRuns(ctx, int64(runsLimit))
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		for _, r := range runs {
			score := "-"
			if r.FinalScore.Valid {
				score = strconv.FormatInt(r.FinalScore.Int64, 10)
			}
			fmt.Printf("#%-4d %-8s %-11s score=%-3s %s\n", r.ID, r.Mode, r.Status, score, r.Title.String)
		}
		return nil
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}
	run, err := app.Store.GetDebateRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Printf("Run #%d (%s, %s)\n", run.ID, run.Mode, run.Status)
	if run.Idea.Valid {
		fmt.Printf("Idea: %s\n", run.Idea.String)
	}
	fmt.Printf("Rounds: %d, threshold %d, retention %s\n", run.MaxRounds, run.PassThreshold, run.Retention)
	if run.PlanPath.Valid {
		fmt.Printf("Plan: %s\n", run.PlanPath.String)
	}
	if run.Error.Valid {
		fmt.Printf("Error: %s\n", run.Error.String)
	}
	fmt.Println()

	rounds, err := app.Store.ListDebateRounds(ctx, id)
	if err != nil {
		return fmt.Errorf("list rounds: %w", err)
	}
	for _, r := range rounds {
		mark := " "
		if r.Passed {
			mark = "*"
		}
		fmt.Printf("%s round %d  score=%-3d %s\n", mark, r.Round, r.Score, r.Title.String)
		if r.GenerateError.Valid {
			fmt.Printf("    generate: %s\n", r.GenerateError.String)
		}
		if r.CritiqueError.Valid {
			fmt.Printf("    critique: %s\n", r.CritiqueError.String)
		}
		if r.ImprovementNotes.Valid {
			fmt.Printf("    notes: %s\n", r.ImprovementNotes.String)
		}
	}
	return nil
}
