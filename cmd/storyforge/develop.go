package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/debate"
	"github.com/abdulachik/storyforge/internal/planner"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var (
	developMode      string
	developIdea      string
	developRounds    int
	developThreshold int
	developRetention string
	developFeedback  string
)

var developCmd = &cobra.Command{
	Use:   "develop",
	Short: "Draft a plan and debate it until it passes",
	Long: `Run the planner/critic loop. The planner drafts a plan, the critic scores it,
and the critique becomes the next draft's feedback until a score reaches the
threshold or the rounds run out. The returned plan is saved as version 1 of a
new project in the studio folder.

Modes:
  new      an original hit, no input needed
  develop  grow --idea into a plan
  rescue   diagnose and rebuild the failed story given in --idea

Examples:
  storyforge develop
  storyforge develop --mode develop --idea "a chaebol heir returns to 1997"
  storyforge develop --rounds 5 --threshold 90 --retention bestScore`,
	RunE: runDevelop,
}

func init() {
	developCmd.Flags().StringVar(&developMode, "mode", "new", "Planning mode: new, develop or rescue (or 1, 2, 3)")
	developCmd.Flags().StringVar(&developIdea, "idea", "", "Idea or failed story for develop/rescue modes")
	developCmd.Flags().IntVar(&developRounds, "rounds", 0, "Maximum rounds (default MAX_ROUNDS)")
	developCmd.Flags().IntVar(&developThreshold, "threshold", 0, "Pass threshold 0-100, 0 accepts the first plan (default PASS_THRESHOLD)")
	developCmd.Flags().StringVar(&developRetention, "retention", "", "Plan kept when nothing passes: last or bestScore")
	developCmd.Flags().StringVar(&developFeedback, "feedback", "", "Feedback handed to the first draft")
	rootCmd.AddCommand(developCmd)
}

func runDevelop(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	mode, err := planner.ParseMode(developMode)
	if err != nil {
		return err
	}
	if mode != planner.ModeNew && strings.TrimSpace(developIdea) == "" {
		return fmt.Errorf("--idea is required for %s mode", mode)
	}
	if developThreshold < 0 || developThreshold > 100 {
		return fmt.Errorf("--threshold must be between 0 and 100")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDevelop(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	app, err := studio.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer app.Close()

	req := studio.DevelopRequest{
		Plan:      planner.Request{Mode: mode, Idea: developIdea},
		MaxRounds: developRounds,
		Feedback:  developFeedback,
		OnRound:   printRound,
	}
	if cmd.Flags().Changed("threshold") {
		req.PassThreshold = &developThreshold
	}
	if developRetention != "" {
		req.Retention = debate.ParseRetention(developRetention)
	}

	res, err := app.Develop(ctx, req)
	if res != nil && res.Result != nil {
		printTrace(res.Trace)
	}
	if err != nil {
		if errors.Is(err, debate.ErrNoCandidate) {
			slog.Error("no plan produced", "run", runID(res))
		}
		return err
	}

	verdict := "best effort, no round passed"
	if res.Passed {
		verdict = "passed"
	}
	fmt.Println()
	fmt.Printf("Plan: %v\n", res.Candidate["title"])
	fmt.Printf("Score: %d (round %d, %s)\n", res.Critique.Score, res.Round, verdict)
	fmt.Printf("Saved: %s\n", res.Path)
	return nil
}

func printRound(r debate.Round) {
	switch {
	case r.GenerateErr != nil:
		fmt.Printf("round %d: draft failed: %v\n", r.Number, r.GenerateErr)
	case r.CritiqueErr != nil:
		fmt.Printf("round %d: %v drafted, critique failed: %v\n", r.Number, r.Candidate["title"], r.CritiqueErr)
	default:
		fmt.Printf("round %d: %v scored %d\n", r.Number, r.Candidate["title"], r.Critique.Score)
	}
}

func printTrace(trace []string) {
	if len(trace) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Trace:")
	for _, line := range trace {
		fmt.Println("  " + line)
	}
}

func runID(res *studio.DevelopResult) int64 {
	if res == nil {
		return 0
	}
	return res.RunID
}
