package main

import (
	"fmt"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var (
	rubricDryRun bool
	rubricReport bool
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Build the evaluation rubric from the knowledge library",
	Long: `Read every tip and fact file, have the planner's models distill what makes a
web novel sell, and have the critic's models codify it into the rubric JSON
read from RUBRIC_PATH. The rubric has four criteria (Commerciality, Character,
Plot_Pacing, Episode_Hook), each with 1, 5 and 10 point anchors.

An existing rubric is only replaced once the new one is complete.

Examples:
  storyforge rubric
  storyforge rubric --dry-run --report`,
	RunE: runRubric,
}

func init() {
	rubricCmd.Flags().BoolVar(&rubricDryRun, "dry-run", false, "Print the rubric instead of saving it")
	rubricCmd.Flags().BoolVar(&rubricReport, "report", false, "Also print the analyst report")
	rootCmd.AddCommand(rubricCmd)
}

func runRubric(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

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

	res, err := app.BuildRubric(ctx, rubricDryRun)
	if err != nil {
		return err
	}

	if rubricReport {
		fmt.Printf("Analyst report\n==============\n%s\n\n", res.Report)
	}
	fmt.Printf("Sources: %d files\n", len(res.Sources))
	if rubricDryRun {
		fmt.Print(string(res.JSON))
		return nil
	}
	fmt.Printf("Saved: %s (%d criteria)\n", res.Path, len(res.Rubric.Criteria))
	return nil
}
