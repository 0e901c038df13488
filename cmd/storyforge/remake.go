package main

import (
	"fmt"
	"strings"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var remakeCmd = &cobra.Command{
	Use:   "remake <project> <order>",
	Short: "Revise a saved plan and store it as the next version",
	Long: `Revise the latest plan of a project according to a free-form order and save
the result as the next Approved_Plan_vN.json. Corrupted and legacy projects can
be remade too.

Example:
  storyforge remake 20260314_0905_Ledger "Swap the smartphone for a pager"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRemake,
}

func init() {
	rootCmd.AddCommand(remakeCmd)
}

func runRemake(cmd *cobra.Command, args []string) error {
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

	res, err := app.Remake(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	fmt.Printf("Plan: %v (version %v)\n", res.Plan["title"], res.Plan["version"])
	fmt.Printf("Saved: %s (v%d)\n", res.Path, res.Version)
	return nil
}
