package main

import (
	"fmt"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var (
	writeEpisode int
	writeStage   string
)

var writeCmd = &cobra.Command{
	Use:   "write <project>",
	Short: "Write an episode treatment and manuscript from a saved plan",
	Long: `Turn the latest plan of a project into production drafts. The treatment
stage breaks the episode into 4 to 6 scenes using the plot tips and saves
Treatment_EPnn.md. The episode stage writes the manuscript from that treatment,
the world settings in SETTINGS_DIR and the style tips, and saves Episode_EPnn.md.

Running the episode stage alone reads the saved treatment, so it can be
edited by hand in between.

Examples:
  storyforge write 20260314_0905_Ledger
  storyforge write 20260314_0905_Ledger --episode 2 --stage treatment
  storyforge write 20260314_0905_Ledger --episode 2 --stage episode`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().IntVar(&writeEpisode, "episode", 1, "Episode number")
	writeCmd.Flags().StringVar(&writeStage, "stage", "all", "Stage to run: treatment, episode or all")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	stage, err := studio.ParseStage(writeStage)
	if err != nil {
		return err
	}
	if writeEpisode < 1 {
		return fmt.Errorf("--episode must be 1 or more")
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

	res, err := app.Write(ctx, studio.WriteRequest{
		Project: args[0],
		Episode: writeEpisode,
		Stage:   stage,
	})
	if res != nil && res.Treatment != nil {
		fmt.Printf("Treatment: %s (%d scenes, %s/%s)\n",
			res.Treatment.Path, res.Treatment.Scenes, res.Treatment.Provider, res.Treatment.Model)
	}
	if err != nil {
		return err
	}
	if res.Episode != nil {
		fmt.Printf("Episode:   %s (%d characters, %s/%s)\n",
			res.Episode.Path, len([]rune(res.Episode.Text)), res.Episode.Provider, res.Episode.Model)
	}
	return nil
}
