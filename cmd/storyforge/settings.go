package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/studio"
	"github.com/spf13/cobra"
)

var settingsReset bool

var settingsCmd = &cobra.Command{
	Use:   "settings [key] [value]",
	Short: "Show or change stored loop settings",
	Long: `Stored settings override the environment for every develop run; command
flags still take precedence.

Keys: max_rounds, pass_threshold, retention

Examples:
  storyforge settings
  storyforge settings pass_threshold 80
  storyforge settings --reset pass_threshold`,
	Args: cobra.MaximumNArgs(2),
	RunE: runSettings,
}

func init() {
	settingsCmd.Flags().BoolVar(&settingsReset, "reset", false, "Remove the stored value for key")
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
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

	switch {
	case settingsReset:
		if len(args) != 1 {
			return fmt.Errorf("--reset takes exactly one key")
		}
		if err := app.ResetSetting(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%s reset\n", args[0])
		return nil
	case len(args) == 2:
		if err := app.SetSetting(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	}

	stored, err := app.Settings(ctx)
	if err != nil {
		return err
	}
	env := map[string]string{
		studio.SettingMaxRounds:     fmt.Sprint(cfg.MaxRounds),
		studio.SettingPassThreshold: fmt.Sprint(cfg.PassThreshold),
		studio.SettingRetention:     cfg.Retention,
	}
	for _, key := range studio.SettingKeys {
		if len(args) == 1 && args[0] != key {
			continue
		}
		if v, ok := stored[key]; ok {
			fmt.Printf("%-15s %-10s (stored)\n", key, v)
		} else {
			fmt.Printf("%-15s %-10s (environment)\n", key, env[key])
		}
	}
	if len(args) == 1 && !slices.Contains(studio.SettingKeys, args[0]) {
		return fmt.Errorf("unknown setting %q", args[0])
	}
	return nil
}
