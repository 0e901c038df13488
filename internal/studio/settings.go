package studio

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/abdulachik/storyforge/internal/db"
	"github.com/abdulachik/storyforge/internal/debate"
)

// Settings stored in the config table. A stored value overrides the
// environment for every later run; command flags still win.
const (
	SettingMaxRounds     = "max_rounds"
	SettingPassThreshold = "pass_threshold"
	SettingRetention     = "retention"
)

// SettingKeys lists the keys SetSetting accepts.
var SettingKeys = []string{SettingMaxRounds, SettingPassThreshold, SettingRetention}

// Settings returns the stored settings by key.
func (a *App) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := a.Store.ListConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// SetSetting validates and stores a setting.
func (a *App) SetSetting(ctx context.Context, key, value string) error {
	if err := validateSetting(key, value); err != nil {
		return err
	}
	if err := a.Store.SetConfig(ctx, db.SetConfigParams{Key: key, Value: value}); err != nil {
		return fmt.Errorf("store setting: %w", err)
	}
	return nil
}

// ResetSetting removes a stored setting so the environment applies again.
func (a *App) ResetSetting(ctx context.Context, key string) error {
	if !slices.Contains(SettingKeys, key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	return a.Store.DeleteConfig(ctx, key)
}

func validateSetting(key, value string) error {
	switch key {
	case SettingMaxRounds:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
	case SettingPassThreshold:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %q", key, value)
		}
	case SettingRetention:
		if value != string(debate.RetainLast) && value != string(debate.RetainBestScore) {
			return fmt.Errorf("%s must be 'last' or 'bestScore', got %q", key, value)
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// applySettings copies stored settings onto cfg. Values that no longer
// validate are skipped.
func (a *App) applySettings(ctx context.Context, cfg *debate.Config) {
	if a.Store == nil {
		return
	}
	settings, err := a.Settings(ctx)
	if err != nil {
		slog.Warn("ignoring stored settings", "error", err)
		return
	}
	for key, value := range settings {
		if err := validateSetting(key, value); err != nil {
			slog.Warn("ignoring stored setting", "key", key, "error", err)
			continue
		}
		switch key {
		case SettingMaxRounds:
			cfg.MaxRounds, _ = strconv.Atoi(value)
		case SettingPassThreshold:
			cfg.PassThreshold, _ = strconv.Atoi(value)
		case SettingRetention:
			cfg.Retention = debate.Retention(value)
		}
	}
}
