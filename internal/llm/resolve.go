package llm

import (
	"context"
	"log/slog"
	"slices"

	"github.com/abdulachik/storyforge/internal/engine"
)

// Model sources reported by ResolveModel.
const (
	SourceOverride = "override"
	SourceListing  = "listing"
	SourceLineup   = "lineup"
	SourceNone     = "none"
)

// ResolveModel decides which model to call on p for task. An explicit
// override wins. Otherwise the provider's own listing is scored with the
// engine selector, and the pick is used only if it is one of the listed
// models. Providers that cannot list, or list nothing usable, fall back to
// the lineup. An empty model with SourceNone means nothing fits p.
func ResolveModel(ctx context.Context, p Provider, override string, task engine.Task, lineup engine.Lineup) (model, source string) {
	if override != "" {
		return override, SourceOverride
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		slog.Debug("list models failed", "provider", p.Name(), "error", err)
	} else if pick := engine.SelectBestModel(models); slices.Contains(models, pick) {
		return pick, SourceListing
	} else if len(models) > 0 {
		slog.Debug("no usable model listed", "provider", p.Name(), "listed", len(models))
	}

	if m := lineup.ForProvider(p.Name(), task); m != "" {
		return m, SourceLineup
	}
	return "", SourceNone
}

// BuildChain resolves a model for each provider, in order, and returns a
// chain over the results. Providers without a usable model are left out.
func BuildChain(ctx context.Context, health *Health, providers []Provider, overrides map[string]string, task engine.Task, lineup engine.Lineup) *Chain {
	routes := make([]Route, 0, len(providers))
	for _, p := range providers {
		model, source := ResolveModel(ctx, p, overrides[p.Name()], task, lineup)
		if model == "" {
			slog.Warn("no usable model, provider skipped",
				"provider", p.Name(),
				"task", task,
			)
			continue
		}
		slog.Info("engine selected",
			"provider", p.Name(),
			"task", task,
			"model", model,
			"source", source,
		)
		routes = append(routes, Route{Provider: p, Model: model})
	}
	return NewChain(health, routes...)
}
