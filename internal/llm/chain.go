package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Route pairs a provider with the model to call on it.
type Route struct {
	Provider Provider
	Model    string
}

func (r Route) String() string {
	return r.Provider.Name() + "/" + r.Model
}

// Response is a completion along with the route that produced it.
type Response struct {
	Text     string
	Provider string
	Model    string
}

// Chain tries its routes in order and returns the first answer.
type Chain struct {
	routes []Route
	health *Health
}

// NewChain creates a chain over routes. A nil health gets a fresh tracker.
func NewChain(health *Health, routes ...Route) *Chain {
	if health == nil {
		health = NewHealth()
	}
	return &Chain{routes: routes, health: health}
}

// Routes returns the configured routes in order.
func (c *Chain) Routes() []Route {
	return append([]Route(nil), c.routes...)
}

// Health returns the chain's health tracker.
func (c *Chain) Health() *Health {
	return c.health
}

// Complete sends req to each route in turn; req.Model is replaced by the
// route's model. If every route fails the error wraps ErrAllProvidersFailed
// and each route's error.
func (c *Chain) Complete(ctx context.Context, req Request) (Response, error) {
	if len(c.routes) == 0 {
		return Response{}, ErrNoProviders
	}

	errs := []error{ErrAllProvidersFailed}
	for _, route := range c.routes {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}

		req.Model = route.Model
		text, err := route.Provider.Complete(ctx, req)
		if err != nil {
			c.health.Failed(route.Provider.Name(), route.Model, err)
			slog.Warn("provider failed, trying next",
				"provider", route.Provider.Name(),
				"model", route.Model,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", route, err))
			continue
		}

		c.health.Succeeded(route.Provider.Name(), route.Model, "completed")
		return Response{Text: text, Provider: route.Provider.Name(), Model: route.Model}, nil
	}

	return Response{}, errors.Join(errs...)
}
