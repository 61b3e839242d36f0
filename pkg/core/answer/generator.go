// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package answer produces a grounded answer by calling the selected LLM
// provider with a prepared prompt.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/leseb/smartsearch-gw/pkg/core/api"
	"github.com/leseb/smartsearch-gw/pkg/core/credential"
	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/provider"
)

const (
	// DefaultTimeout bounds one LLM call.
	DefaultTimeout = 60 * time.Second

	temperature = 0.7
	maxTokens   = 2000
)

// Request is one generation call.
type Request struct {
	Provider string
	// Model overrides the provider's default model when set.
	Model    string
	APIKey   string
	Messages []api.Message
}

// Answer is the trimmed model output and what produced it.
type Answer struct {
	Text     string
	Model    string
	Provider string
	Usage    api.Usage
}

// Options configures a Generator.
type Options struct {
	// Routes overrides DefaultRoutes entry by entry. Empty fields keep the
	// built-in value.
	Routes  map[string]Route
	Timeout time.Duration
	// Clients defaults to the package registry.
	Clients *provider.Registry[api.ChatCompletionClient]
	Logger  *slog.Logger
}

// Generator routes requests to providers and calls them.
type Generator struct {
	routes  map[string]Route
	timeout time.Duration
	clients *provider.Registry[api.ChatCompletionClient]
	logger  *slog.Logger
}

// New creates a Generator.
func New(opts Options) *Generator {
	routes := DefaultRoutes()
	for name, override := range opts.Routes {
		r := routes[name]
		if override.BaseURL != "" {
			r.BaseURL = override.BaseURL
		}
		if override.DefaultModel != "" {
			r.DefaultModel = override.DefaultModel
		}
		if override.APIKey != "" {
			r.APIKey = override.APIKey
		}
		routes[name] = r
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clients == nil {
		opts.Clients = Clients
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Generator{
		routes:  routes,
		timeout: opts.Timeout,
		clients: opts.Clients,
		logger:  opts.Logger,
	}
}

// Providers returns the routable provider names, sorted.
func (g *Generator) Providers() []string {
	names := make([]string, 0, len(g.routes))
	for name := range g.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDefaultKey reports whether the server holds a credential for name.
func (g *Generator) HasDefaultKey(name string) bool {
	r, ok := g.routes[name]
	return ok && strings.TrimSpace(r.APIKey) != ""
}

// Generate calls the requested provider. Unknown providers and missing
// credentials are configuration errors; every call failure is a
// generation error.
func (g *Generator) Generate(ctx context.Context, req Request) (*Answer, error) {
	route, ok := g.routes[req.Provider]
	if !ok || !g.clients.Has(req.Provider) {
		return nil, errdefs.Configuration("Unsupported LLM provider: %s", req.Provider)
	}

	cred, err := credential.Resolve(req.Provider, req.APIKey, route.APIKey)
	if err != nil {
		return nil, err
	}

	model := route.DefaultModel
	if m := strings.TrimSpace(req.Model); m != "" {
		model = m
	}

	client, err := g.clients.Create(ctx, req.Provider, provider.Params{
		paramAPIKey:  cred.Secret,
		paramBaseURL: route.BaseURL,
		paramTimeout: g.timeout.String(),
	})
	if err != nil {
		return nil, errdefs.Generation(err)
	}

	g.logger.Info("Calling LLM",
		"provider", req.Provider,
		"model", model,
		"key_source", cred.Source)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	t, n := temperature, maxTokens
	resp, err := client.CreateChatCompletion(callCtx, &api.ChatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: &t,
		MaxTokens:   &n,
	})
	if err != nil {
		g.logger.Error("LLM call failed", "provider", req.Provider, "error", err)
		return nil, errdefs.Generation(err)
	}
	if len(resp.Choices) == 0 {
		g.logger.Error("LLM returned no choices", "provider", req.Provider)
		return nil, errdefs.Generation(errors.New("no choices returned"))
	}

	g.logger.Info("LLM call successful",
		"provider", req.Provider,
		"total_tokens", resp.Usage.TotalTokens)

	return &Answer{
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    model,
		Provider: req.Provider,
		Usage:    resp.Usage,
	}, nil
}
