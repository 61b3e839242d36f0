// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leseb/smartsearch-gw/pkg/core/answer"
	"github.com/leseb/smartsearch-gw/pkg/core/config"
	"github.com/leseb/smartsearch-gw/pkg/observability/metrics"
	"github.com/leseb/smartsearch-gw/pkg/websearch"
)

// FromConfig builds an Engine backed by the SearchCans client and the LLM
// generator described by cfg. A nil reg disables metrics. Missing server
// credentials are logged, not fatal, since callers may bring their own.
func FromConfig(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	searcher := websearch.NewClient(websearch.Options{
		Endpoint:      cfg.Search.Endpoint,
		DefaultAPIKey: cfg.Search.APIKey,
		Timeout:       cfg.Search.Timeout,
		ErrorMessages: cfg.Search.ErrorMessages,
		Logger:        logger,
	})

	generator := answer.New(answer.Options{
		Routes: map[string]answer.Route{
			answer.ProviderOpenAI: routeFrom(cfg.LLM.OpenAI),
			answer.ProviderQwen:   routeFrom(cfg.LLM.Qwen),
		},
		Timeout: cfg.LLM.Timeout,
		Logger:  logger,
	})

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	eng, err := New(Options{
		Searcher:  searcher,
		Generator: generator,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	caps := eng.Capabilities()
	if !caps.SearchKeyConfigured {
		logger.Warn("SEARCHCANS_API_KEY not configured, callers must supply searchcans_api_key")
	}
	for name, ok := range caps.ProviderKeys {
		if !ok {
			logger.Warn("No default API key for LLM provider, callers must supply llm_api_key", "provider", name)
		}
	}
	return eng, nil
}

func routeFrom(p config.ProviderConfig) answer.Route {
	return answer.Route{
		BaseURL:      p.BaseURL,
		DefaultModel: p.DefaultModel,
		APIKey:       p.APIKey,
	}
}
