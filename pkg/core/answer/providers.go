// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/leseb/smartsearch-gw/pkg/core/api"
	"github.com/leseb/smartsearch-gw/pkg/provider"
)

const (
	ProviderOpenAI = "openai"
	ProviderQwen   = "qwen"

	// QwenBaseURL is DashScope's OpenAI-compatible endpoint.
	QwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	paramAPIKey  = "api_key"
	paramBaseURL = "base_url"
	paramTimeout = "timeout"
)

// Route describes how to reach one LLM provider.
type Route struct {
	// BaseURL is empty for the SDK default endpoint.
	BaseURL      string
	DefaultModel string
	// APIKey is the server default credential.
	APIKey string
}

// DefaultRoutes returns the built-in routing table.
func DefaultRoutes() map[string]Route {
	return map[string]Route{
		ProviderOpenAI: {DefaultModel: "gpt-4o-mini"},
		ProviderQwen:   {BaseURL: QwenBaseURL, DefaultModel: "qwen-plus"},
	}
}

// Clients holds the chat client factories, keyed by provider name.
var Clients = provider.NewRegistry[api.ChatCompletionClient]("llm")

func init() {
	Clients.Register(ProviderOpenAI, newOpenAICompatible)
	Clients.Register(ProviderQwen, newOpenAICompatible)
}

// Both providers speak the OpenAI wire format; only the base URL differs.
func newOpenAICompatible(_ context.Context, params provider.Params) (api.ChatCompletionClient, error) {
	if err := params.Require(paramAPIKey); err != nil {
		return nil, err
	}
	var timeout time.Duration
	if v := params[paramTimeout]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", paramTimeout, v, err)
		}
		timeout = d
	}
	return api.NewOpenAIClient(api.OpenAIOptions{
		BaseURL: params[paramBaseURL],
		APIKey:  params[paramAPIKey],
		Timeout: timeout,
	}), nil
}
