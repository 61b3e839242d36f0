// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	Message     string `json:"message"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Health      string `json:"health"`
	Search      string `json:"search"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status                 string                    `json:"status"`
	Service                string                    `json:"service"`
	Version                string                    `json:"version"`
	SearchCansConfigured   bool                      `json:"searchcans_configured"`
	LLMProviders           map[string]ProviderHealth `json:"llm_providers"`
	SupportedSearchEngines []string                  `json:"supported_search_engines"`
}

// ProviderHealth reports credential availability for one LLM provider.
type ProviderHealth struct {
	DefaultKeyConfigured bool `json:"default_key_configured"`
	SupportsCustomKey    bool `json:"supports_custom_key"`
}
