// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
)

const (
	DefaultSearchEngine = "google"
	DefaultLLMProvider  = "openai"
)

// SearchRequest is the body of POST /api/smart_search.
type SearchRequest struct {
	Query            string `json:"query" validate:"required"`
	SearchEngine     string `json:"search_engine" validate:"oneof=google bing"`
	LLMProvider      string `json:"llm_provider" validate:"oneof=openai qwen"`
	LLMAPIKey        string `json:"llm_api_key,omitempty"`
	LLMModel         string `json:"llm_model,omitempty"`
	SearchCansAPIKey string `json:"searchcans_api_key,omitempty"`
}

// NewSearchRequest returns a request carrying the defaults for fields a
// client may omit. Decode into it so omitted fields keep their default.
func NewSearchRequest() *SearchRequest {
	return &SearchRequest{
		SearchEngine: DefaultSearchEngine,
		LLMProvider:  DefaultLLMProvider,
	}
}

// DecodeSearchRequest parses and validates a request body.
func DecodeSearchRequest(body []byte) (*SearchRequest, error) {
	req := NewSearchRequest()
	if err := json.Unmarshal(body, req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Normalize trims every field and lower-cases the engine and provider.
func (r *SearchRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.SearchEngine = strings.ToLower(strings.TrimSpace(r.SearchEngine))
	r.LLMProvider = strings.ToLower(strings.TrimSpace(r.LLMProvider))
	r.LLMAPIKey = strings.TrimSpace(r.LLMAPIKey)
	r.LLMModel = strings.TrimSpace(r.LLMModel)
	r.SearchCansAPIKey = strings.TrimSpace(r.SearchCansAPIKey)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldMessages = map[string]string{
	"Query":        "Query cannot be empty",
	"SearchEngine": "Search engine must be google or bing",
	"LLMProvider":  "LLM provider must be openai or qwen",
}

// Validate normalizes r and checks it, returning a validation *errdefs.Error
// for the first offending field.
func (r *SearchRequest) Validate() error {
	r.Normalize()

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].StructField()]; ok {
			return errdefs.Validation(msg)
		}
		return errdefs.Validation(verrs[0].Error())
	}
	return errdefs.Validation(err.Error())
}

// SearchResponse is the successful reply.
type SearchResponse struct {
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Metadata Metadata `json:"metadata"`
}

// MarshalJSON renders absent sources as an empty array.
func (r SearchResponse) MarshalJSON() ([]byte, error) {
	type alias SearchResponse
	if r.Sources == nil {
		r.Sources = []string{}
	}
	return json.Marshal(alias(r))
}

// Metadata describes how a response was produced.
type Metadata struct {
	Query        string `json:"query"`
	SearchEngine string `json:"search_engine"`
	LLMProvider  string `json:"llm_provider"`
	// LLMModel is the effective model. Empty when no LLM was called.
	LLMModel         string `json:"llm_model,omitempty"`
	ResultsFound     int    `json:"results_found"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// NewErrorResponse describes err at time now.
func NewErrorResponse(err *errdefs.Error, now time.Time) ErrorResponse {
	return ErrorResponse{
		Error:     string(err.Kind),
		Detail:    err.Message,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
