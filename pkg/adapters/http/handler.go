// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leseb/smartsearch-gw/pkg/core/engine"
	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
	"github.com/leseb/smartsearch-gw/pkg/observability/logging"
	"github.com/leseb/smartsearch-gw/pkg/websearch"
)

const (
	serviceName    = "SmartSearch API"
	maxRequestBody = 1 << 20
)

// SearchService is the pipeline behind the HTTP surface. Implemented by
// engine.Engine.
type SearchService interface {
	Search(ctx context.Context, req *schema.SearchRequest) (*schema.SearchResponse, error)
	Capabilities() engine.Capabilities
}

// Options configures the HTTP adapter
type Options struct {
	Version        string
	AllowedOrigins []string
	// Metrics serves GET MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
	Logger      *logging.Logger
}

// Handler implements the HTTP adapter
type Handler struct {
	service SearchService
	logger  *logging.Logger
	version string
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a new HTTP handler
func New(service SearchService, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	h := &Handler{
		service: service,
		logger:  opts.Logger,
		version: opts.Version,
		mux:     http.NewServeMux(),
	}

	// Register routes
	h.mux.HandleFunc("GET /{$}", h.handleRoot)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("POST /api/smart_search", h.handleSmartSearch)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		h.mux.Handle("GET "+path, opts.Metrics)
	}

	h.handler = withRequestID(withAccessLog(h.logger, withCORS(opts.AllowedOrigins, h.mux)))
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// handleRoot returns service information
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schema.ServiceInfo{
		Message:     serviceName,
		Version:     h.version,
		Description: "RAG-based intelligent search powered by SearchCans API",
		Health:      "/health",
		Search:      "/api/smart_search",
	})
}

// handleHealth reports which server default credentials are configured
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	caps := h.service.Capabilities()

	providers := make(map[string]schema.ProviderHealth, len(caps.ProviderKeys))
	for name, configured := range caps.ProviderKeys {
		providers[name] = schema.ProviderHealth{
			DefaultKeyConfigured: configured,
			SupportsCustomKey:    true,
		}
	}

	engines := make([]string, 0, len(websearch.Engines))
	for _, e := range websearch.Engines {
		engines = append(engines, string(e))
	}

	writeJSON(w, http.StatusOK, schema.HealthResponse{
		Status:                 "healthy",
		Service:                serviceName,
		Version:                h.version,
		SearchCansConfigured:   caps.SearchKeyConfigured,
		LLMProviders:           providers,
		SupportedSearchEngines: engines,
	})
}

// handleSmartSearch handles POST /api/smart_search
func (h *Handler) handleSmartSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Request body too large", "limit", tooLarge.Limit)
			h.writeError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.logger.Error("Failed to read request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}

	req, err := schema.DecodeSearchRequest(body)
	if err != nil {
		if e, ok := errdefs.As(err); ok {
			h.writeTypedError(w, e)
			return
		}
		h.logger.Error("Failed to parse request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
		return
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		e := errdefs.Ensure(err)
		h.logger.Error("Search failed",
			"kind", e.Kind,
			"error", e.Message,
			"request_id", requestIDFrom(r.Context()))
		h.writeTypedError(w, e)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeTypedError(w http.ResponseWriter, e *errdefs.Error) {
	writeJSON(w, errdefs.HTTPStatus(e.Kind), schema.NewErrorResponse(e, time.Now()))
}

// writeError writes an error response for failures outside the pipeline
func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, schema.ErrorResponse{
		Error:     errType,
		Detail:    message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
