// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine runs the search pipeline: fetch results, extract grounding
// context, prompt the LLM, and assemble the response.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leseb/smartsearch-gw/pkg/core/answer"
	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/core/grounding"
	"github.com/leseb/smartsearch-gw/pkg/core/prompt"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
	"github.com/leseb/smartsearch-gw/pkg/observability/metrics"
	"github.com/leseb/smartsearch-gw/pkg/observability/tracing"
	"github.com/leseb/smartsearch-gw/pkg/websearch"
)

// NoResultsAnswer is returned when no search result can ground an answer.
const NoResultsAnswer = "Sorry, no relevant search results found. Please try different keywords."

const (
	outcomeAnswered  = "answered"
	outcomeNoResults = "no_results"
)

// Searcher fetches a search envelope. Implemented by websearch.Client.
type Searcher interface {
	Fetch(ctx context.Context, q websearch.Query) (*websearch.Envelope, error)
}

// Generator produces an answer. Implemented by answer.Generator.
type Generator interface {
	Generate(ctx context.Context, req answer.Request) (*answer.Answer, error)
}

// Options configures an Engine. Searcher and Generator are required.
type Options struct {
	Searcher  Searcher
	Generator Generator
	Metrics   *metrics.Metrics // nil disables metrics
	Tracer    trace.Tracer     // defaults to the global tracer
	Logger    *slog.Logger
}

// Engine is the search orchestrator. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	searcher  Searcher
	generator Generator
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// New creates a new Engine instance.
func New(opts Options) (*Engine, error) {
	if opts.Searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.Tracer == nil {
		opts.Tracer = tracing.Tracer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		searcher:  opts.Searcher,
		generator: opts.Generator,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
	}, nil
}

// Search answers req. req must already be validated. Stage failures are
// returned as their typed *errdefs.Error; anything else, panics included,
// becomes an internal error.
func (e *Engine) Search(ctx context.Context, req *schema.SearchRequest) (resp *schema.SearchResponse, err error) {
	if req == nil {
		return nil, errdefs.Internal(errors.New("nil search request"))
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "smartsearch.search", trace.WithAttributes(
		attribute.String("search.engine", req.SearchEngine),
		attribute.String("llm.provider", req.LLMProvider),
	))

	outcome := outcomeAnswered
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Search pipeline panicked", "panic", r)
			resp, err = nil, errdefs.Internal(fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			typed := errdefs.Ensure(err)
			err = typed
			outcome = string(typed.Kind)
			span.RecordError(err)
			span.SetStatus(codes.Error, typed.Message)
			e.metrics.RecordError(outcome)
		}
		e.metrics.RecordRequest(req.SearchEngine, req.LLMProvider, outcome)
		e.metrics.ObserveStage(metrics.StageTotal, time.Since(start))
		span.End()
	}()

	e.logger.Info("Processing search request",
		"query", req.Query,
		"search_engine", req.SearchEngine,
		"llm_provider", req.LLMProvider)

	var env *websearch.Envelope
	err = e.stage(ctx, metrics.StageSearch, func(ctx context.Context) error {
		var ferr error
		env, ferr = e.searcher.Fetch(ctx, websearch.Query{
			Text:   req.Query,
			Engine: websearch.Engine(req.SearchEngine),
			APIKey: req.SearchCansAPIKey,
		})
		return ferr
	})
	if err != nil {
		return nil, err
	}

	var grounded grounding.Context
	e.timed(metrics.StageExtract, func() {
		grounded = grounding.Extract(env)
	})

	if grounded.Empty() {
		outcome = outcomeNoResults
		e.logger.Warn("No usable search results", "query", req.Query)
		return &schema.SearchResponse{
			Answer:   NoResultsAnswer,
			Sources:  []string{},
			Metadata: metadata(req, "", 0, start),
		}, nil
	}

	var ans *answer.Answer
	err = e.stage(ctx, metrics.StageGenerate, func(ctx context.Context) error {
		var gerr error
		ans, gerr = e.generator.Generate(ctx, answer.Request{
			Provider: req.LLMProvider,
			Model:    req.LLMModel,
			APIKey:   req.LLMAPIKey,
			Messages: prompt.Build(req.Query, grounded.Text),
		})
		return gerr
	})
	if err != nil {
		return nil, err
	}

	resp = &schema.SearchResponse{
		Answer:   ans.Text,
		Sources:  grounded.Sources,
		Metadata: metadata(req, ans.Model, len(grounded.Sources), start),
	}

	e.logger.Info("Search completed",
		"results_found", resp.Metadata.ResultsFound,
		"processing_time_ms", resp.Metadata.ProcessingTimeMS)
	return resp, nil
}

// stage runs fn inside a child span and records its duration.
func (e *Engine) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "smartsearch."+name)
	start := time.Now()
	defer func() {
		e.metrics.ObserveStage(name, time.Since(start))
		span.End()
	}()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// timed records the duration of a stage that cannot fail. Pure stages get
// no span of their own.
func (e *Engine) timed(name string, fn func()) {
	start := time.Now()
	fn()
	e.metrics.ObserveStage(name, time.Since(start))
}

func metadata(req *schema.SearchRequest, model string, found int, start time.Time) schema.Metadata {
	return schema.Metadata{
		Query:            req.Query,
		SearchEngine:     req.SearchEngine,
		LLMProvider:      req.LLMProvider,
		LLMModel:         model,
		ResultsFound:     found,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}

// Capabilities reports which server default credentials are configured.
type Capabilities struct {
	SearchKeyConfigured bool
	// ProviderKeys maps each routable LLM provider to whether the server
	// holds a default key for it.
	ProviderKeys map[string]bool
}

type searchKeyReporter interface {
	HasDefaultKey() bool
}

type providerKeyReporter interface {
	Providers() []string
	HasDefaultKey(name string) bool
}

// Capabilities inspects the configured searcher and generator.
func (e *Engine) Capabilities() Capabilities {
	caps := Capabilities{ProviderKeys: map[string]bool{}}
	if r, ok := e.searcher.(searchKeyReporter); ok {
		caps.SearchKeyConfigured = r.HasDefaultKey()
	}
	if r, ok := e.generator.(providerKeyReporter); ok {
		for _, name := range r.Providers() {
			caps.ProviderKeys[name] = r.HasDefaultKey(name)
		}
	}
	return caps
}
