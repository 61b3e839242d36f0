// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package envoy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/google/uuid"

	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
)

// SearchService runs the answer pipeline. Implemented by engine.Engine.
type SearchService interface {
	Search(ctx context.Context, req *schema.SearchRequest) (*schema.SearchResponse, error)
}

// Processor implements the ExternalProcessorServer interface. It answers
// POST /api/smart_search itself and lets every other request through.
// The filter must be configured with request_body_mode BUFFERED.
type Processor struct {
	extproc.UnimplementedExternalProcessorServer
	service SearchService
	logger  *slog.Logger
}

// NewProcessor creates a new ExtProc processor
func NewProcessor(service SearchService, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		service: service,
		logger:  logger,
	}
}

// streamState is what the headers phase learns about the request.
type streamState struct {
	requestID       string
	method          string
	path            string
	contentEncoding string
}

// Process handles the ExtProc stream
func (p *Processor) Process(stream extproc.ExternalProcessor_ProcessServer) error {
	ctx := stream.Context()
	st := &streamState{requestID: "unknown"}

	p.logger.Debug("new extproc stream started")

	for {
		req, err := stream.Recv()
		if err == io.EOF {
			p.logger.Debug("stream closed by client", "request_id", st.requestID)
			return nil
		}
		if err != nil {
			p.logger.Error("error receiving request", "error", err, "request_id", st.requestID)
			return err
		}

		var resp *extproc.ProcessingResponse

		switch v := req.Request.(type) {
		case *extproc.ProcessingRequest_RequestHeaders:
			p.recordHeaders(st, v.RequestHeaders)
			resp = CreateHeadersContinueResponse()

		case *extproc.ProcessingRequest_RequestBody:
			if !isSearchRoute(st.method, st.path) {
				p.logger.Debug("passing request body through", "path", st.path, "request_id", st.requestID)
				resp = CreateBodyContinueResponse()
				break
			}
			resp = p.processSearch(ctx, st, v.RequestBody)

		case *extproc.ProcessingRequest_ResponseHeaders:
			resp = &extproc.ProcessingResponse{
				Response: &extproc.ProcessingResponse_ResponseHeaders{
					ResponseHeaders: &extproc.HeadersResponse{},
				},
			}

		case *extproc.ProcessingRequest_ResponseBody:
			resp = &extproc.ProcessingResponse{
				Response: &extproc.ProcessingResponse_ResponseBody{
					ResponseBody: &extproc.BodyResponse{},
				},
			}

		default:
			p.logger.Warn("unknown request type", "type", fmt.Sprintf("%T", v), "request_id", st.requestID)
			resp = CreateBodyContinueResponse()
		}

		if err := stream.Send(resp); err != nil {
			p.logger.Error("error sending response", "error", err, "request_id", st.requestID)
			return err
		}
	}
}

func (p *Processor) recordHeaders(st *streamState, h *extproc.HttpHeaders) {
	headers := h.GetHeaders()
	st.method = HeaderValue(headers, ":method")
	st.path = HeaderValue(headers, ":path")
	st.contentEncoding = HeaderValue(headers, "content-encoding")
	if id := HeaderValue(headers, "x-request-id"); id != "" {
		st.requestID = id
	} else {
		st.requestID = uuid.NewString()
	}

	p.logger.Debug("processing request headers",
		"method", st.method,
		"path", st.path,
		"request_id", st.requestID)
}

// processSearch runs the pipeline for one buffered body and builds the
// immediate response, success or error.
func (p *Processor) processSearch(ctx context.Context, st *streamState, body *extproc.HttpBody) *extproc.ProcessingResponse {
	req, err := ExtractSearchRequest(body, st.contentEncoding)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			p.logger.Warn("request body too large", "request_id", st.requestID)
			return CreateTooLargeResponse(st.requestID)
		}
		if e, ok := errdefs.As(err); ok {
			p.logger.Warn("invalid search request", "error", e.Message, "request_id", st.requestID)
			return CreateErrorResponse(e, st.requestID)
		}
		p.logger.Warn("failed to extract request", "error", err, "request_id", st.requestID)
		return CreateBadRequestResponse(fmt.Sprintf("Invalid request body: %s", err), st.requestID)
	}

	p.logger.Info("processing search",
		"request_id", st.requestID,
		"search_engine", req.SearchEngine,
		"llm_provider", req.LLMProvider)

	resp, err := p.service.Search(ctx, req)
	if err != nil {
		e := errdefs.Ensure(err)
		p.logger.Error("search failed",
			"request_id", st.requestID,
			"kind", e.Kind,
			"error", e.Message)
		return CreateErrorResponse(e, st.requestID)
	}

	out, err := CreateSuccessResponse(resp, st.requestID)
	if err != nil {
		p.logger.Error("failed to create response", "error", err, "request_id", st.requestID)
		return CreateErrorResponse(errdefs.Internal(err), st.requestID)
	}

	p.logger.Info("search completed",
		"request_id", st.requestID,
		"results_found", resp.Metadata.ResultsFound,
		"processing_time_ms", resp.Metadata.ProcessingTimeMS)
	return out
}
