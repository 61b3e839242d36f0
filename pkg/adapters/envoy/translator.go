// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package envoy

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	typev3 "github.com/envoyproxy/go-control-plane/envoy/type/v3"

	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
)

const (
	// SearchPath is the only route the processor answers itself.
	SearchPath = "/api/smart_search"
	// MaxBodySize caps a request body after content decoding.
	MaxBodySize = 1 << 20
)

// ErrBodyTooLarge is returned when a body exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("request body too large")

// HeaderValue returns the value of key from an Envoy header map. Envoy
// populates RawValue by default, Value on older configurations.
func HeaderValue(headers *corev3.HeaderMap, key string) string {
	for _, h := range headers.GetHeaders() {
		if !strings.EqualFold(h.GetKey(), key) {
			continue
		}
		if raw := h.GetRawValue(); len(raw) > 0 {
			return string(raw)
		}
		return h.GetValue()
	}
	return ""
}

// isSearchRoute reports whether method and path address the search endpoint.
// The query string is ignored.
func isSearchRoute(method, path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return method == http.MethodPost && strings.TrimRight(path, "/") == SearchPath
}

// ExtractSearchRequest decodes a buffered request body into a search request.
// Validation failures come back as *errdefs.Error.
func ExtractSearchRequest(body *extproc.HttpBody, contentEncoding string) (*schema.SearchRequest, error) {
	if body == nil || len(body.Body) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	data, err := DecodeContent(body.Body, contentEncoding)
	if err != nil {
		return nil, err
	}
	return schema.DecodeSearchRequest(data)
}

// CreateSuccessResponse answers the downstream client directly with resp.
func CreateSuccessResponse(resp *schema.SearchResponse, requestID string) (*extproc.ProcessingResponse, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return immediate(http.StatusOK, body, requestID), nil
}

// CreateErrorResponse answers with the error envelope for e and the status
// its kind maps to.
func CreateErrorResponse(e *errdefs.Error, requestID string) *extproc.ProcessingResponse {
	return CreateRawErrorResponse(errdefs.HTTPStatus(e.Kind), schema.NewErrorResponse(e, time.Now()), requestID)
}

// CreateRawErrorResponse answers with an arbitrary error envelope.
func CreateRawErrorResponse(status int, body schema.ErrorResponse, requestID string) *extproc.ProcessingResponse {
	data, err := json.Marshal(body)
	if err != nil {
		data = []byte(`{"error":"internal_error","detail":"failed to encode error"}`)
		status = http.StatusInternalServerError
	}
	return immediate(status, data, requestID)
}

// CreateBadRequestResponse answers 400 for bodies that are not a JSON object.
func CreateBadRequestResponse(detail, requestID string) *extproc.ProcessingResponse {
	return CreateRawErrorResponse(http.StatusBadRequest, schema.ErrorResponse{
		Error:     "invalid_request",
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, requestID)
}

// CreateHeadersContinueResponse lets Envoy proceed past the headers phase.
func CreateHeadersContinueResponse() *extproc.ProcessingResponse {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestHeaders{
			RequestHeaders: &extproc.HeadersResponse{},
		},
	}
}

// CreateBodyContinueResponse forwards the request body upstream unchanged.
func CreateBodyContinueResponse() *extproc.ProcessingResponse {
	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_RequestBody{
			RequestBody: &extproc.BodyResponse{},
		},
	}
}

func immediate(status int, body []byte, requestID string) *extproc.ProcessingResponse {
	headers := []*corev3.HeaderValueOption{
		{Header: &corev3.HeaderValue{Key: "content-type", RawValue: []byte("application/json")}},
	}
	if requestID != "" {
		headers = append(headers, &corev3.HeaderValueOption{
			Header: &corev3.HeaderValue{Key: "x-request-id", RawValue: []byte(requestID)},
		})
	}

	return &extproc.ProcessingResponse{
		Response: &extproc.ProcessingResponse_ImmediateResponse{
			ImmediateResponse: &extproc.ImmediateResponse{
				Status:  &typev3.HttpStatus{Code: typev3.StatusCode(status)},
				Headers: &extproc.HeaderMutation{SetHeaders: headers},
				Body:    body,
			},
		},
	}
}

// CreateTooLargeResponse answers 413 for bodies over MaxBodySize.
func CreateTooLargeResponse(requestID string) *extproc.ProcessingResponse {
	return CreateRawErrorResponse(http.StatusRequestEntityTooLarge, schema.ErrorResponse{
		Error:     "request_too_large",
		Detail:    fmt.Sprintf("Request body exceeds %d bytes", MaxBodySize),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, requestID)
}

// DecodeContent undoes the request content-encoding. Identity and empty
// encodings return body as is. Results over MaxBodySize fail with
// ErrBodyTooLarge.
func DecodeContent(body []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		if len(body) > MaxBodySize {
			return nil, ErrBodyTooLarge
		}
		return body, nil
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer zr.Close()
		return readLimited(zr)
	case "br":
		return readLimited(brotli.NewReader(bytes.NewReader(body)))
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	if len(data) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}
