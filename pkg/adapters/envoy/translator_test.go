// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package envoy

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/andybalholm/brotli"
	corev3 "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extproc "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"

	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
)

func TestHeaderValue(t *testing.T) {
	headers := &corev3.HeaderMap{Headers: []*corev3.HeaderValue{
		{Key: ":method", RawValue: []byte("POST")},
		{Key: ":path", Value: "/api/smart_search"},
		{Key: "Content-Encoding", RawValue: []byte("gzip")},
	}}

	tests := []struct {
		key  string
		want string
	}{
		{":method", "POST"},
		{":path", "/api/smart_search"},
		{"content-encoding", "gzip"},
		{"x-missing", ""},
	}
	for _, tt := range tests {
		if got := HeaderValue(headers, tt.key); got != tt.want {
			t.Errorf("HeaderValue(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}

	if got := HeaderValue(nil, ":path"); got != "" {
		t.Errorf("HeaderValue(nil) = %q, want empty", got)
	}
}

func TestIsSearchRoute(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{"POST", "/api/smart_search", true},
		{"POST", "/api/smart_search/", true},
		{"POST", "/api/smart_search?debug=1", true},
		{"GET", "/api/smart_search", false},
		{"POST", "/health", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := isSearchRoute(tt.method, tt.path); got != tt.want {
			t.Errorf("isSearchRoute(%q, %q) = %v, want %v", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestDecodeContent(t *testing.T) {
	payload := []byte(`{"query":"capital of France"}`)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(payload)
	zw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(payload)
	bw.Close()

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{"identity", payload, "identity"},
		{"empty", payload, ""},
		{"gzip", gz.Bytes(), "gzip"},
		{"brotli", br.Bytes(), "br"},
		{"case insensitive", gz.Bytes(), " GZIP "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContent(tt.body, tt.encoding)
			if err != nil {
				t.Fatalf("DecodeContent: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("DecodeContent = %q, want %q", got, payload)
			}
		})
	}

	if _, err := DecodeContent(payload, "deflate"); err == nil {
		t.Error("expected error for unsupported encoding")
	}
	if _, err := DecodeContent([]byte("not gzip"), "gzip"); err == nil {
		t.Error("expected error for corrupt gzip body")
	}
}

func TestDecodeContent_Limit(t *testing.T) {
	huge := bytes.Repeat([]byte("a"), 8<<20)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(huge)
	zw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(huge)
	bw.Close()

	tests := []struct {
		name     string
		body     []byte
		encoding string
	}{
		{"gzip bomb", gz.Bytes(), "gzip"},
		{"brotli bomb", br.Bytes(), "br"},
		{"identity", huge[:MaxBodySize+1], ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeContent(tt.body, tt.encoding)
			if !errors.Is(err, ErrBodyTooLarge) {
				t.Errorf("err = %v, want ErrBodyTooLarge", err)
			}
		})
	}

	exact := huge[:MaxBodySize]
	var ok bytes.Buffer
	zw = gzip.NewWriter(&ok)
	zw.Write(exact)
	zw.Close()
	got, err := DecodeContent(ok.Bytes(), "gzip")
	if err != nil || len(got) != MaxBodySize {
		t.Errorf("body at the limit: len = %d, err = %v", len(got), err)
	}
}

func TestExtractSearchRequest(t *testing.T) {
	req, err := ExtractSearchRequest(&extproc.HttpBody{Body: []byte(`{"query":"q","llm_provider":"qwen"}`)}, "")
	if err != nil {
		t.Fatalf("ExtractSearchRequest: %v", err)
	}
	if req.Query != "q" || req.LLMProvider != "qwen" || req.SearchEngine != schema.DefaultSearchEngine {
		t.Errorf("unexpected request %+v", req)
	}

	if _, err := ExtractSearchRequest(nil, ""); err == nil {
		t.Error("expected error for nil body")
	}

	_, err = ExtractSearchRequest(&extproc.HttpBody{Body: []byte(`{"query":""}`)}, "")
	if !errdefs.IsKind(err, errdefs.KindValidation) {
		t.Errorf("empty query: err = %v, want validation error", err)
	}

	_, err = ExtractSearchRequest(&extproc.HttpBody{Body: []byte(`not json`)}, "")
	if err == nil || errdefs.IsKind(err, errdefs.KindValidation) {
		t.Errorf("bad JSON: err = %v, want plain decode error", err)
	}
}

func TestCreateSuccessResponse(t *testing.T) {
	resp, err := CreateSuccessResponse(&schema.SearchResponse{Answer: "Paris."}, "req-1")
	if err != nil {
		t.Fatalf("CreateSuccessResponse: %v", err)
	}

	imm := resp.GetImmediateResponse()
	if imm == nil {
		t.Fatal("expected ImmediateResponse")
	}
	if imm.GetStatus().GetCode() != http.StatusOK {
		t.Errorf("status = %v, want 200", imm.GetStatus().GetCode())
	}

	var body map[string]any
	if err := json.Unmarshal(imm.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["answer"] != "Paris." {
		t.Errorf("answer = %v", body["answer"])
	}
	if sources, ok := body["sources"].([]any); !ok || len(sources) != 0 {
		t.Errorf("sources = %v, want empty array", body["sources"])
	}

	got := map[string]string{}
	for _, h := range imm.GetHeaders().GetSetHeaders() {
		got[h.GetHeader().GetKey()] = string(h.GetHeader().GetRawValue())
	}
	if got["content-type"] != "application/json" || got["x-request-id"] != "req-1" {
		t.Errorf("headers = %v", got)
	}
}

func TestCreateErrorResponse(t *testing.T) {
	tests := []struct {
		err    *errdefs.Error
		status int
	}{
		{errdefs.Validation("Query cannot be empty"), 422},
		{errdefs.Configuration("No API key available for openai."), 400},
		{errdefs.UpstreamTimeout(nil), 504},
		{errdefs.Generation(errors.New("upstream 500")), 503},
		{errdefs.Internal(errors.New("boom")), 500},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			imm := CreateErrorResponse(tt.err, "").GetImmediateResponse()
			if imm == nil {
				t.Fatal("expected ImmediateResponse")
			}
			if int(imm.GetStatus().GetCode()) != tt.status {
				t.Errorf("status = %d, want %d", imm.GetStatus().GetCode(), tt.status)
			}

			var body schema.ErrorResponse
			if err := json.Unmarshal(imm.Body, &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != string(tt.err.Kind) || body.Detail != tt.err.Message {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestCreateBadRequestResponse(t *testing.T) {
	imm := CreateBadRequestResponse("Invalid request body", "").GetImmediateResponse()
	if imm.GetStatus().GetCode() != http.StatusBadRequest {
		t.Errorf("status = %v, want 400", imm.GetStatus().GetCode())
	}
	var body schema.ErrorResponse
	if err := json.Unmarshal(imm.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "invalid_request" || body.Timestamp == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestContinueResponses(t *testing.T) {
	if CreateHeadersContinueResponse().GetRequestHeaders() == nil {
		t.Error("expected RequestHeaders response")
	}
	if CreateBodyContinueResponse().GetRequestBody() == nil {
		t.Error("expected RequestBody response")
	}
}
