// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leseb/smartsearch-gw/pkg/core/api"
	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/provider"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClients returns a registry whose factories hand out mock and record
// the params they were built with.
func fakeClients(mock *api.MockChatCompletionClient, got *provider.Params) *provider.Registry[api.ChatCompletionClient] {
	r := provider.NewRegistry[api.ChatCompletionClient]("llm")
	factory := func(_ context.Context, params provider.Params) (api.ChatCompletionClient, error) {
		*got = params
		return mock, nil
	}
	r.Register(ProviderOpenAI, factory)
	r.Register(ProviderQwen, factory)
	return r
}

var testMessages = []api.Message{
	{Role: api.RoleSystem, Content: "s"},
	{Role: api.RoleUser, Content: "u"},
}

func TestGenerate_Routing(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		wantModel   string
		wantBaseURL string
		wantKey     string
	}{
		{
			name:      "openai default model and server key",
			req:       Request{Provider: ProviderOpenAI},
			wantModel: "gpt-4o-mini",
			wantKey:   "srv-openai",
		},
		{
			name:        "qwen default model and base URL",
			req:         Request{Provider: ProviderQwen},
			wantModel:   "qwen-plus",
			wantBaseURL: QwenBaseURL,
			wantKey:     "srv-qwen",
		},
		{
			name:      "caller model and key win",
			req:       Request{Provider: ProviderOpenAI, Model: "gpt-4o", APIKey: "user-key"},
			wantModel: "gpt-4o",
			wantKey:   "user-key",
		},
		{
			name:      "blank caller values count as absent",
			req:       Request{Provider: ProviderOpenAI, Model: "  ", APIKey: " "},
			wantModel: "gpt-4o-mini",
			wantKey:   "srv-openai",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &api.MockChatCompletionClient{Reply: "  Paris.\n"}
			var params provider.Params
			g := New(Options{
				Routes: map[string]Route{
					ProviderOpenAI: {APIKey: "srv-openai"},
					ProviderQwen:   {APIKey: "srv-qwen"},
				},
				Clients: fakeClients(mock, &params),
				Logger:  quietLogger(),
			})

			tt.req.Messages = testMessages
			ans, err := g.Generate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ans.Text != "Paris." {
				t.Errorf("Text = %q, want trimmed %q", ans.Text, "Paris.")
			}
			if ans.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", ans.Model, tt.wantModel)
			}
			if params[paramAPIKey] != tt.wantKey {
				t.Errorf("api_key = %q, want %q", params[paramAPIKey], tt.wantKey)
			}
			if params[paramBaseURL] != tt.wantBaseURL {
				t.Errorf("base_url = %q, want %q", params[paramBaseURL], tt.wantBaseURL)
			}

			reqs := mock.Requests()
			if len(reqs) != 1 {
				t.Fatalf("expected 1 call, got %d", len(reqs))
			}
			if reqs[0].Model != tt.wantModel {
				t.Errorf("request model = %q", reqs[0].Model)
			}
			if *reqs[0].Temperature != 0.7 || *reqs[0].MaxTokens != 2000 {
				t.Errorf("unexpected sampling params: %v %v", *reqs[0].Temperature, *reqs[0].MaxTokens)
			}
		})
	}
}

func TestGenerate_ConfigurationErrors(t *testing.T) {
	mock := api.NewMockChatCompletionClient()
	var params provider.Params
	g := New(Options{Clients: fakeClients(mock, &params), Logger: quietLogger()})

	_, err := g.Generate(context.Background(), Request{Provider: "anthropic", APIKey: "k", Messages: testMessages})
	if !errdefs.IsKind(err, errdefs.KindConfiguration) {
		t.Errorf("unknown provider: expected configuration error, got %v", err)
	}

	_, err = g.Generate(context.Background(), Request{Provider: ProviderQwen, Messages: testMessages})
	if !errdefs.IsKind(err, errdefs.KindConfiguration) {
		t.Fatalf("missing key: expected configuration error, got %v", err)
	}
	want := "No API key available for qwen. Please provide your own API key or configure a server default."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	if n := len(mock.Requests()); n != 0 {
		t.Errorf("expected no LLM calls, got %d", n)
	}
}

func TestGenerate_GenerationErrors(t *testing.T) {
	tests := map[string]*api.MockChatCompletionClient{
		"call fails": {Err: errors.New("connection reset")},
		"no choices": {NoChoices: true},
	}
	for name, mock := range tests {
		t.Run(name, func(t *testing.T) {
			var params provider.Params
			g := New(Options{
				Routes:  map[string]Route{ProviderOpenAI: {APIKey: "k"}},
				Clients: fakeClients(mock, &params),
				Logger:  quietLogger(),
			})
			_, err := g.Generate(context.Background(), Request{Provider: ProviderOpenAI, Messages: testMessages})
			if !errdefs.IsKind(err, errdefs.KindGeneration) {
				t.Fatalf("expected generation error, got %v", err)
			}
		})
	}
}

func TestGenerate_TimeoutParam(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    string
	}{
		{name: "default", want: "1m0s"},
		{name: "configured", timeout: 250 * time.Millisecond, want: "250ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params provider.Params
			g := New(Options{
				Routes:  map[string]Route{ProviderOpenAI: {APIKey: "k"}},
				Timeout: tt.timeout,
				Clients: fakeClients(&api.MockChatCompletionClient{Reply: "ok"}, &params),
				Logger:  quietLogger(),
			})
			if _, err := g.Generate(context.Background(), Request{Provider: ProviderOpenAI, Messages: testMessages}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if params[paramTimeout] != tt.want {
				t.Errorf("timeout = %q, want %q", params[paramTimeout], tt.want)
			}
		})
	}
}

func TestNewOpenAICompatible_Params(t *testing.T) {
	if _, err := newOpenAICompatible(context.Background(), provider.Params{paramAPIKey: "k", paramTimeout: "5s"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := newOpenAICompatible(context.Background(), provider.Params{paramAPIKey: "k", paramTimeout: "soon"}); err == nil {
		t.Error("expected error for unparsable timeout")
	}
	if _, err := newOpenAICompatible(context.Background(), provider.Params{}); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestGenerate_OpenAICompatibleServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compatible-mode/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer dash-key" {
			t.Errorf("unexpected Authorization %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"qwen-plus",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  Paris is the capital of France. "},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	defer srv.Close()

	g := New(Options{
		Routes: map[string]Route{
			ProviderQwen: {BaseURL: srv.URL + "/compatible-mode/v1", APIKey: "dash-key"},
		},
		Logger: quietLogger(),
	})
	ans, err := g.Generate(context.Background(), Request{Provider: ProviderQwen, Messages: testMessages})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "Paris is the capital of France." {
		t.Errorf("Text = %q", ans.Text)
	}
	if ans.Model != "qwen-plus" {
		t.Errorf("Model = %q, want qwen-plus", ans.Model)
	}
}

func TestGenerate_UpstreamErrorIsGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	g := New(Options{
		Routes: map[string]Route{ProviderOpenAI: {BaseURL: srv.URL, APIKey: "bad"}},
		Logger: quietLogger(),
	})
	_, err := g.Generate(context.Background(), Request{Provider: ProviderOpenAI, Messages: testMessages})
	if !errdefs.IsKind(err, errdefs.KindGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if got := errdefs.HTTPStatus(errdefs.KindOf(err)); got != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", got)
	}
}

func TestGenerator_HealthHelpers(t *testing.T) {
	g := New(Options{Routes: map[string]Route{ProviderOpenAI: {APIKey: "k"}}, Logger: quietLogger()})
	if !g.HasDefaultKey(ProviderOpenAI) || g.HasDefaultKey(ProviderQwen) {
		t.Error("HasDefaultKey disagrees with configured routes")
	}
	if got := g.Providers(); len(got) != 2 || got[0] != ProviderOpenAI || got[1] != ProviderQwen {
		t.Errorf("Providers() = %v", got)
	}
}
