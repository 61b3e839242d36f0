// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package websearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/leseb/smartsearch-gw/pkg/core/credential"
	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
)

const (
	// DefaultEndpoint is the SearchCans search API.
	DefaultEndpoint = "https://global.searchcans.com/api/search"
	// DefaultTimeout bounds the whole outbound call.
	DefaultTimeout = 15 * time.Second

	maxWaitMillis   = 10000 // provider-side wait budget
	resultPage      = 1
	maxCacheSeconds = 7200
	maxExcerptRunes = 200
)

// DefaultErrorMessages maps SearchCans status codes to user-facing text.
// Codes not listed here fall back to the provider message and code.
var DefaultErrorMessages = map[int]string{
	-2010: "Invalid SearchCans API key. Please check your API key at https://global.searchcans.com/",
	-2011: "SearchCans API key quota exceeded. Please check your account balance.",
	-2012: "SearchCans API key expired. Please renew your subscription.",
}

// Options configures a SearchCans client.
type Options struct {
	Endpoint      string
	DefaultAPIKey string
	Timeout       time.Duration
	// ErrorMessages adds to or overrides DefaultErrorMessages.
	ErrorMessages map[int]string
	Logger        *slog.Logger
}

// Client fetches search envelopes from the SearchCans API.
type Client struct {
	http          *resty.Client
	endpoint      string
	defaultAPIKey string
	errorMessages map[int]string
	logger        *slog.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a SearchCans client. Zero-valued options take defaults.
func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	messages := make(map[int]string, len(DefaultErrorMessages)+len(opts.ErrorMessages))
	for code, msg := range DefaultErrorMessages {
		messages[code] = msg
	}
	for code, msg := range opts.ErrorMessages {
		messages[code] = msg
	}

	return &Client{
		http: resty.New().
			SetTimeout(opts.Timeout).
			SetRetryCount(0),
		endpoint:      opts.Endpoint,
		defaultAPIKey: opts.DefaultAPIKey,
		errorMessages: messages,
		logger:        opts.Logger,
	}
}

// HasDefaultKey reports whether a server default credential is configured.
func (c *Client) HasDefaultKey() bool {
	return strings.TrimSpace(c.defaultAPIKey) != ""
}

// Fetch runs one search and validates the reply at the transport, HTTP,
// payload and provider-status levels. Failures are *errdefs.Error values.
func (c *Client) Fetch(ctx context.Context, q Query) (*Envelope, error) {
	cred, err := credential.Resolve("SearchCans", q.APIKey, c.defaultAPIKey)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Calling SearchCans API",
		"query", q.Text,
		"engine", q.Engine,
		"key_source", cred.Source)

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(cred.Secret).
		SetHeader("Content-Type", "application/json").
		SetBody(searchRequest{
			Query:    q.Text,
			Engine:   string(q.Engine),
			WaitMS:   maxWaitMillis,
			Page:     resultPage,
			MaxCache: maxCacheSeconds,
		}).
		Post(c.endpoint)
	if err != nil {
		if isTimeout(err) {
			c.logger.Error("SearchCans API request timeout", "error", err)
			return nil, errdefs.UpstreamTimeout(err)
		}
		c.logger.Error("SearchCans API request failed", "error", err)
		return nil, errdefs.UpstreamUnavailable(
			fmt.Sprintf("Search service connection failed: %v", err), err)
	}

	if status := resp.StatusCode(); status < 200 || status > 299 {
		c.logger.Error("SearchCans API returned error status", "status", status)
		return nil, errdefs.UpstreamUnavailable(
			fmt.Sprintf("Search service temporarily unavailable (Status: %d, Message: %s)",
				status, excerpt(resp.String())),
			fmt.Errorf("searchcans returned status %d", status))
	}

	env, err := decodeEnvelope(resp.Body())
	if err != nil {
		c.logger.Error("SearchCans API returned unexpected data format", "error", err)
		return nil, errdefs.UpstreamFormat(err)
	}

	if env.Code != 0 {
		c.logger.Error("SearchCans API error", "code", env.Code, "msg", env.Message)
		return nil, errdefs.Provider(env.Code, c.providerMessage(env.Code, env.Message))
	}

	c.logger.Info("SearchCans API call successful", "results", len(env.Data))
	return env, nil
}

func (c *Client) providerMessage(code int, msg string) string {
	if text, ok := c.errorMessages[code]; ok {
		return text
	}
	return fmt.Sprintf("SearchCans API error: %s (code: %d)", msg, code)
}

type searchRequest struct {
	Query    string `json:"s"`
	Engine   string `json:"t"`
	WaitMS   int    `json:"d"`
	Page     int    `json:"p"`
	MaxCache int    `json:"maxCache"`
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// excerpt truncates a response body for inclusion in error messages.
func excerpt(body string) string {
	if body == "" {
		return "Unknown error"
	}
	runes := []rune(body)
	if len(runes) > maxExcerptRunes {
		return string(runes[:maxExcerptRunes])
	}
	return body
}
