// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Engine selects the search backend the provider queries on our behalf.
type Engine string

const (
	EngineGoogle Engine = "google"
	EngineBing   Engine = "bing"
)

// Engines lists the supported engines in display order.
var Engines = []Engine{EngineGoogle, EngineBing}

// ParseEngine normalizes s and reports whether it names a supported engine.
func ParseEngine(s string) (Engine, bool) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Engines {
		if e == known {
			return e, true
		}
	}
	return "", false
}

// Query is a single search call.
type Query struct {
	Text   string
	Engine Engine
	// APIKey overrides the server default credential when non-empty.
	APIKey string
}

// Result is one provider search record. Any field may be missing; a
// missing title is nil so callers can tell it apart from an empty one.
type Result struct {
	Title   *string
	Content string
	URL     string
}

// UnmarshalJSON decodes a record leniently: members that are not strings
// are treated as missing, and a record that is not an object decodes to an
// empty Result.
func (r *Result) UnmarshalJSON(data []byte) error {
	*r = Result{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	if title, ok := stringField(fields, "title"); ok {
		r.Title = &title
	}
	r.Content, _ = stringField(fields, "content")
	r.URL, _ = stringField(fields, "url")
	return nil
}

// Envelope is the provider's top-level reply.
type Envelope struct {
	// Code is 0 on success.
	Code    int
	Message string
	// Data is in provider relevance order.
	Data []Result
}

// Fetcher retrieves search envelopes from an external provider.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Envelope, error)
}

// decodeEnvelope parses a provider reply. The body must be a JSON object;
// an absent code means success and an absent or null data member means no
// results.
func decodeEnvelope(body []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("parse envelope: body is not an object")
	}

	env := &Envelope{}
	if raw, ok := fields["code"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &env.Code); err != nil {
			return nil, fmt.Errorf("parse envelope code: %w", err)
		}
	}
	if msg, ok := stringField(fields, "msg"); ok {
		env.Message = msg
	} else if msg, ok := stringField(fields, "message"); ok {
		env.Message = msg
	}
	if raw, ok := fields["data"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &env.Data); err != nil {
			return nil, fmt.Errorf("parse envelope data: %w", err)
		}
	}
	return env, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
