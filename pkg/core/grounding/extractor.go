// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package grounding turns search results into the context block handed to
// the LLM and the list of sources cited back to the caller.
package grounding

import (
	"fmt"
	"strings"

	"github.com/leseb/smartsearch-gw/pkg/websearch"
)

// DefaultTitle stands in for results the provider returned without a title.
const DefaultTitle = "No title"

// Context is the grounding material derived from one search envelope.
type Context struct {
	// Text holds one numbered block per included result, blank-line separated.
	Text string
	// Sources lists unique URLs in first-occurrence order.
	Sources []string
	// Entries counts the blocks in Text.
	Entries int
}

// Empty reports whether no result qualified.
func (c Context) Empty() bool {
	return c.Text == "" && len(c.Sources) == 0
}

// Extract builds grounding context from env. Only results with both content
// and a URL are included; numbering counts included results. Repeated URLs
// keep their blocks but are listed once in Sources. Extract is pure.
func Extract(env *websearch.Envelope) Context {
	ctx := Context{Sources: []string{}}
	if env == nil {
		return ctx
	}

	blocks := make([]string, 0, len(env.Data))
	seen := make(map[string]struct{}, len(env.Data))
	for _, r := range env.Data {
		content := plainText(r.Content)
		if content == "" || r.URL == "" {
			continue
		}

		title := DefaultTitle
		if r.Title != nil {
			title = plainText(*r.Title)
		}

		blocks = append(blocks, fmt.Sprintf("[Source %d] %s\n%s\nURL: %s", len(blocks)+1, title, content, r.URL))

		if _, dup := seen[r.URL]; !dup {
			seen[r.URL] = struct{}{}
			ctx.Sources = append(ctx.Sources, r.URL)
		}
	}

	ctx.Text = strings.Join(blocks, "\n\n")
	ctx.Entries = len(blocks)
	return ctx
}
