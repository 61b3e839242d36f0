// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package grounding

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// highlightTag matches the inline tags search providers wrap around query
// hits. Any other '<' is content and stays.
var highlightTag = regexp.MustCompile(`(?i)</?(?:em|b|strong|mark)\s*>`)

// plainText drops highlight tags and decodes entities. Whitespace and every
// other character are kept as the provider sent them.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(highlightTag.ReplaceAllString(s, ""))
}
