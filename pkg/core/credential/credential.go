// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential resolves which secret an outbound call uses.
package credential

import (
	"strings"

	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
)

// Source records where a resolved secret came from.
type Source string

const (
	SourceCustom        Source = "custom"
	SourceServerDefault Source = "server_default"
)

// Credential is a resolved secret and its provenance.
type Credential struct {
	Secret string
	Source Source
}

// Resolve picks the caller-supplied override when present, otherwise the
// server default. Blank values count as absent. subject names the service
// in the configuration error returned when neither is set.
func Resolve(subject, override, fallback string) (Credential, error) {
	if v := strings.TrimSpace(override); v != "" {
		return Credential{Secret: v, Source: SourceCustom}, nil
	}
	if v := strings.TrimSpace(fallback); v != "" {
		return Credential{Secret: v, Source: SourceServerDefault}, nil
	}
	return Credential{}, errdefs.Configuration(
		"No API key available for %s. Please provide your own API key or configure a server default.", subject)
}
