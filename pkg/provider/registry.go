// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package provider keeps named constructors for the pluggable backends the
// pipeline talks to, such as LLM chat providers.
//
// A backend package registers its constructors from init(), and callers
// build a client per request with Registry.Create. Names are matched
// case-insensitively.
package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrUnknown is returned by Create for names nobody registered.
var ErrUnknown = errors.New("unknown provider")

// Params carries per-request construction values (credentials, endpoints).
type Params map[string]string

// Require reports the keys that are missing or blank.
func (p Params) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(p[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing provider params: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Factory builds a backend from params.
type Factory[T any] func(ctx context.Context, params Params) (T, error)

// Registry maps provider names to factories for one backend kind. It is
// safe for concurrent use.
type Registry[T any] struct {
	kind      string
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry. kind appears in errors (e.g. "llm").
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]Factory[T]),
	}
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a factory. It panics on an empty or duplicate name, which
// only happens through a programming error at init time.
func (r *Registry[T]) Register(name string, f Factory[T]) {
	key := canonical(name)
	if key == "" || f == nil {
		panic(fmt.Sprintf("provider: invalid %s registration %q", r.kind, name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("provider: %s provider %q already registered", r.kind, key))
	}
	r.factories[key] = f
}

// Create builds the named backend. Unregistered names wrap ErrUnknown.
func (r *Registry[T]) Create(ctx context.Context, name string, params Params) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[canonical(name)]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q (available: %s)", ErrUnknown, r.kind, name, strings.Join(r.Names(), ", "))
	}
	return f(ctx, params)
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[canonical(name)]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
