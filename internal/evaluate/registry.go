// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate maps evaluator names to pure functions that turn a
// candidate plus signal params into a raw score in [0,1].
//
// A Registry is populated once at startup and read concurrently afterwards.
// Register is not safe to call while evaluations are in flight.
package evaluate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// ErrUnknownEvaluator is returned by Eval when the evaluator name is not
// registered. It is a programming error at evaluation time and must reach
// the caller.
var ErrUnknownEvaluator = errors.New("unknown evaluator")

// Func scores a candidate. Implementations must be pure and should return a
// value in [0,1]; callers clamp regardless.
type Func func(c *types.Candidate, params map[string]any) float64

// Registry is a named lookup table of evaluator functions.
type Registry struct {
	fns map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Func)}
}

// Builtin returns a registry holding the built-in DOM and vision evaluators.
func Builtin() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}

// Register stores fn under name, replacing any previous function.
func (r *Registry) Register(name string, fn Func) {
	r.fns[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.fns[name]
	return ok
}

// Names returns the registered evaluator names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Eval invokes the named evaluator. The returned value is whatever the
// function produced; clamping is the scorer's job.
func (r *Registry) Eval(name string, c *types.Candidate, params map[string]any) (float64, error) {
	fn, ok := r.fns[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEvaluator, name)
	}
	if params == nil {
		params = map[string]any{}
	}
	return fn(c, params), nil
}
