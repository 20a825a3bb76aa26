// Package llm is the language-model boundary of the intake flow. Every
// capability returns a typed Result whose Value is always usable: on any
// failure it holds the capability's safe default.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no generator is available.
	ErrNotConfigured = errors.New("llm generator not configured")
	// ErrMalformed marks output that could not be decoded or validated.
	ErrMalformed = errors.New("malformed llm output")
	// ErrEmpty marks an empty generation.
	ErrEmpty = errors.New("empty llm output")
)

// Request is a single generation request.
type Request struct {
	Prompt string
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// HealthChecker is implemented by generators that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Result is the outcome of a gateway capability.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether Value came from the model.
func (r Result[T]) OK() bool { return r.Err == nil }

func ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func failed[T any](def T, err error) Result[T] { return Result[T]{Value: def, Err: err} }
