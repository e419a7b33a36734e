package gateway

import (
	"context"
	"errors"
)

// Outcome classifies how a gateway operation ended.
type Outcome int

const (
	// OK means the model produced usable content.
	OK Outcome = iota
	// Empty means the exchange succeeded but yielded nothing usable.
	Empty
	// Failed covers transport, auth and malformed-response failures.
	Failed
	// Canceled means the caller's context ended the exchange.
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result carries an operation's value and outcome. When Outcome is not OK,
// Value holds the operation's fallback shape, so callers that only read
// Value always get something displayable.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// OK reports whether the operation produced usable content.
func (r Result[T]) OK() bool { return r.Outcome == OK }

func okResult[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OK}
}

func emptyResult[T any](fallback T) Result[T] {
	return Result[T]{Value: fallback, Outcome: Empty}
}

// errResult classifies err as Canceled when the caller's context is done,
// and Failed otherwise. ctx must be the caller's context: a deadline set by
// the gateway itself counts as a failure.
func errResult[T any](ctx context.Context, fallback T, err error) Result[T] {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return Result[T]{Value: fallback, Outcome: Canceled, Err: err}
	}
	return Result[T]{Value: fallback, Outcome: Failed, Err: err}
}
