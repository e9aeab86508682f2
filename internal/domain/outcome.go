package domain

import "fmt"

// OutcomeKind tags how a pipeline stage finished.
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeDegraded
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of one stage: Ok(value), Degraded(value, reason) or Fatal(reason).
type Outcome[T any] struct {
	Kind   OutcomeKind
	Value  T
	Reason error
}

// Ok wraps a fully successful stage value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeOk, Value: v}
}

// Degraded wraps a usable value produced on a fallback path.
func Degraded[T any](v T, reason error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeDegraded, Value: v, Reason: reason}
}

// Fatal marks a stage that produced nothing usable.
func Fatal[T any](reason error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFatal, Reason: reason}
}

// Usable reports whether the outcome carries a value the pipeline can continue with.
func (o Outcome[T]) Usable() bool {
	return o.Kind != OutcomeFatal
}
