// Package foundation provides small generic helpers shared by refbuilder packages.
package foundation

import "fmt"

// Result holds either a value or an error. Resolvers return it instead of (T, error)
// when the failure is an expected outcome the caller inspects rather than propagates.
type Result[T any, E error] struct {
	value T
	err   E
	isOk  bool
}

// Ok creates a successful Result.
func Ok[T any, E error](value T) Result[T, E] {
	return Result[T, E]{value: value, isOk: true}
}

// Err creates a failed Result.
func Err[T any, E error](err E) Result[T, E] {
	return Result[T, E]{err: err}
}

func (r Result[T, E]) IsOk() bool  { return r.isOk }
func (r Result[T, E]) IsErr() bool { return !r.isOk }

// Value returns the value and whether the Result is Ok.
func (r Result[T, E]) Value() (T, bool) {
	return r.value, r.isOk
}

// Error returns the error of a failed Result, or the zero E.
func (r Result[T, E]) Error() E {
	return r.err
}

// Unwrap returns the value if Ok and panics otherwise.
func (r Result[T, E]) Unwrap() T {
	if !r.isOk {
		panic(fmt.Sprintf("called Unwrap on Err result: %v", r.err))
	}
	return r.value
}

// UnwrapOr returns the value if Ok, otherwise the fallback.
func (r Result[T, E]) UnwrapOr(fallback T) T {
	if r.isOk {
		return r.value
	}
	return fallback
}

// Map transforms the value of a successful Result.
func Map[T, U any, E error](r Result[T, E], fn func(T) U) Result[U, E] {
	if r.isOk {
		return Ok[U, E](fn(r.value))
	}
	return Err[U, E](r.err)
}
