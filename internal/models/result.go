// internal/models/result.go
package models

import "roof-report-service/internal/common/errors"

// Result is the outcome of one guarded pipeline step: a value or a StandardError, never both.
type Result[T any] struct {
	Value T
	Err   *errors.StandardError
}

func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func Fail[T any](err *errors.StandardError) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) Failed() bool {
	return r.Err != nil
}
