package httpapi

import (
	"errors"

	"github.com/KeviinASD/audi-back/internal/domain"
)

// Result response envelope of the audit dashboard API.
// - code: 2000 on success, -1 on failure
// - type: 'success' | 'warning' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

const (
	typeSuccess = "success"
	typeWarning = "warning"
	typeError   = "error"
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: typeSuccess, Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: typeError, Message: message}
}

// FailFor classifies err. Caller mistakes are warnings; provider and parse
// failures keep their message; anything else hides driver details.
func FailFor(err error) Result[any] {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrNotFound):
		return Result[any]{Code: ResultError, Type: typeWarning, Message: err.Error()}
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrParse):
		return Fail(err.Error())
	default:
		return Fail("internal error")
	}
}
