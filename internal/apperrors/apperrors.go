// Package apperrors defines the error kinds shared by every module.
//
// Module errors wrap one of the kind sentinels so callers can classify a
// failure with errors.Is without importing the module that produced it.
package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidGuess        = errors.New("invalid guess")
	ErrForbidden           = errors.New("forbidden")
	ErrAllSecretsExhausted = errors.New("all secrets exhausted")
	ErrInsufficientBudget  = errors.New("insufficient budget")
	ErrUnknownModelFamily  = errors.New("unknown model family")
	ErrUnavailable         = errors.New("unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// Kind is a coarse classification of an error for transport layers.
type Kind string

const (
	KindInternal            Kind = "internal"
	KindNotFound            Kind = "not_found"
	KindInvalidGuess        Kind = "invalid_guess"
	KindForbidden           Kind = "forbidden"
	KindAllSecretsExhausted Kind = "all_secrets_exhausted"
	KindInsufficientBudget  Kind = "insufficient_budget"
	KindUnknownModelFamily  Kind = "unknown_model_family"
	KindUnavailable         Kind = "unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindInvalidArgument     Kind = "invalid_argument"
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrInvalidGuess, KindInvalidGuess},
	{ErrForbidden, KindForbidden},
	{ErrAllSecretsExhausted, KindAllSecretsExhausted},
	{ErrInsufficientBudget, KindInsufficientBudget},
	{ErrUnknownModelFamily, KindUnknownModelFamily},
	{ErrUnavailable, KindUnavailable},
	{ErrRateLimited, KindRateLimited},
	{ErrInvalidArgument, KindInvalidArgument},
}

// KindOf returns the kind of err, or KindInternal when err wraps no known kind.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// IsClientVisible reports whether err should be shown to the caller as-is
// rather than being treated as an internal failure.
func IsClientVisible(err error) bool {
	return err != nil && KindOf(err) != KindInternal
}

// Error carries a client-facing message alongside a kind sentinel.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an *Error that unwraps to kind.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Message returns the client-facing message of err if it carries one.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
