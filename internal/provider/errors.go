package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers network failures, non-2xx responses and cancelled waits.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrParse means the response arrived but did not have the expected shape.
	ErrParse = errors.New("provider response unparseable")
)

// Error carries the failing source and operation. errors.Is matches both Kind and Err.
type Error struct {
	Source string
	Op     string
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Source, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unavailable(source, op string, err error) error {
	return &Error{Source: source, Op: op, Kind: ErrUnavailable, Err: err}
}

func parseFailure(source, op string, err error) error {
	return &Error{Source: source, Op: op, Kind: ErrParse, Err: err}
}
