// Package apperr defines the error kinds shared by the matching engine.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConnectivity
	KindDuplicateKey
	KindPartialData
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnectivity:
		return "connectivity"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindPartialData:
		return "partial_data"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConnectivity = &Error{Kind: KindConnectivity}
	ErrDuplicateKey = &Error{Kind: KindDuplicateKey}
	ErrPartialData  = &Error{Kind: KindPartialData}
	ErrNotFound     = &Error{Kind: KindNotFound}
)

// Error is a classified failure. Op names the operation, Field the offending
// input (validation only), ID the record involved (duplicate/partial data).
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" on %s", e.Field)
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" (%s)", e.ID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so that errors.Is(err, ErrValidation) works for any
// validation error regardless of its details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation reports malformed input.
func Validation(op, field, message string) error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// Connectivity wraps a failure to reach the embedding provider or a store.
func Connectivity(op string, err error) error {
	return &Error{Kind: KindConnectivity, Op: op, Err: err}
}

// DuplicateKey reports an insert against an id that already exists.
func DuplicateKey(op, id string) error {
	return &Error{Kind: KindDuplicateKey, Op: op, ID: id}
}

// PartialData reports a single record that could not be processed.
func PartialData(op, id string, err error) error {
	return &Error{Kind: KindPartialData, Op: op, ID: id, Err: err}
}

// NotFound reports a missing record or entry.
func NotFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, ID: id}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }
func IsConnectivity(err error) bool { return errors.Is(err, ErrConnectivity) }
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }
func IsPartialData(err error) bool  { return errors.Is(err, ErrPartialData) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateKey:
		return http.StatusConflict
	case KindConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
