package shared

import (
	"errors"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// ErrNotFound is returned when a record does not exist. It matches shared.ErrNotFound.
var ErrNotFound = shared.ErrNotFound

var (
	// ErrInvalidID rejects non-positive identifiers.
	ErrInvalidID = errors.New("masterdata: invalid id")
	// ErrInUse is returned when a record is still referenced by a transaction.
	ErrInUse = userError{msg: "masterdata: record in use", user: "This record is used by existing transactions and cannot be deleted."}
)

type userError struct {
	msg  string
	user string
}

func (e userError) Error() string       { return e.msg }
func (e userError) UserMessage() string { return e.user }

// NewUserError builds an error whose user message is shown verbatim in flashes.
func NewUserError(msg, user string) error {
	return userError{msg: msg, user: user}
}

// ValidationError carries per-field messages keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "masterdata: validation failed"
}

// UserMessage implements shared.UserError.
func (e *ValidationError) UserMessage() string {
	return "Please correct the highlighted fields."
}

// Add records a message for field unless one is already present.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// FieldErrors extracts the per-field messages of err, or an empty map.
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return map[string]string{}
}
