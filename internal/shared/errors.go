package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrUnauthenticated indicates the request carries no signed-in principal.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// UserError is implemented by errors whose message is safe to show to end users.
type UserError interface {
	error
	UserMessage() string
}

const genericUserMessage = "Something went wrong. Please try again."

// UserSafeMessage returns text suitable for a flash message. Errors that do not
// opt in through UserError collapse to a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue UserError
	if errors.As(err, &ue) {
		return ue.UserMessage()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "The requested record no longer exists."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "Your form expired. Please reload the page and try again."
	}
	return genericUserMessage
}
