package beatport

import "fmt"

// DecodeError reports a provider payload missing a required field.
type DecodeError struct {
	Entity string
	Field  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: missing required field %q", e.Entity, e.Field)
}

// AuthError reports a failure establishing or verifying a session.
// StatusCode is zero unless the failure came from an HTTP status.
type AuthError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// APIError reports a failed catalog request: transport failure, non-2xx status
// or a body that is not JSON. StatusCode is zero unless an HTTP status was received.
type APIError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
