package models

// ValidationError is a client-side precondition failure detected before any request is sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid returns a *ValidationError with msg.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}
