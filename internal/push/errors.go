package push

import "errors"

// Dispatcher errors.
var (
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrAlreadyInitialized = errors.New("dispatcher already initialized")
)

// MalformedPayloadError reports a message that lacks the fields needed to
// build a display request.
type MalformedPayloadError struct {
	Reason string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Err != nil {
		return ErrMalformedPayload.Error() + ": " + e.Reason + ": " + e.Err.Error()
	}
	return ErrMalformedPayload.Error() + ": " + e.Reason
}

// Is reports ErrMalformedPayload as a match.
func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}
