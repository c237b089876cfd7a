package peerclient

import "errors"

// RequestErrorKind classifies peer query failures.
type RequestErrorKind int

const (
	// ErrorTransport indicates a transport-level failure (connect, timeout,
	// no usable HTTP response).
	ErrorTransport RequestErrorKind = iota
	// ErrorApplication indicates the peer answered but the answer was a
	// refusal or unusable (4xx/5xx status, malformed or mis-sized payload).
	ErrorApplication
)

func (k RequestErrorKind) String() string {
	switch k {
	case ErrorTransport:
		return "transport"
	case ErrorApplication:
		return "application"
	default:
		return "unknown"
	}
}

// RequestError wraps an underlying error with a classification.
type RequestError struct {
	Kind RequestErrorKind
	Err  error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error { return e.Err }

func NewTransportError(err error) *RequestError {
	if err == nil {
		err = errors.New("transport error")
	}
	return &RequestError{Kind: ErrorTransport, Err: err}
}

func NewApplicationError(err error) *RequestError {
	if err == nil {
		err = errors.New("application error")
	}
	return &RequestError{Kind: ErrorApplication, Err: err}
}

// IsTransport reports whether err carries a transport classification.
func IsTransport(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == ErrorTransport
}
