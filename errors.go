package sessioncore

import "errors"

var (
	// ErrCredentialMalformed is an exported sentinel used by the session engine.
	ErrCredentialMalformed = errors.New("structurally invalid credential")
	// ErrCredentialExpired is an exported sentinel used by the session engine.
	ErrCredentialExpired = errors.New("expired credential")
	// ErrRefreshFailed is an exported sentinel used by the session engine.
	ErrRefreshFailed = errors.New("credential refresh failed")
	// ErrTransportUnavailable is an exported sentinel used by the session engine.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrProfileFetchFailed is an exported sentinel used by the session engine.
	ErrProfileFetchFailed = errors.New("profile fetch failed")
	// ErrUnauthorized is an exported sentinel used by the session engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported sentinel used by the session engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is an exported sentinel used by the session engine.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAlreadyInitialized is an exported sentinel used by the session engine.
	ErrAlreadyInitialized = errors.New("session machine already initialized")
	// ErrMachineNotReady is an exported sentinel used by the session engine.
	ErrMachineNotReady = errors.New("session machine not built")
)

// StatusClass is the HTTP-like classification carried by transport errors.
// The engine consumes it only to decide retryability, never to branch on
// individual status codes.
type StatusClass uint8

const (
	// ClassNone means the error carries no transport classification.
	ClassNone StatusClass = iota
	// ClassClient covers 4xx-style rejections: the request was understood
	// and refused. Retrying the same request will not help.
	ClassClient
	// ClassServer covers 5xx-style failures on the far side.
	ClassServer
	// ClassNetwork covers failures before any response arrived.
	ClassNetwork
)

// String returns a short lowercase name for logs.
func (c StatusClass) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	case ClassNetwork:
		return "network"
	default:
		return "none"
	}
}

// Retryable reports whether a retry of the same request could plausibly
// succeed. Client rejections are final; server and network trouble are not.
func (c StatusClass) Retryable() bool {
	return c == ClassServer || c == ClassNetwork
}

// TransportError wraps a failure from the [Transport] collaborator with its
// status class and, when one exists, the HTTP status code.
type TransportError struct {
	Class      StatusClass
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport error (" + e.Class.String() + ")"
	}
	return "transport error (" + e.Class.String() + "): " + e.Err.Error()
}

// Unwrap exposes the underlying error to errors.Is / errors.As chains.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClassOf extracts the status class from an error chain, or [ClassNone]
// when no [*TransportError] is present.
func ClassOf(err error) StatusClass {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Class
	}
	return ClassNone
}
