package auth

import (
	"errors"
	"fmt"
)

// ErrRemoteFetch matches every *RemoteFetchError via errors.Is.
var ErrRemoteFetch = errors.New("remote token fetch failed")

// FetchErrorKind classifies why the identity endpoint call failed.
type FetchErrorKind string

const (
	// FetchTransport covers request construction and network failures.
	FetchTransport FetchErrorKind = "transport"
	// FetchStatus is a non-2xx response.
	FetchStatus FetchErrorKind = "status"
	// FetchMalformed is a body that is not JSON or has no string token.
	FetchMalformed FetchErrorKind = "malformed_response"
)

// RemoteFetchError is returned when a token cannot be obtained from the
// identity endpoint.
type RemoteFetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	msg := fmt.Sprintf("fetch token from %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

func (e *RemoteFetchError) Is(target error) bool { return target == ErrRemoteFetch }

// FailureKind labels the error for metrics grouping.
func (e *RemoteFetchError) FailureKind() string { return string(e.Kind) }
