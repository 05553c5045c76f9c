package auth

import (
	"errors"
	"net/http"
)

// Transport is an http.RoundTripper that adds the provider's header to every
// request before handing it to Base.
type Transport struct {
	Provider Provider
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Provider == nil {
		return nil, errors.New("auth transport has no provider")
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	if err := t.Provider.InjectHeader(req.Context(), out); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
