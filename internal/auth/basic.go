package auth

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/torosent/restauth/internal/request"
)

// HTTPBasicAuthentication appends an Authorization: Basic header built from
// the connection user and password.
type HTTPBasicAuthentication struct {
	value string
}

func NewHTTPBasicAuthentication(user, password string) *HTTPBasicAuthentication {
	creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return &HTTPBasicAuthentication{value: "Basic " + creds}
}

// Token returns the encoded credentials immediately without any network calls.
func (b *HTTPBasicAuthentication) Token(context.Context) (string, error) {
	return b.value, nil
}

func (b *HTTPBasicAuthentication) TransformRequest(_ context.Context, req request.Request) (request.Request, error) {
	return req.WithHeader(request.Header{Name: "Authorization", Value: b.value})
}

func (b *HTTPBasicAuthentication) InjectHeader(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", b.value)
	return nil
}

func (b *HTTPBasicAuthentication) Close() error {
	return nil
}

// NoAuthentication leaves requests untouched.
type NoAuthentication struct{}

func (NoAuthentication) Token(context.Context) (string, error) { return "", nil }

func (NoAuthentication) TransformRequest(_ context.Context, req request.Request) (request.Request, error) {
	return req, nil
}

func (NoAuthentication) InjectHeader(context.Context, *http.Request) error { return nil }

func (NoAuthentication) Close() error { return nil }
