package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/restauth/internal/tracing"
)

const (
	// maxTokenResponse bounds how much of the identity response is read.
	maxTokenResponse = 1 << 20

	defaultFetchTimeout = 30 * time.Second
)

// Credentials are posted to the identity endpoint as form fields.
type Credentials struct {
	Username string
	Password string
}

// Fetcher obtains a fresh token from an identity endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, creds Credentials) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, endpoint string, creds Credentials) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, endpoint string, creds Credentials) (string, error) {
	return f(ctx, endpoint, creds)
}

// RemoteFetcher posts form-encoded credentials and reads the token field of
// the JSON response.
type RemoteFetcher struct {
	client    *http.Client
	tracer    trace.Tracer
	propagate bool
}

// RemoteFetcherOption configures a RemoteFetcher.
type RemoteFetcherOption func(*RemoteFetcher)

// WithFetchTracer wraps every fetch in a client span. When propagate is set
// the trace context is forwarded to the identity endpoint.
func WithFetchTracer(tracer trace.Tracer, propagate bool) RemoteFetcherOption {
	return func(f *RemoteFetcher) {
		if tracer != nil {
			f.tracer = tracer
		}
		f.propagate = propagate
	}
}

// NewRemoteFetcher returns a fetcher using client. A nil client gets a 30s
// timeout.
func NewRemoteFetcher(client *http.Client, opts ...RemoteFetcherOption) *RemoteFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	f := &RemoteFetcher{
		client: client,
		tracer: noop.NewTracerProvider().Tracer("restauth"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs the login call. Every failure is a *RemoteFetchError.
func (f *RemoteFetcher) Fetch(ctx context.Context, endpoint string, creds Credentials) (token string, err error) {
	ctx, span := tracing.StartFetchSpan(ctx, f.tracer, endpoint)
	status := 0
	defer func() {
		tracing.EndSpan(span, err, attribute.Int("http.response.status_code", status))
	}()

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &RemoteFetchError{Kind: FetchTransport, URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if f.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &RemoteFetchError{Kind: FetchTransport, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return "", &RemoteFetchError{Kind: FetchTransport, URL: endpoint, StatusCode: status, Err: err}
	}

	if status < 200 || status >= 300 {
		return "", &RemoteFetchError{Kind: FetchStatus, URL: endpoint, StatusCode: status}
	}

	return extractToken(endpoint, status, body)
}

func extractToken(endpoint string, status int, body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &RemoteFetchError{
			Kind: FetchMalformed, URL: endpoint, StatusCode: status,
			Err: fmt.Errorf("response is not valid JSON"),
		}
	}
	result := gjson.GetBytes(body, "token")
	if result.Type != gjson.String || result.Str == "" {
		return "", &RemoteFetchError{
			Kind: FetchMalformed, URL: endpoint, StatusCode: status,
			Err: fmt.Errorf("response has no string token field"),
		}
	}
	return result.Str, nil
}
