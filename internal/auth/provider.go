package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/torosent/restauth/internal/request"
)

// Strategy decorates outgoing driver requests with authentication data.
type Strategy interface {
	// TransformRequest returns a copy of req carrying the strategy's
	// credentials. The headers of req itself are left untouched.
	TransformRequest(ctx context.Context, req request.Request) (request.Request, error)
}

// Provider defines the interface for authentication providers that can
// obtain tokens and inject them into HTTP requests.
type Provider interface {
	// Token retrieves a valid authentication token, using cached values
	// when available and valid.
	Token(ctx context.Context) (string, error)

	// InjectHeader adds the authentication header to the provided HTTP
	// request.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

// Observer receives token lifecycle events. metrics.Collector implements it.
type Observer interface {
	CacheHit()
	Refresh(reason string)
	FetchDone(latency time.Duration, err error)
}

// Refresh reasons reported to an Observer.
const (
	ReasonNoToken   = "no_token"
	ReasonExpired   = "expired"
	ReasonMalformed = "malformed"
)

type nopObserver struct{}

func (nopObserver) CacheHit()                      {}
func (nopObserver) Refresh(string)                 {}
func (nopObserver) FetchDone(time.Duration, error) {}
