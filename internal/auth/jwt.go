package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/restauth/internal/logging"
	"github.com/torosent/restauth/internal/request"
	"github.com/torosent/restauth/internal/session"
)

const (
	// TokenHeader carries the prefixed token on driver requests.
	TokenHeader = "X-API-Token"
	// TokenSessionKey is the single session slot holding the cached token.
	TokenSessionKey = "doctrine_rest_driver_jwt_token"
	// DefaultRevalidateTokenTime is the token age after which it is refreshed.
	DefaultRevalidateTokenTime = 5 * time.Second
)

// JWTOptions are the connection settings consumed by JWTAuthentication.
type JWTOptions struct {
	User     string
	Password string
	URL      string
	// Prefix is prepended verbatim to the token in the header value.
	Prefix string
	// RevalidateTokenTime <= 0 means DefaultRevalidateTokenTime.
	RevalidateTokenTime time.Duration
}

// Option configures a JWTAuthentication.
type Option func(*JWTAuthentication)

// WithStore sets the session store holding the cached token. Without it a
// private MemoryStore is used.
func WithStore(store session.Store) Option {
	return func(a *JWTAuthentication) {
		if store != nil {
			a.store = store
		}
	}
}

func WithFetcher(f Fetcher) Option {
	return func(a *JWTAuthentication) {
		if f != nil {
			a.fetcher = f
		}
	}
}

// WithHTTPClient sets the client used by the default fetcher. The caller
// keeps ownership of it.
func WithHTTPClient(client *http.Client) Option {
	return func(a *JWTAuthentication) {
		a.client = client
	}
}

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(a *JWTAuthentication) {
		if now != nil {
			a.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *JWTAuthentication) {
		a.logger = logging.OrNop(logger)
	}
}

func WithObserver(o Observer) Option {
	return func(a *JWTAuthentication) {
		if o != nil {
			a.observer = o
		}
	}
}

// WithTracer traces identity endpoint calls made by the default fetcher.
func WithTracer(tracer trace.Tracer, propagate bool) Option {
	return func(a *JWTAuthentication) {
		a.tracer = tracer
		a.propagate = propagate
	}
}

// JWTAuthentication fetches a token from an identity endpoint, caches it in
// the session and appends it to every driver request as X-API-Token.
//
// A cached token is reused until iat + RevalidateTokenTime is reached; the
// exp claim is ignored. Concurrent callers may refresh at the same time, in
// which case the last stored token wins.
type JWTAuthentication struct {
	opts     JWTOptions
	fetcher  Fetcher
	now      func() time.Time
	logger   *zap.Logger
	observer Observer

	// own* mark resources created here rather than injected.
	store     session.Store
	ownStore  bool
	client    *http.Client
	ownClient bool

	tracer    trace.Tracer
	propagate bool
}

// NewJWTAuthentication creates the strategy. The endpoint URL is required.
func NewJWTAuthentication(opts JWTOptions, options ...Option) (*JWTAuthentication, error) {
	if opts.URL == "" {
		return nil, errors.New("jwt authentication requires a token URL")
	}
	if opts.RevalidateTokenTime <= 0 {
		opts.RevalidateTokenTime = DefaultRevalidateTokenTime
	}

	a := &JWTAuthentication{
		opts:     opts,
		now:      time.Now,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range options {
		opt(a)
	}

	if a.store == nil {
		a.store = session.NewMemoryStore()
		a.ownStore = true
	}
	if a.fetcher == nil {
		if a.client == nil {
			a.client = &http.Client{Timeout: defaultFetchTimeout}
			a.ownClient = true
		}
		var fopts []RemoteFetcherOption
		if a.tracer != nil {
			fopts = append(fopts, WithFetchTracer(a.tracer, a.propagate))
		}
		a.fetcher = NewRemoteFetcher(a.client, fopts...)
	}
	a.logger = a.logger.With(zap.String("strategy", "jwt"), zap.String("jwt_url", opts.URL))

	return a, nil
}

// Token returns the cached token, fetching a new one when the session holds
// none or the cached one has reached its revalidation age.
func (a *JWTAuthentication) Token(ctx context.Context) (string, error) {
	cached, ok, err := a.store.Get(ctx, TokenSessionKey)
	if err != nil {
		return "", fmt.Errorf("read cached token: %w", err)
	}

	reason := ReasonNoToken
	if ok && cached != "" {
		reason = a.staleReason(cached)
		if reason == "" {
			a.observer.CacheHit()
			return cached, nil
		}
	}

	token, err := a.refresh(ctx, reason)
	if err != nil {
		return "", err
	}
	return token, nil
}

// staleReason returns "" when cached is still usable.
func (a *JWTAuthentication) staleReason(cached string) string {
	iat, err := IssuedAt(cached)
	if err != nil {
		a.logger.Warn("cached token unreadable, refreshing", zap.Error(err))
		return ReasonMalformed
	}
	expiresAt := iat.Add(a.opts.RevalidateTokenTime)
	if !expiresAt.After(a.now().Truncate(time.Second)) {
		return ReasonExpired
	}
	return ""
}

func (a *JWTAuthentication) refresh(ctx context.Context, reason string) (string, error) {
	a.logger.Debug("fetching token", zap.String("reason", reason))

	start := time.Now()
	token, err := a.fetcher.Fetch(ctx, a.opts.URL, Credentials{
		Username: a.opts.User,
		Password: a.opts.Password,
	})
	latency := time.Since(start)
	a.observer.FetchDone(latency, err)
	if err != nil {
		a.logger.Error("token fetch failed", zap.Error(err), zap.Duration("latency", latency))
		return "", err
	}

	if err := a.store.Set(ctx, TokenSessionKey, token); err != nil {
		return "", fmt.Errorf("cache token: %w", err)
	}
	a.observer.Refresh(reason)
	a.logger.Debug("token refreshed", zap.String("reason", reason), zap.Duration("latency", latency))
	return token, nil
}

// HeaderValue returns the X-API-Token value for the current token.
func (a *JWTAuthentication) HeaderValue(ctx context.Context) (string, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return "", err
	}
	return a.opts.Prefix + token, nil
}

// TransformRequest appends X-API-Token to the request's header list.
func (a *JWTAuthentication) TransformRequest(ctx context.Context, req request.Request) (request.Request, error) {
	value, err := a.HeaderValue(ctx)
	if err != nil {
		return request.Request{}, err
	}
	return req.WithHeader(request.Header{Name: TokenHeader, Value: value})
}

// InjectHeader sets X-API-Token on an outgoing HTTP request.
func (a *JWTAuthentication) InjectHeader(ctx context.Context, req *http.Request) error {
	value, err := a.HeaderValue(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	req.Header.Add(TokenHeader, value)
	return nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (a *JWTAuthentication) Invalidate(ctx context.Context) error {
	return a.store.Delete(ctx, TokenSessionKey)
}

// Close releases the store and HTTP client when they were created by the
// strategy. Injected ones are left to the caller.
func (a *JWTAuthentication) Close() error {
	if a.ownClient {
		a.client.CloseIdleConnections()
	}
	if a.ownStore {
		return a.store.Close()
	}
	return nil
}
