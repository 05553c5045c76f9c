package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/torosent/restauth/internal/request"
)

// Strategy decorates driver requests before they are sent.
// auth.Strategy satisfies it.
type Strategy interface {
	TransformRequest(ctx context.Context, req request.Request) (request.Request, error)
}

// Executor sends driver requests after running them through a strategy.
type Executor struct {
	client   *http.Client
	strategy Strategy
}

// NewExecutor returns an executor. A nil client gets NewClient(30s); a nil
// strategy sends requests unchanged.
func NewExecutor(client *http.Client, strategy Strategy) *Executor {
	if client == nil {
		client = NewClient(30 * time.Second)
	}
	return &Executor{client: client, strategy: strategy}
}

// Prepare applies the strategy to req and returns the decorated request.
func (e *Executor) Prepare(ctx context.Context, req request.Request) (request.Request, error) {
	if e == nil {
		return request.Request{}, errors.New("executor cannot be nil")
	}
	if e.strategy == nil {
		return req, nil
	}
	out, err := e.strategy.TransformRequest(ctx, req)
	if err != nil {
		return request.Request{}, fmt.Errorf("transform request: %w", err)
	}
	return out, nil
}

// Do decorates req and sends it. The caller closes the response body.
func (e *Executor) Do(ctx context.Context, req request.Request) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	prepared, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := prepared.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}
	return e.client.Do(httpReq)
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
