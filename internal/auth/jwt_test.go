package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/restauth/internal/request"
	"github.com/torosent/restauth/internal/session"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return fixedNow }

// makeToken builds an unsigned three-part token carrying the given iat.
func makeToken(iat int64) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"iat":%d}`, iat)))
	return "h." + payload + ".s"
}

// mockIdentityServer provides a test login endpoint that tracks requests.
type mockIdentityServer struct {
	server       *httptest.Server
	requestCount int32
	mu           sync.Mutex
	body         string
	statusCode   int
	lastForm     map[string]string
	lastCT       string
	lastTrace    string
}

func newMockIdentityServer(token string) *mockIdentityServer {
	m := &mockIdentityServer{statusCode: http.StatusOK}
	m.setToken(token)

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.requestCount, 1)

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.lastForm = map[string]string{
			"username": r.PostForm.Get("username"),
			"password": r.PostForm.Get("password"),
		}
		m.lastCT = r.Header.Get("Content-Type")
		m.lastTrace = r.Header.Get("Traceparent")
		status, body := m.statusCode, m.body
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return m
}

func (m *mockIdentityServer) setToken(token string) {
	data, _ := json.Marshal(map[string]string{"token": token})
	m.setBody(string(data))
}

func (m *mockIdentityServer) setBody(body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = body
}

func (m *mockIdentityServer) setStatusCode(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCode = code
}

func (m *mockIdentityServer) getRequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

func (m *mockIdentityServer) close() {
	m.server.Close()
}

func newTestJWT(t *testing.T, url string, opts ...Option) *JWTAuthentication {
	t.Helper()
	options := append([]Option{WithClock(fixedClock)}, opts...)
	a, err := NewJWTAuthentication(JWTOptions{
		User:     "a",
		Password: "b",
		URL:      url,
		Prefix:   "Bearer ",
	}, options...)
	if err != nil {
		t.Fatalf("NewJWTAuthentication() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestTransformRequestWithoutHeaders(t *testing.T) {
	token := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(token)
	defer mock.close()

	a := newTestJWT(t, mock.server.URL)

	req, err := request.New("GET", "http://api.example.com/users", nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := a.TransformRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("TransformRequest() error = %v", err)
	}

	headers := out.Headers()
	if len(headers) != 1 {
		t.Fatalf("expected exactly 1 header, got %d: %v", len(headers), headers)
	}
	if got := headers[0].String(); got != "X-API-Token: Bearer "+token {
		t.Errorf("header = %q", got)
	}
}

func TestTransformRequestAppendsAfterExistingHeaders(t *testing.T) {
	token := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(token)
	defer mock.close()

	a := newTestJWT(t, mock.server.URL)

	existing := []request.Header{
		{Name: "Accept", Value: "application/json"},
		{Name: "X-Trace", Value: "abc"},
	}
	req, err := request.New("POST", "http://api.example.com/users", []byte(`{}`), existing...)
	if err != nil {
		t.Fatal(err)
	}

	out, err := a.TransformRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("TransformRequest() error = %v", err)
	}

	headers := out.Headers()
	if len(headers) != 3 {
		t.Fatalf("expected 3 headers, got %d", len(headers))
	}
	for i, h := range existing {
		if headers[i] != h {
			t.Errorf("header %d = %v, want %v", i, headers[i], h)
		}
	}
	if headers[2].Name != TokenHeader || headers[2].Value != "Bearer "+token {
		t.Errorf("last header = %v", headers[2])
	}

	if len(req.Headers()) != 2 {
		t.Errorf("input request was mutated: %v", req.Headers())
	}
}

func TestFreshCachedTokenSkipsRemoteCall(t *testing.T) {
	token := makeToken(fixedNow.Unix() - 2)
	mock := newMockIdentityServer("unused")
	defer mock.close()

	store := session.NewMemoryStore()
	if err := store.Set(context.Background(), TokenSessionKey, token); err != nil {
		t.Fatal(err)
	}

	a := newTestJWT(t, mock.server.URL, WithStore(store))

	for i := 0; i < 3; i++ {
		got, err := a.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if got != token {
			t.Errorf("Token() = %q, want cached %q", got, token)
		}
	}
	if mock.getRequestCount() != 0 {
		t.Errorf("expected no remote calls, got %d", mock.getRequestCount())
	}
}

func TestFirstCallFetchesAndCaches(t *testing.T) {
	token := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(token)
	defer mock.close()

	store := session.NewMemoryStore()
	a := newTestJWT(t, mock.server.URL, WithStore(store))

	if _, err := a.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if _, err := a.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if mock.getRequestCount() != 1 {
		t.Errorf("expected 1 remote call, got %d", mock.getRequestCount())
	}
	cached, ok, _ := store.Get(context.Background(), TokenSessionKey)
	if !ok || cached != token {
		t.Errorf("session slot = %q (%v), want %q", cached, ok, token)
	}
}

func TestStaleTokenTriggersSingleRefresh(t *testing.T) {
	tests := []struct {
		name string
		iat  int64
	}{
		{"past", fixedNow.Unix() - 60},
		{"equal to now", fixedNow.Unix() - 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh := makeToken(fixedNow.Unix())
			mock := newMockIdentityServer(fresh)
			defer mock.close()

			store := session.NewMemoryStore()
			_ = store.Set(context.Background(), TokenSessionKey, makeToken(tt.iat))

			a := newTestJWT(t, mock.server.URL, WithStore(store))

			got, err := a.Token(context.Background())
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if got != fresh {
				t.Errorf("Token() = %q, want refreshed %q", got, fresh)
			}
			if mock.getRequestCount() != 1 {
				t.Errorf("expected exactly 1 remote call, got %d", mock.getRequestCount())
			}
			cached, _, _ := store.Get(context.Background(), TokenSessionKey)
			if cached != fresh {
				t.Errorf("cache not replaced: %q", cached)
			}
		})
	}
}

func TestRevalidateTokenTimeOverride(t *testing.T) {
	mock := newMockIdentityServer(makeToken(fixedNow.Unix()))
	defer mock.close()

	store := session.NewMemoryStore()
	cached := makeToken(fixedNow.Unix() - 30)
	_ = store.Set(context.Background(), TokenSessionKey, cached)

	a, err := NewJWTAuthentication(JWTOptions{
		URL:                 mock.server.URL,
		RevalidateTokenTime: time.Minute,
	}, WithStore(store), WithClock(fixedClock))
	if err != nil {
		t.Fatal(err)
	}

	got, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got != cached {
		t.Errorf("expected cached token within a one minute window")
	}
	if mock.getRequestCount() != 0 {
		t.Errorf("expected no remote calls, got %d", mock.getRequestCount())
	}
}

func TestDefaults(t *testing.T) {
	a, err := NewJWTAuthentication(JWTOptions{URL: "http://id/login"})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.opts.RevalidateTokenTime != 5*time.Second {
		t.Errorf("revalidate = %v, want 5s", a.opts.RevalidateTokenTime)
	}
	if a.opts.Prefix != "" {
		t.Errorf("prefix = %q, want empty", a.opts.Prefix)
	}
}

func TestNewJWTAuthenticationRequiresURL(t *testing.T) {
	if _, err := NewJWTAuthentication(JWTOptions{User: "a"}); err == nil {
		t.Fatal("expected error without URL")
	}
}

// iat=0 is always older than the revalidation window, so every call refetches.
func TestIssuedAtZeroAlwaysRefreshes(t *testing.T) {
	mock := newMockIdentityServer("x.eyJpYXQiOjB9.y")
	defer mock.close()

	a, err := NewJWTAuthentication(JWTOptions{
		User:     "a",
		Password: "b",
		URL:      mock.server.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ctx := context.Background()
	first, err := a.Token(ctx)
	if err != nil {
		t.Fatalf("first Token() error = %v", err)
	}
	if first != "x.eyJpYXQiOjB9.y" {
		t.Errorf("first token = %q", first)
	}
	if mock.getRequestCount() != 1 {
		t.Fatalf("expected 1 remote call after first Token(), got %d", mock.getRequestCount())
	}

	if _, err := a.Token(ctx); err != nil {
		t.Fatalf("second Token() error = %v", err)
	}
	if mock.getRequestCount() != 2 {
		t.Errorf("expected refresh on second call, got %d remote calls", mock.getRequestCount())
	}
}

func TestFetchPostsFormCredentials(t *testing.T) {
	mock := newMockIdentityServer(makeToken(fixedNow.Unix()))
	defer mock.close()

	a := newTestJWT(t, mock.server.URL)
	if _, err := a.Token(context.Background()); err != nil {
		t.Fatal(err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if mock.lastCT != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", mock.lastCT)
	}
	if mock.lastForm["username"] != "a" || mock.lastForm["password"] != "b" {
		t.Errorf("form = %v", mock.lastForm)
	}
}

func TestMalformedCachedTokenForcesRefresh(t *testing.T) {
	fresh := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(fresh)
	defer mock.close()

	for _, bad := range []string{"not-a-jwt", "a.%%%.c", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`)) + ".c"} {
		store := session.NewMemoryStore()
		_ = store.Set(context.Background(), TokenSessionKey, bad)
		obs := &recordingObserver{}

		a := newTestJWT(t, mock.server.URL, WithStore(store), WithObserver(obs))
		got, err := a.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() with cached %q error = %v", bad, err)
		}
		if got != fresh {
			t.Errorf("Token() = %q, want %q", got, fresh)
		}
		if obs.reasons() != ReasonMalformed {
			t.Errorf("refresh reason = %q, want %q", obs.reasons(), ReasonMalformed)
		}
	}
}

func TestFetchFailuresAreRemoteFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   FetchErrorKind
	}{
		{"server error", http.StatusInternalServerError, `{"token":"t"}`, FetchStatus},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad credentials"}`, FetchStatus},
		{"not json", http.StatusOK, `<html>`, FetchMalformed},
		{"missing token", http.StatusOK, `{"jwt":"t"}`, FetchMalformed},
		{"numeric token", http.StatusOK, `{"token":42}`, FetchMalformed},
		{"empty token", http.StatusOK, `{"token":""}`, FetchMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockIdentityServer("")
			defer mock.close()
			mock.setStatusCode(tt.status)
			mock.setBody(tt.body)

			store := session.NewMemoryStore()
			a := newTestJWT(t, mock.server.URL, WithStore(store))

			req, _ := request.New("GET", "http://api/x", nil)
			_, err := a.TransformRequest(context.Background(), req)
			if !errors.Is(err, ErrRemoteFetch) {
				t.Fatalf("error = %v, want ErrRemoteFetch", err)
			}
			var rfe *RemoteFetchError
			if !errors.As(err, &rfe) {
				t.Fatalf("error %T is not *RemoteFetchError", err)
			}
			if rfe.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", rfe.Kind, tt.kind)
			}
			if rfe.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", rfe.StatusCode, tt.status)
			}
			if _, ok, _ := store.Get(context.Background(), TokenSessionKey); ok {
				t.Error("failed fetch must not populate the cache")
			}
		})
	}
}

func TestTransportFailureIsRemoteFetchError(t *testing.T) {
	mock := newMockIdentityServer("t")
	url := mock.server.URL
	mock.close()

	a := newTestJWT(t, url)
	_, err := a.Token(context.Background())

	var rfe *RemoteFetchError
	if !errors.As(err, &rfe) {
		t.Fatalf("error = %v, want *RemoteFetchError", err)
	}
	if rfe.Kind != FetchTransport {
		t.Errorf("kind = %q, want transport", rfe.Kind)
	}
	if rfe.Unwrap() == nil {
		t.Error("transport error should wrap the underlying cause")
	}
}

func TestFailedRefreshKeepsStaleToken(t *testing.T) {
	mock := newMockIdentityServer("")
	defer mock.close()
	mock.setStatusCode(http.StatusServiceUnavailable)

	stale := makeToken(fixedNow.Unix() - 100)
	store := session.NewMemoryStore()
	_ = store.Set(context.Background(), TokenSessionKey, stale)

	a := newTestJWT(t, mock.server.URL, WithStore(store))
	if _, err := a.Token(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	cached, _, _ := store.Get(context.Background(), TokenSessionKey)
	if cached != stale {
		t.Errorf("cache = %q, want untouched stale token", cached)
	}
}

func TestStrategiesShareSessionSlot(t *testing.T) {
	token := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(token)
	defer mock.close()

	store := session.NewMemoryStore()
	first := newTestJWT(t, mock.server.URL, WithStore(store))
	second := newTestJWT(t, mock.server.URL, WithStore(store))

	if _, err := first.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := second.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != token {
		t.Errorf("second strategy token = %q", got)
	}
	if mock.getRequestCount() != 1 {
		t.Errorf("expected 1 remote call for a shared session, got %d", mock.getRequestCount())
	}
}

func TestInvalidateForcesFetch(t *testing.T) {
	mock := newMockIdentityServer(makeToken(fixedNow.Unix()))
	defer mock.close()

	a := newTestJWT(t, mock.server.URL)
	ctx := context.Background()
	_, _ = a.Token(ctx)
	if err := a.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	_, _ = a.Token(ctx)

	if mock.getRequestCount() != 2 {
		t.Errorf("expected 2 remote calls, got %d", mock.getRequestCount())
	}
}

func TestConcurrentTokenCalls(t *testing.T) {
	token := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(token)
	defer mock.close()

	a := newTestJWT(t, mock.server.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.Token(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if got != token {
				errs <- fmt.Errorf("got %q", got)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	// Callers may race to refresh; every one of them still gets a token.
	if n := mock.getRequestCount(); n < 1 || n > 20 {
		t.Errorf("unexpected remote call count %d", n)
	}
}

func TestInjectHeader(t *testing.T) {
	token := makeToken(fixedNow.Unix())
	mock := newMockIdentityServer(token)
	defer mock.close()

	a := newTestJWT(t, mock.server.URL)

	req := httptest.NewRequest("GET", "http://example.com", nil)
	if err := a.InjectHeader(context.Background(), req); err != nil {
		t.Fatalf("InjectHeader() error = %v", err)
	}
	if got := req.Header.Get(TokenHeader); got != "Bearer "+token {
		t.Errorf("%s = %q", TokenHeader, got)
	}
}

func TestCustomFetcher(t *testing.T) {
	var calls int32
	fetcher := FetcherFunc(func(_ context.Context, endpoint string, creds Credentials) (string, error) {
		atomic.AddInt32(&calls, 1)
		if endpoint != "http://id/login" || creds.Username != "a" {
			return "", fmt.Errorf("unexpected call %s %v", endpoint, creds)
		}
		return makeToken(fixedNow.Unix()), nil
	})

	a := newTestJWT(t, "http://id/login", WithFetcher(fetcher))
	if _, err := a.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("fetcher calls = %d", calls)
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	hits    int
	refresh []string
	fetches []error
}

func (o *recordingObserver) CacheHit() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++
}

func (o *recordingObserver) Refresh(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refresh = append(o.refresh, reason)
}

func (o *recordingObserver) FetchDone(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches = append(o.fetches, err)
}

func (o *recordingObserver) reasons() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := ""
	for i, r := range o.refresh {
		if i > 0 {
			out += ","
		}
		out += r
	}
	return out
}

func TestObserverEvents(t *testing.T) {
	mock := newMockIdentityServer(makeToken(fixedNow.Unix() - 10))
	defer mock.close()

	obs := &recordingObserver{}
	a := newTestJWT(t, mock.server.URL, WithObserver(obs))
	ctx := context.Background()

	// no_token, then expired because the served token is already stale.
	_, _ = a.Token(ctx)
	_, _ = a.Token(ctx)

	mock.setToken(makeToken(fixedNow.Unix()))
	_ = a.Invalidate(ctx)
	_, _ = a.Token(ctx)
	_, _ = a.Token(ctx)

	if got := obs.reasons(); got != "no_token,expired,no_token" {
		t.Errorf("reasons = %q", got)
	}
	if obs.hits != 1 {
		t.Errorf("hits = %d, want 1", obs.hits)
	}
	if len(obs.fetches) != 3 {
		t.Errorf("fetches = %d, want 3", len(obs.fetches))
	}
}

func TestIssuedAtZeroRefreshesAsExpired(t *testing.T) {
	mock := newMockIdentityServer(makeToken(fixedNow.Unix()))
	defer mock.close()

	store := session.NewMemoryStore()
	_ = store.Set(context.Background(), TokenSessionKey, "x.eyJpYXQiOjB9.y")

	obs := &recordingObserver{}
	a := newTestJWT(t, mock.server.URL, WithStore(store), WithObserver(obs))

	if _, err := a.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got := obs.reasons(); got != ReasonExpired {
		t.Errorf("reasons = %q, want %q", got, ReasonExpired)
	}
}

func TestFreshStandardBase64TokenSkipsRemoteCall(t *testing.T) {
	// Payload uses the standard alphabet ('+' and '/').
	token := "h." + base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf(`{"iat":%d,"n":"~~~?>"}`, fixedNow.Unix()))) + ".s"
	mock := newMockIdentityServer("unused")
	defer mock.close()

	store := session.NewMemoryStore()
	_ = store.Set(context.Background(), TokenSessionKey, token)

	a := newTestJWT(t, mock.server.URL, WithStore(store))
	got, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got != token {
		t.Errorf("Token() = %q, want cached %q", got, token)
	}
	if mock.getRequestCount() != 0 {
		t.Errorf("expected no remote calls, got %d", mock.getRequestCount())
	}
}

func TestSubSecondRevalidationWindow(t *testing.T) {
	tests := []struct {
		name      string
		iat       string
		window    time.Duration
		wantCalls int
	}{
		// expires half a second after now
		{"window ends after now", fmt.Sprint(fixedNow.Unix() - 1), 1500 * time.Millisecond, 0},
		{"fractional iat ends after now", fmt.Sprintf("%d.5", fixedNow.Unix()-5), 5 * time.Second, 0},
		{"window ends before now", fmt.Sprint(fixedNow.Unix() - 2), 1500 * time.Millisecond, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockIdentityServer(makeToken(fixedNow.Unix()))
			defer mock.close()

			store := session.NewMemoryStore()
			cached := "h." + base64.RawURLEncoding.EncodeToString([]byte(`{"iat":`+tt.iat+`}`)) + ".s"
			_ = store.Set(context.Background(), TokenSessionKey, cached)

			a, err := NewJWTAuthentication(JWTOptions{
				URL:                 mock.server.URL,
				RevalidateTokenTime: tt.window,
			}, WithStore(store), WithClock(fixedClock))
			if err != nil {
				t.Fatal(err)
			}
			defer a.Close()

			if _, err := a.Token(context.Background()); err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if mock.getRequestCount() != tt.wantCalls {
				t.Errorf("remote calls = %d, want %d", mock.getRequestCount(), tt.wantCalls)
			}
		})
	}
}

func TestSubSecondClockIsTruncated(t *testing.T) {
	mock := newMockIdentityServer(makeToken(fixedNow.Unix()))
	defer mock.close()

	store := session.NewMemoryStore()
	_ = store.Set(context.Background(), TokenSessionKey, makeToken(fixedNow.Unix()-5))

	// 0.9s past the boundary second still counts as that second.
	a := newTestJWT(t, mock.server.URL, WithStore(store), WithClock(func() time.Time {
		return fixedNow.Add(900 * time.Millisecond)
	}))
	if _, err := a.Token(context.Background()); err != nil {
		t.Fatal(err)
	}
	if mock.getRequestCount() != 1 {
		t.Errorf("remote calls = %d, want 1", mock.getRequestCount())
	}
}

type closeCountingTransport struct {
	http.RoundTripper
	closes int32
}

func (c *closeCountingTransport) CloseIdleConnections() {
	atomic.AddInt32(&c.closes, 1)
}

func TestCloseLeavesInjectedClientAlone(t *testing.T) {
	transport := &closeCountingTransport{RoundTripper: http.DefaultTransport}
	client := &http.Client{Transport: transport}

	a, err := NewJWTAuthentication(JWTOptions{URL: "http://id/login"}, WithHTTPClient(client))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := atomic.LoadInt32(&transport.closes); n != 0 {
		t.Errorf("injected client closed %d times", n)
	}
	if a.ownClient {
		t.Error("injected client must not be owned by the strategy")
	}
}

func TestCloseOwnClient(t *testing.T) {
	a, err := NewJWTAuthentication(JWTOptions{URL: "http://id/login"})
	if err != nil {
		t.Fatal(err)
	}
	if !a.ownClient || a.client == nil {
		t.Fatal("strategy should create its own client")
	}
	if a.client.Timeout != defaultFetchTimeout {
		t.Errorf("timeout = %v, want %v", a.client.Timeout, defaultFetchTimeout)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestWithNilLoggerKeepsNop(t *testing.T) {
	a, err := NewJWTAuthentication(JWTOptions{URL: "http://id/login"}, WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.logger == nil {
		t.Fatal("logger is nil")
	}
	a.logger.Info("discarded")
}
