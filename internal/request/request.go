// Package request models the outgoing REST request a driver hands to an
// authentication strategy before it is sent.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Header is a single header line. Order is significant: strategies append to
// the end of the list and never reorder what the driver put there.
type Header struct {
	Name  string
	Value string
}

// String renders the header in "Name: value" form.
func (h Header) String() string {
	return h.Name + ": " + h.Value
}

// ParseHeader parses a "Name: value" line.
func ParseHeader(line string) (Header, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return Header{}, fmt.Errorf("invalid header %q: expected Name: value", line)
	}
	h := Header{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (h Header) validate() error {
	if h.Name == "" || strings.ContainsAny(h.Name, "\r\n: ") {
		return fmt.Errorf("invalid header key %q", h.Name)
	}
	if strings.ContainsAny(h.Value, "\r\n") {
		return fmt.Errorf("invalid header value for %s", h.Name)
	}
	return nil
}

// Request is an immutable description of one driver request. All With*
// methods return a new value and leave the receiver untouched.
type Request struct {
	method  string
	url     string
	payload []byte
	headers []Header
}

// New creates a request. An empty method defaults to GET.
func New(method, url string, payload []byte, headers ...Header) (Request, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Request{}, errors.New("request URL is required")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	for _, h := range headers {
		if err := h.validate(); err != nil {
			return Request{}, err
		}
	}
	r := Request{
		method: method,
		url:    url,
	}
	if len(payload) > 0 {
		r.payload = append([]byte(nil), payload...)
	}
	if len(headers) > 0 {
		r.headers = append([]Header(nil), headers...)
	}
	return r, nil
}

func (r Request) Method() string { return r.method }
func (r Request) URL() string    { return r.url }

// Payload returns a copy of the request body.
func (r Request) Payload() []byte {
	if r.payload == nil {
		return nil
	}
	return append([]byte(nil), r.payload...)
}

// Headers returns a copy of the header list; it is never nil.
func (r Request) Headers() []Header {
	out := make([]Header, len(r.headers))
	copy(out, r.headers)
	return out
}

// WithHeaders returns a copy of r whose header list is replaced by headers.
func (r Request) WithHeaders(headers []Header) (Request, error) {
	for _, h := range headers {
		if err := h.validate(); err != nil {
			return Request{}, err
		}
	}
	r.headers = append([]Header(nil), headers...)
	return r, nil
}

// WithHeader returns a copy of r with h appended after the existing headers.
func (r Request) WithHeader(h Header) (Request, error) {
	headers := make([]Header, 0, len(r.headers)+1)
	headers = append(headers, r.headers...)
	headers = append(headers, h)
	return r.WithHeaders(headers)
}

// HTTPRequest builds a net/http request carrying the headers in list order.
func (r Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.url == "" {
		return nil, errors.New("request URL is required")
	}

	var body io.Reader
	if len(r.payload) > 0 {
		body = bytes.NewReader(r.payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for _, h := range r.headers {
		req.Header.Add(h.Name, h.Value)
	}

	if len(r.payload) > 0 {
		payload := r.payload
		req.ContentLength = int64(len(payload))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}

	return req, nil
}
