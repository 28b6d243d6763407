package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Fetcher performs a network request. Implementations return an error only
// when no response was received; status handling belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *Request) (*Response, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// HTTPFetcher forwards requests to an upstream origin over net/http.
type HTTPFetcher struct {
	origin *url.URL
	client *http.Client
}

// NewHTTPFetcher targets origin (scheme and host, optional base path).
func NewHTTPFetcher(origin string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("offline: parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: origin %q must be absolute", ErrInvalidOptions, origin)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{origin: u, client: client}, nil
}

var _ Fetcher = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target := f.resolve(req)
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("offline: build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
		URL:    target,
		Source: SourceNetwork,
	}, nil
}

func (f *HTTPFetcher) resolve(req *Request) string {
	u := *f.origin
	u.Path = strings.TrimSuffix(f.origin.Path, "/") + req.Path()
	u.RawPath = ""
	if req.URL != nil {
		u.RawQuery = req.URL.RawQuery
	}
	return u.String()
}
