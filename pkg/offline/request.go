package offline

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
)

// Destination mirrors the fetch destination of a request.
type Destination string

const (
	DestinationEmpty    Destination = ""
	DestinationDocument Destination = "document"
	DestinationImage    Destination = "image"
	DestinationScript   Destination = "script"
	DestinationStyle    Destination = "style"
	DestinationFont     Destination = "font"
)

// Request is an intercepted resource request. URL carries the path and query;
// the origin is implied by the Fetcher.
type Request struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	Destination Destination
}

// NewRequest parses target (a path with optional query) into a Request.
func NewRequest(method, target string) (*Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("offline: parse request target %q: %w", target, err)
	}
	if method == "" {
		method = http.MethodGet
	}
	return &Request{
		Method: strings.ToUpper(method),
		URL:    &url.URL{Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery},
		Header: make(http.Header),
	}, nil
}

// Key identifies the request inside a cache store.
func (r *Request) Key() string {
	if r == nil || r.URL == nil {
		return ""
	}
	return Key(r.Method, r.URL.RequestURI())
}

// Path returns the request path, "/" when empty.
func (r *Request) Path() string {
	if r == nil || r.URL == nil || r.URL.Path == "" {
		return "/"
	}
	return r.URL.Path
}

// Key builds a store key from a method and a path with optional query.
func Key(method, target string) string {
	if method == "" {
		method = http.MethodGet
	}
	if target == "" {
		target = "/"
	}
	return strings.ToUpper(method) + " " + target
}

// Source tells where a Response came from.
type Source string

const (
	SourceNetwork   Source = "network"
	SourceCache     Source = "cache"
	SourceSynthetic Source = "synthetic"
)

// Response is a fully buffered response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	URL    string
	Source Source
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Clone returns a deep copy.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}

// WithHeader returns a copy with key set to value; r is left untouched.
func (r *Response) WithHeader(key, value string) *Response {
	out := r.Clone()
	out.Header.Set(key, value)
	return out
}

func (r *Response) entry(key string) cache.Entry {
	c := r.Clone()
	return cache.Entry{
		Key:    key,
		URL:    c.URL,
		Status: c.Status,
		Header: c.Header,
		Body:   c.Body,
	}
}

func responseFromEntry(e cache.Entry) *Response {
	c := e.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	return &Response{
		Status: c.Status,
		Header: c.Header,
		Body:   c.Body,
		URL:    c.URL,
		Source: SourceCache,
	}
}
