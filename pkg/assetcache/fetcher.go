package assetcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is one intercepted fetch.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the result of a fetch, from the cache or the network.
type Response struct {
	URL       string
	Status    int
	Header    http.Header
	Body      []byte
	FromCache bool
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Fetcher performs a fetch. Implementations return any HTTP status as a
// Response and only fail on transport errors.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Response, error)
}

// HTTPFetcher fetches over the network with net/http. Relative URLs are
// resolved against Origin.
type HTTPFetcher struct {
	Origin *url.URL
	Client *http.Client
}

// NewHTTPFetcher creates a network fetcher rooted at origin. An empty origin
// only accepts absolute URLs.
func NewHTTPFetcher(origin string, client *http.Client) (*HTTPFetcher, error) {
	if client == nil {
		client = http.DefaultClient
	}

	f := &HTTPFetcher{Client: client}
	if origin != "" {
		u, err := parseOrigin(origin)
		if err != nil {
			return nil, err
		}
		f.Origin = u
	}

	return f, nil
}

// Fetch sends req and buffers the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target, err := resolve(f.Origin, req.URL)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", target, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := f.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}

	return &Response{
		URL:    target,
		Status: httpResp.StatusCode,
		Header: httpResp.Header.Clone(),
		Body:   respBody,
	}, nil
}

func parseOrigin(origin string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: scheme and host are required", origin)
	}
	return u, nil
}

// resolve turns raw into an absolute URL using origin for relative references.
// The result is normalized so equivalent spellings share one cache key.
func resolve(origin *url.URL, raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if !ref.IsAbs() {
		if origin == nil {
			return "", fmt.Errorf("relative url %q without an origin", raw)
		}
		ref = origin.ResolveReference(ref)
	}
	return normalize(ref).String(), nil
}

// normalize lowercases the scheme and host and gives an empty path "/".
func normalize(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if n.Opaque == "" && n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return &n
}
