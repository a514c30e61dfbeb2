// Package relay forwards admitted requests to the fixed upstream origin.
//
// A relay is a pipeline of small transformations: the upstream URL and
// browser-identity headers are built from the inbound request, the call is
// dispatched with redirects disabled, the redirect policy is applied, and
// the response headers are sanitized before being handed back.
package relay

import (
	"fmt"
	"io"
	"net/http"
)

// ProxyRequest is the inbound request as seen by the relay.
// It is built once per request and never modified afterwards.
type ProxyRequest struct {
	Method   string
	Path     string // escaped path as received, always starting with "/"
	RawQuery string // query string as received, without "?"
	Header   http.Header
	Body     []byte
	Cookies  []*http.Cookie
}

// NewProxyRequest captures r into a ProxyRequest, reading the whole body
func NewProxyRequest(r *http.Request) (*ProxyRequest, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	path := r.URL.EscapedPath()
	if path == "" {
		path = "/"
	}

	return &ProxyRequest{
		Method:   r.Method,
		Path:     path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
		Cookies:  r.Cookies(),
	}, nil
}
