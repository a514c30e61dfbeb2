package relay

import "net/http"

// excludedResponseHeaders describe the upstream framing and encoding, which
// no longer match once the body has been decoded.
var excludedResponseHeaders = map[string]struct{}{
	"Content-Encoding":  {},
	"Content-Length":    {},
	"Transfer-Encoding": {},
	"Connection":        {},
}

// refreshHeaders would let the upstream navigate the caller's browser
var refreshHeaders = map[string]struct{}{
	"Refresh":   {},
	"X-Refresh": {},
}

// SanitizeHeaders returns a copy of upstream without framing, encoding and
// refresh headers. Keys are matched case-insensitively.
func SanitizeHeaders(upstream http.Header) http.Header {
	out := make(http.Header, len(upstream))
	for key, values := range upstream {
		canonical := http.CanonicalHeaderKey(key)
		if _, skip := excludedResponseHeaders[canonical]; skip {
			continue
		}
		if _, skip := refreshHeaders[canonical]; skip {
			continue
		}
		out[canonical] = append(out[canonical], values...)
	}
	return out
}
