package middleware

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the shared bucket for requests with no usable identity.
// Every unidentifiable caller draws from this one budget.
const UnknownClient = "unknown"

// KeyFunc extracts a unique identifier from the request
type KeyFunc func(*http.Request) string

// ClientIdentity resolves the rate-limit key for r.
// The direct connection's source address wins; X-Forwarded-For is only
// consulted when RemoteAddr is empty, and UnknownClient is the last resort.
func ClientIdentity(r *http.Request) string {
	if ip := remoteIP(r.RemoteAddr); ip != "" {
		return ip
	}

	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		return xff
	}

	return UnknownClient
}

// remoteIP strips the port from a RemoteAddr value
func remoteIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// RemoteAddr might not have a port in some edge cases
		return remoteAddr
	}
	return ip
}
