package relay

import (
	"net/http"
	"net/url"
	"strings"
)

// RedirectAction is the policy outcome for an upstream redirect
type RedirectAction int

const (
	// RedirectAllow passes the redirect through to the caller
	RedirectAllow RedirectAction = iota + 1
	// RedirectBlock replaces the redirect with an informational body
	RedirectBlock
)

func (a RedirectAction) String() string {
	switch a {
	case RedirectAllow:
		return "allow"
	case RedirectBlock:
		return "block"
	default:
		return "unknown"
	}
}

// RedirectDecision carries the action and the raw Location it was made for
type RedirectDecision struct {
	Action   RedirectAction
	Location string
}

// BlockedRedirectResponse is the body returned instead of a blocked redirect
type BlockedRedirectResponse struct {
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
}

// IsRedirectStatus reports whether code is one of the redirect statuses
// the policy inspects.
func IsRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// EvaluateRedirect classifies an upstream redirect. The second return value
// is false when no decision applies: the status is not a redirect or the
// Location header is empty.
//
// A location is internal when it is a relative path or its text contains
// the upstream hostname anywhere.
func EvaluateRedirect(upstreamHost string, status int, location string) (RedirectDecision, bool) {
	if !IsRedirectStatus(status) || location == "" {
		return RedirectDecision{}, false
	}

	if strings.HasPrefix(location, "/") || (upstreamHost != "" && strings.Contains(location, upstreamHost)) {
		return RedirectDecision{Action: RedirectAllow, Location: location}, true
	}
	return RedirectDecision{Action: RedirectBlock, Location: location}, true
}

// internalLocation reduces an absolute same-host location to path and query.
// Relative locations and unparsable values are returned unchanged.
func internalLocation(location string) string {
	if strings.HasPrefix(location, "/") {
		return location
	}

	u, err := url.Parse(location)
	if err != nil {
		return location
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
