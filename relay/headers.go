package relay

import (
	"net/http"
	"net/url"
	"strings"
)

// baselineHeaders make every upstream call look like a top-level browser
// navigation. Host and Referer are derived from the upstream URL.
var baselineHeaders = []struct{ key, value string }{
	{"User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
	{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
	{"Accept-Language", "en-US,en;q=0.9"},
	{"Accept-Encoding", "gzip, deflate, br"},
	{"Cache-Control", "no-cache"},
	{"Pragma", "no-cache"},
	{"Sec-Fetch-Dest", "document"},
	{"Sec-Fetch-Mode", "navigate"},
	{"Sec-Fetch-Site", "none"},
	{"Sec-Fetch-User", "?1"},
	{"Upgrade-Insecure-Requests", "1"},
}

// passthroughHeaders are copied from the inbound request over the baseline
var passthroughHeaders = []string{"Authorization", "Content-Type", "Cookie"}

// BuildURL joins the upstream base with the inbound path and appends the
// raw query untouched. Nothing is re-encoded.
func BuildURL(base, path, rawQuery string) string {
	if path == "" {
		path = "/"
	}

	target := strings.TrimRight(base, "/") + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// BuildHeaders returns the upstream header set: the browser baseline, the
// upstream Host and Referer, then the passthrough headers from inbound.
func BuildHeaders(upstream *url.URL, inbound http.Header) http.Header {
	h := make(http.Header, len(baselineHeaders)+2+len(passthroughHeaders))
	for _, bh := range baselineHeaders {
		h.Set(bh.key, bh.value)
	}
	h.Set("Host", upstream.Host)
	h.Set("Referer", upstream.Scheme+"://"+upstream.Host+"/")

	for _, key := range passthroughHeaders {
		if values := inbound.Values(key); len(values) > 0 {
			h[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
	return h
}
