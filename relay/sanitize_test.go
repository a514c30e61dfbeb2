package relay

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	upstream := http.Header{}
	upstream.Set("Content-Encoding", "gzip")
	upstream.Set("Transfer-Encoding", "chunked")
	upstream.Set("Content-Length", "123")
	upstream.Set("Connection", "keep-alive")
	upstream.Set("Refresh", "5;url=/x")
	upstream.Set("Content-Type", "text/html")
	upstream.Add("Set-Cookie", "a=1")
	upstream.Add("Set-Cookie", "b=2")
	// Non-canonical key as a server might hand it over
	upstream["x-refresh"] = []string{"0;url=https://elsewhere"}

	out := SanitizeHeaders(upstream)

	for _, key := range []string{"Content-Encoding", "Transfer-Encoding", "Content-Length", "Connection", "Refresh", "X-Refresh"} {
		assert.Empty(t, out.Values(key), "header %s should be stripped", key)
	}
	assert.Empty(t, out["x-refresh"])
	assert.Equal(t, "text/html", out.Get("Content-Type"))
	assert.Equal(t, []string{"a=1", "b=2"}, out.Values("Set-Cookie"))

	// The input is not modified
	assert.Equal(t, "gzip", upstream.Get("Content-Encoding"))
}
