package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestClientIdentity(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"remote addr with port", "203.0.113.7:51000", "", "203.0.113.7"},
		{"remote addr wins over forwarded", "203.0.113.7:51000", "198.51.100.1", "203.0.113.7"},
		{"ipv6 remote addr", "[2001:db8::1]:443", "", "2001:db8::1"},
		{"remote addr without port", "203.0.113.9", "", "203.0.113.9"},
		{"forwarded fallback", "", "198.51.100.1, 10.0.0.1", "198.51.100.1, 10.0.0.1"},
		{"forwarded trimmed", "", "  198.51.100.2  ", "198.51.100.2"},
		{"unknown", "", "", UnknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}

			if got := ClientIdentity(req); got != tt.want {
				t.Errorf("ClientIdentity() = %q, want %q", got, tt.want)
			}
		})
	}
}
