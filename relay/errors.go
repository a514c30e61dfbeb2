package relay

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies an upstream failure
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindConnectionRefused ErrorKind = "connection_refused"
	KindDNS               ErrorKind = "dns"
	KindTLS               ErrorKind = "tls"
	KindCanceled          ErrorKind = "canceled"
	KindTransport         ErrorKind = "transport"
	KindDecode            ErrorKind = "decode"
	KindInvalidRequest    ErrorKind = "invalid_request"
)

// UpstreamError is returned when the upstream could not be reached or its
// response could not be read. It is never retried.
type UpstreamError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request to %s failed: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Message is the description handed to callers
func (e *UpstreamError) Message() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

// IsUpstreamError reports whether err is or wraps an *UpstreamError
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

func newUpstreamError(kind ErrorKind, target string, err error) *UpstreamError {
	return &UpstreamError{Kind: kind, URL: target, Err: err}
}

// classify maps a transport error onto an ErrorKind
func classify(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionRefused
	}

	var (
		certErr      *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) || errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) || errors.As(err, &hostnameErr) || errors.As(err, &invalidErr) {
		return KindTLS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindTransport
}
