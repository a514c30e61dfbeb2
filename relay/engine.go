package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/yourusername/relaygate/metrics"
)

// DefaultTimeout bounds a single upstream call
const DefaultTimeout = 30 * time.Second

// Recorder receives relay outcomes
type Recorder interface {
	RecordRelay(outcome string)
}

// Response is the sanitized result of a relay
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Redirect is set when the upstream answered with a redirect status
	// and a Location header.
	Redirect *RedirectDecision
}

// Engine relays requests to one upstream origin.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	base    string
	target  *url.URL
	client  *http.Client
	timeout time.Duration

	rewriteInternalRedirects bool

	logger  *zap.Logger
	metrics Recorder
}

// Option configures an Engine
type Option func(*Engine)

// WithHTTPClient uses client for upstream calls. Redirect following is
// always disabled on the engine's copy.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		if client != nil {
			c := *client
			e.client = &c
		}
	}
}

// WithTimeout sets the upstream call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records relay outcomes on r
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithInternalRedirectRewrite rewrites allowed absolute redirects to the
// upstream host into path-only locations, keeping the caller on the proxy.
func WithInternalRedirectRewrite(enabled bool) Option {
	return func(e *Engine) {
		e.rewriteInternalRedirects = enabled
	}
}

// New creates an engine relaying to baseURL
func New(baseURL string, opts ...Option) (*Engine, error) {
	target, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("upstream url %q: scheme must be http or https", baseURL)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("upstream url %q: missing host", baseURL)
	}

	e := &Engine{
		base:   strings.TrimRight(baseURL, "/"),
		target: target,
		client: &http.Client{},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.timeout > 0 {
		e.client.Timeout = e.timeout
	} else if e.client.Timeout == 0 {
		e.client.Timeout = DefaultTimeout
	}
	e.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return e, nil
}

// BaseURL returns the upstream origin
func (e *Engine) BaseURL() string {
	return e.base
}

// Relay forwards pr upstream and returns the response to send back.
// Transport failures are returned as *UpstreamError.
func (e *Engine) Relay(ctx context.Context, pr *ProxyRequest) (*Response, error) {
	resp, err := e.dispatch(ctx, pr)
	if err != nil {
		e.record(metrics.OutcomeUpstreamError)
		e.logger.Error("proxy error", zap.Error(err))
		return nil, err
	}

	location := resp.Header.Get("Location")
	if decision, ok := EvaluateRedirect(e.target.Hostname(), resp.StatusCode, location); ok {
		if decision.Action == RedirectBlock {
			e.logger.Info("blocking external redirect", zap.String("location", location))
			e.record(metrics.OutcomeRedirectBlocked)
			return blockedRedirect(decision)
		}

		e.logger.Info("allowing redirect", zap.String("location", location))
		e.record(metrics.OutcomeRedirectAllowed)
		if e.rewriteInternalRedirects {
			resp.Header.Set("Location", internalLocation(location))
		}
		resp.Redirect = &decision
		return resp, nil
	}

	e.record(metrics.OutcomeRelayed)
	return resp, nil
}

// dispatch performs the upstream call and returns the decoded, sanitized
// response.
func (e *Engine) dispatch(ctx context.Context, pr *ProxyRequest) (*Response, error) {
	target := BuildURL(e.base, pr.Path, pr.RawQuery)
	e.logger.Info("relaying request",
		zap.String("method", pr.Method),
		zap.String("url", target))

	req, err := http.NewRequestWithContext(ctx, pr.Method, target, bytes.NewReader(pr.Body))
	if err != nil {
		return nil, newUpstreamError(KindInvalidRequest, target, err)
	}

	req.Header = BuildHeaders(e.target, pr.Header)
	req.Host = req.Header.Get("Host")
	req.Header.Del("Host")

	if req.Header.Get("Cookie") == "" {
		for _, c := range pr.Cookies {
			req.AddCookie(c)
		}
	}

	upstream, err := e.client.Do(req)
	if err != nil {
		return nil, newUpstreamError(classify(err), target, unwrapURLError(err))
	}
	defer upstream.Body.Close()

	raw, err := io.ReadAll(upstream.Body)
	if err != nil {
		return nil, newUpstreamError(classify(err), target, err)
	}

	encoding := upstream.Header.Get("Content-Encoding")
	body, decoded, err := decodeBody(encoding, raw)
	if err != nil {
		return nil, newUpstreamError(KindDecode, target, err)
	}

	e.logger.Info("upstream response",
		zap.Int("status", upstream.StatusCode),
		zap.String("path", pr.Path))

	header := SanitizeHeaders(upstream.Header)
	if !decoded {
		// The body is still encoded, so it keeps its label
		e.logger.Warn("unsupported content encoding, relaying body as is",
			zap.String("encoding", encoding))
		header.Set("Content-Encoding", encoding)
	}

	return &Response{
		StatusCode: upstream.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}

// blockedRedirect replaces a redirect with a 200 informational body
func blockedRedirect(decision RedirectDecision) (*Response, error) {
	body, err := json.Marshal(BlockedRedirectResponse{
		Message:     "External redirect blocked",
		RedirectURL: decision.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("encode blocked redirect: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       body,
		Redirect:   &decision,
	}, nil
}

func (e *Engine) record(outcome string) {
	if e.metrics != nil {
		e.metrics.RecordRelay(outcome)
	}
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the
// method and URL already carried by UpstreamError.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
