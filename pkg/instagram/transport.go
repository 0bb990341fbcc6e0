package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"

	errs "igfollow/pkg/errors"
	"igfollow/pkg/logger"
)

// Response is a fully read upstream response
type Response struct {
	StatusCode int
	StatusText string
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends a GET request with the given headers. Implementations
// return an error only when no response was received; non-2xx statuses are
// reported through Response.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

// HTTPTransport sends requests with net/http
type HTTPTransport struct {
	client *http.Client
	logger logger.Logger
}

// NewHTTPTransport creates a transport with the given request timeout;
// zero disables the timeout.
func NewHTTPTransport(timeout time.Duration, log logger.Logger) *HTTPTransport {
	return NewHTTPTransportWithClient(&http.Client{Timeout: timeout}, log)
}

// NewHTTPTransportWithClient wraps an existing http.Client
func NewHTTPTransportWithClient(client *http.Client, log logger.Logger) *HTTPTransport {
	if log == nil {
		log = logger.GetLogger()
	}
	return &HTTPTransport{client: client, logger: log}
}

// Get performs the request and reads the whole body
func (t *HTTPTransport) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnknown, "failed to create request", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.logger.WithError(err).ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"duration": time.Since(start),
		})
		return nil, errs.Wrap(errs.KindNetwork, "network error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetwork, "failed to read response body", err)
	}

	logger.LogRequest(t.logger, http.MethodGet, url, resp.StatusCode, time.Since(start))

	return &Response{
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       body,
	}, nil
}

// instagramHeaderOrder mirrors the header order of a Chrome XHR to the web API
var instagramHeaderOrder = []string{
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"x-ig-app-id",
	"x-csrftoken",
	"user-agent",
	"accept",
	"accept-language",
	"accept-encoding",
	"referer",
	"cookie",
}

// stealthDoer is the subset of *stealth.BrowserClient used by StealthTransport
type stealthDoer interface {
	DoWithHeaderOrderCtx(ctx context.Context, method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
}

// StealthTransport sends requests through a browser-fingerprinted TLS client
type StealthTransport struct {
	client  stealthDoer
	timeout time.Duration
	logger  logger.Logger
}

// NewStealthTransport creates a browser-impersonating transport, optionally
// routed through proxy. The client's own request timeout matches timeout so
// a request the caller gave up on does not outlive it.
func NewStealthTransport(proxy string, timeout time.Duration, log logger.Logger) (*StealthTransport, error) {
	opts := []stealth.ClientOption{
		stealth.WithHeaderOrder(instagramHeaderOrder),
		stealth.WithTimeout(timeoutSeconds(timeout)),
	}
	if proxy != "" {
		opts = append(opts, stealth.WithProxy(proxy))
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth client: %w", err)
	}

	return newStealthTransport(bc, timeout, log), nil
}

func newStealthTransport(client stealthDoer, timeout time.Duration, log logger.Logger) *StealthTransport {
	if log == nil {
		log = logger.GetLogger()
	}
	return &StealthTransport{client: client, timeout: timeout, logger: log}
}

// timeoutSeconds rounds d up to whole seconds. 0 means no timeout.
func timeoutSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Get performs the request, bounded by ctx and the transport timeout
func (t *StealthTransport) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	h := make(map[string]string, len(headers)+4)
	for key, value := range headers {
		h[strings.ToLower(key)] = value
	}
	if h["accept"] == "" {
		h["accept"] = "*/*"
	}
	if h["referer"] == "" {
		h["referer"] = BaseURL + "/"
	}
	if ch := stealth.ClientHintsHeaders(h["user-agent"]); ch != nil {
		for key, value := range ch {
			if _, ok := h[key]; !ok {
				h[key] = value
			}
		}
	}

	start := time.Now()
	body, _, status, err := t.client.DoWithHeaderOrderCtx(ctx, http.MethodGet, url, h, nil, instagramHeaderOrder)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, errs.Wrap(errs.KindNetwork, "request timed out", ctxErr)
			}
			return nil, ctxErr
		}
		t.logger.WithError(err).ErrorWithFields("stealth request failed", map[string]interface{}{
			"url":      url,
			"duration": time.Since(start),
		})
		return nil, errs.Wrap(errs.KindNetwork, "network error", err)
	}

	logger.LogRequest(t.logger, http.MethodGet, url, status, time.Since(start))
	return &Response{
		StatusCode: status,
		StatusText: http.StatusText(status),
		Body:       body,
	}, nil
}
