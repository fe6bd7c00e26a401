package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is sent on every outbound call unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const defaultMaxBody = 10 << 20

// ClientConfig is shared by every extractor's outbound calls.
type ClientConfig struct {
	// Timeout applies to calls that do not set their own.
	Timeout time.Duration // default: 20s

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// ChromeTLS dials HTTPS with a Chrome TLS fingerprint.
	ChromeTLS bool

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MB
}

// Call is the configuration record for a single outbound request.
type Call struct {
	Method  string // default: GET
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration // default: ClientConfig.Timeout
}

// Response is a fully read response body. HTML and text bodies are decoded
// to UTF-8.
type Response struct {
	StatusCode  int
	ContentType string
	FinalURL    string
	Body        []byte
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: HTTP %d for %s", e.StatusCode, e.URL)
}

// Client performs outbound calls with browser-like defaults and a bounded
// per-call timeout. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (tests, custom proxies).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client. With cfg.ChromeTLS the transport presents a
// Chrome TLS fingerprint.
func NewClient(cfg ClientConfig, opts ...ClientOption) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.ChromeTLS {
		transport = newChromeTransport()
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserAgent returns the User-Agent sent by default.
func (c *Client) UserAgent() string { return c.cfg.UserAgent }

// Do executes call. Transport failures, timeouts and non-2xx statuses are
// returned as errors; the body is read in full (up to the configured cap).
func (c *Client) Do(ctx context.Context, call Call) (*Response, error) {
	method := call.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, call.URL, body)
	if err != nil {
		return nil, fmt.Errorf("engine: build request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ar;q=0.8")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: %s %s: %w", method, call.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: call.URL}
	}

	ct := resp.Header.Get("Content-Type")
	var reader io.Reader = io.LimitReader(resp.Body, c.cfg.MaxBodyBytes)
	if isTextContentType(ct) {
		decoded, err := charset.NewReader(reader, ct)
		if err == nil {
			reader = decoded
		}
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("engine: read body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: ct,
		FinalURL:    resp.Request.URL.String(),
		Body:        raw,
	}, nil
}

// PostJSON marshals payload, POSTs it and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out any, call Call) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("engine: marshal payload: %w", err)
	}
	call.Method = http.MethodPost
	call.URL = url
	call.Body = data

	resp, err := c.Do(ctx, call)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("engine: decode json from %s: %w", url, err)
	}
	return nil
}

// isTextContentType reports whether the body should be charset-decoded.
func isTextContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "text/") || strings.Contains(ct, "xhtml")
}
