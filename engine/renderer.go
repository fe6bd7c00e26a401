package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Renderer returns the HTML of a page that cannot be fetched with a plain
// GET, either because it is assembled by JavaScript or because the site
// blocks non-browser clients.
type Renderer interface {
	// Name identifies the renderer in logs ("proxy", "browser").
	Name() string

	// Render returns the rendered page HTML.
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// ProxyConfig configures a third-party fetch/render proxy.
type ProxyConfig struct {
	// Endpoint is the proxy URL; the target is passed as the "url" query
	// parameter and the key as "api_key".
	Endpoint string // default: https://api.webscrapingapi.com/v2

	APIKey string

	// Timeout bounds one proxied call; rendering proxies are slow.
	Timeout time.Duration // default: 30s
}

// ProxyRenderer routes page fetches through a fetch/render proxy service.
type ProxyRenderer struct {
	client *Client
	cfg    ProxyConfig
}

// NewProxyRenderer returns a renderer backed by cfg, or an error when no API
// key is configured.
func NewProxyRenderer(client *Client, cfg ProxyConfig) (*ProxyRenderer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("engine: proxy api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.webscrapingapi.com/v2"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ProxyRenderer{client: client, cfg: cfg}, nil
}

func (p *ProxyRenderer) Name() string { return "proxy" }

func (p *ProxyRenderer) Render(ctx context.Context, pageURL string) ([]byte, error) {
	endpoint, err := url.Parse(p.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("engine: proxy endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("api_key", p.cfg.APIKey)
	q.Set("url", pageURL)
	endpoint.RawQuery = q.Encode()

	resp, err := p.client.Do(ctx, Call{URL: endpoint.String(), Timeout: p.cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("engine: proxy render: %w", err)
	}
	return resp.Body, nil
}
