package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// BrowserConfig controls the headless Chrome renderer.
type BrowserConfig struct {
	Headless  bool
	NoSandbox bool

	// Bin overrides the Chromium binary path.
	Bin string

	// MaxPages is the page pool capacity.
	MaxPages int // default: 2

	// NavigationTimeout bounds navigation plus DOM settling for one page.
	NavigationTimeout time.Duration // default: 25s

	UserAgent string

	// BlockResources fails image, stylesheet, font, media and tracker
	// requests inside each tab.
	BlockResources bool
}

// Browser renders pages in a shared headless Chrome with stealth evasions
// applied to every pooled tab. It is safe for concurrent use.
type Browser struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         BrowserConfig
	activePages atomic.Int32

	mu      sync.Mutex
	routers []*rod.HijackRouter
}

// NewBrowser launches Chrome and prepares the page pool.
func NewBrowser(cfg BrowserConfig) (*Browser, error) {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 2
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 25 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("engine: launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("engine: connect browser: %w", err)
	}

	return &Browser{
		browser:  browser,
		pagePool: rod.NewPagePool(cfg.MaxPages),
		cfg:      cfg,
	}, nil
}

func (b *Browser) Name() string { return "browser" }

// Render navigates a pooled stealth tab to pageURL, waits for the DOM to
// settle and returns the rendered HTML.
func (b *Browser) Render(ctx context.Context, pageURL string) ([]byte, error) {
	b.activePages.Add(1)
	defer b.activePages.Add(-1)

	page, err := b.pagePool.Get(func() (*rod.Page, error) {
		p, err := stealth.Page(b.browser)
		if err != nil {
			return nil, err
		}
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			slog.Warn("browser: set user agent failed", "error", err)
		}
		setExtraHeaders(p, pageHeaders)
		if b.cfg.BlockResources {
			b.mu.Lock()
			b.routers = append(b.routers, blockResources(p))
			b.mu.Unlock()
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: acquire page: %w", err)
	}

	// The blank navigation uses the page without the request context so it
	// still runs after a timeout.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("browser: failed to reset page", "error", navErr)
		}
		b.pagePool.Put(page)
	}()

	ctx, cancel := context.WithTimeout(ctx, b.cfg.NavigationTimeout)
	defer cancel()
	p := page.Context(ctx)

	if err := p.Navigate(pageURL); err != nil {
		return nil, categorizeNavError(err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("browser: DOM did not settle, using current DOM", "url", pageURL, "error", err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, categorizeNavError(err)
	}
	return []byte(html), nil
}

// ActivePages returns the number of tabs currently rendering.
func (b *Browser) ActivePages() int { return int(b.activePages.Load()) }

// MaxPages returns the page pool capacity.
func (b *Browser) MaxPages() int { return b.cfg.MaxPages }

// Close drains the page pool and kills the browser process.
func (b *Browser) Close() {
	b.mu.Lock()
	for _, r := range b.routers {
		_ = r.Stop()
	}
	b.routers = nil
	b.mu.Unlock()

	b.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser: close failed", "error", err)
	}
	slog.Info("browser closed")
}

// pageHeaders are sent with every request a pooled tab makes.
var pageHeaders = map[string]string{"Accept-Language": "en-US,en;q=0.9,ar;q=0.8"}

// setExtraHeaders applies headers to the tab behind c. A failure is logged
// and the tab is used as is.
func setExtraHeaders(c proto.Client, headers map[string]string) {
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}).Call(c); err != nil {
		slog.Warn("browser: set extra headers failed", "error", err)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

func categorizeNavError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("engine: render timed out: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("engine: render canceled: %w", err)
	default:
		return fmt.Errorf("engine: render failed: %w", err)
	}
}
