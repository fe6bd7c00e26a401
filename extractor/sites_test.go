package extractor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
)

// servePages serves each path's HTML and 404s everything else.
func servePages(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		html, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func price(s string) models.PriceResult {
	return models.Price(decimal.RequireFromString(s))
}

func assertResult(t *testing.T, want, got models.PriceResult) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestPageExtractors(t *testing.T) {
	tests := []struct {
		name string
		ctor func(*engine.Client) Extractor
		html string
		want models.PriceResult
	}{
		{
			name: "2b special price",
			ctor: New2B,
			html: `<div class="price-box">
				<span class="special-price"><span data-price-type="finalPrice" data-price-amount="12999.5">12,999.50 EGP</span></span>
				<span class="old-price"><span data-price-type="oldPrice" data-price-amount="14999">14,999 EGP</span></span>
			</div>`,
			want: price("12999.5"),
		},
		{
			name: "2b falls back to old price",
			ctor: New2B,
			html: `<span class="old-price"><span data-price-type="oldPrice" data-price-amount="14999">14,999 EGP</span></span>`,
			want: price("14999"),
		},
		{
			name: "eliraqi discounted",
			ctor: NewElIraqi,
			html: `<div class="discounted-price"><span>EGP 8,750.00</span></div><div class="non-discounted-price"><span>9,000</span></div>`,
			want: price("8750"),
		},
		{
			name: "eliraqi regular",
			ctor: NewElIraqi,
			html: `<div class="non-discounted-price"><span>9,000 EGP</span></div>`,
			want: price("9000"),
		},
		{
			name: "elghazawy price",
			ctor: NewElGhazawy,
			html: `<p class="h2-price pro-praice text-primary-800">4500 ج.م</p><button class="add">Add to cart</button>`,
			want: price("4500"),
		},
		{
			name: "elghazawy out of stock",
			ctor: NewElGhazawy,
			html: `<p class="h2-price pro-praice text-primary-800">4500 ج.م</p><button class="disable-button">Not available</button>`,
			want: models.OutOfStock(),
		},
		{
			name: "raneen",
			ctor: NewRaneen,
			html: `<span id="product-price-1182" data-price-amount="3199" data-price-type="finalPrice">3,199 EGP</span>`,
			want: price("3199"),
		},
		{
			name: "elsindbad meta",
			ctor: NewElSindbad,
			html: `<span class="special-price"><meta itemprop="price" content="2150.00"><span class="price-wrapper"><span class="price">2,150 EGP</span></span></span>`,
			want: price("2150"),
		},
		{
			name: "elsindbad text fallback",
			ctor: NewElSindbad,
			html: `<span class="old-price"><span class="price-wrapper"><span class="price">2,300 جنيه</span></span></span>`,
			want: price("2300"),
		},
		{
			name: "amazon",
			ctor: NewAmazonEG,
			html: `<span class="a-price"><span class="a-offscreen">EGP 26,499.00</span><span aria-hidden="true">26,499</span></span>`,
			want: price("26499"),
		},
		{
			name: "serag offer price",
			ctor: NewSerag,
			html: `<div class="product_price" itemprop="offers" itemscope>
				<span class="price_display">5,499 EGP</span>
				<span itemprop="price" style="display:none">5499.00</span>
			</div>`,
			want: price("5499"),
		},
		{
			name: "serag without offer markup",
			ctor: NewSerag,
			html: `<div class="product_price"><span itemprop="price">5499.00</span></div>`,
			want: models.Unavailable(),
		},
		{
			name: "zero is a price, not a stock signal",
			ctor: NewRaneen,
			html: `<span id="product-price-9" data-price-amount="0">0 EGP</span>`,
			want: price("0"),
		},
		{
			name: "no price element",
			ctor: New2B,
			html: `<html><body><h1>Product</h1></body></html>`,
			want: models.Unavailable(),
		},
		{
			name: "unparseable price text",
			ctor: NewAmazonEG,
			html: `<span class="a-price"><span class="a-offscreen">See price in cart</span></span>`,
			want: models.Unavailable(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := servePages(t, map[string]string{"/p": tt.html})
			e := tt.ctor(engine.NewClient(engine.ClientConfig{}))

			got := e.Extract(context.Background(), srv.URL+"/p")
			assertResult(t, tt.want, got)

			// Same page, same answer.
			assertResult(t, got, e.Extract(context.Background(), srv.URL+"/p"))
		})
	}
}

func TestPageExtractor_FetchFailure(t *testing.T) {
	srv := servePages(t, nil)
	e := NewRaneen(engine.NewClient(engine.ClientConfig{}))

	assertResult(t, models.Unavailable(), e.Extract(context.Background(), srv.URL+"/missing"))
	assertResult(t, models.Unavailable(), e.Extract(context.Background(), "http://127.0.0.1:1/unreachable"))
}

func TestCairoSales_NavigationHeaders(t *testing.T) {
	var mode atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mode.Store(r.Header.Get("Sec-Fetch-Mode"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<span id="our_price_display" content="1899.99">1.899,99 EGP</span>`)
	}))
	defer srv.Close()

	got := NewCairoSales(engine.NewClient(engine.ClientConfig{})).Extract(context.Background(), srv.URL)
	assertResult(t, price("1899.99"), got)
	assert.Equal(t, "navigate", mode.Load())
}

func TestCairoSales_TextFallback(t *testing.T) {
	srv := servePages(t, map[string]string{"/p": `<span id="our_price_display">1899 EGP</span>`})
	got := NewCairoSales(engine.NewClient(engine.ClientConfig{})).Extract(context.Background(), srv.URL+"/p")
	assertResult(t, price("1899"), got)
}

type fakeRenderer struct {
	html  string
	err   error
	calls atomic.Int32
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.html), nil
}

func TestNoon(t *testing.T) {
	r := &fakeRenderer{html: `<div class="PriceOfferV2_priceNowText__fk5kK">1,299.00</div>`}
	got := NewNoon(r).Extract(context.Background(), "https://www.noon.com/egypt-en/x/N1/p/")
	assertResult(t, price("1299"), got)
	assert.Equal(t, int32(1), r.calls.Load())

	failing := &fakeRenderer{err: errors.New("proxy quota exceeded")}
	assertResult(t, models.Unavailable(), NewNoon(failing).Extract(context.Background(), "https://www.noon.com/x"))
}
