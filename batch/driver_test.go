package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricewatch/extractor"
	"github.com/use-agent/pricewatch/models"
)

// fakeClock advances only when a mock extractor runs.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// mockExtractor answers from a fixed url -> result table and counts calls.
type mockExtractor struct {
	id      models.CompetitorID
	results map[string]models.PriceResult
	calls   map[string]int
	clock   *fakeClock
	delay   time.Duration
	onCall  func(pageURL string)
}

func newMock(id models.CompetitorID, results map[string]models.PriceResult) *mockExtractor {
	return &mockExtractor{id: id, results: results, calls: map[string]int{}}
}

func (m *mockExtractor) ID() models.CompetitorID { return m.id }

func (m *mockExtractor) Extract(_ context.Context, pageURL string) models.PriceResult {
	m.calls[pageURL]++
	if m.onCall != nil {
		m.onCall(pageURL)
	}
	if m.clock != nil {
		m.clock.now = m.clock.now.Add(m.delay)
	}
	r, ok := m.results[pageURL]
	if !ok {
		return models.Unavailable()
	}
	return r
}

func (m *mockExtractor) totalCalls() int {
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func price(s string) models.PriceResult {
	return models.Price(decimal.RequireFromString(s))
}

// threeProducts is two competitor columns over three products; one URL is
// the NA sentinel.
func threeProducts() ([]models.Product, *mockExtractor, *mockExtractor) {
	a := newMock("a.com", map[string]models.PriceResult{
		"https://a.com/p2": price("200"),
		"https://a.com/p3": models.OutOfStock(),
	})
	b := newMock("b.com", map[string]models.PriceResult{
		"https://b.com/p1": price("150.00"),
		"https://b.com/p2": models.Unavailable(),
		"https://b.com/p3": price("99.5"),
	})
	products := []models.Product{
		{Name: "Kettle", Code: "K1", Cost: "100", SellingPrice: "140", CompetitorURLs: map[models.CompetitorID]string{
			"a.com": "NA", "b.com": "https://b.com/p1",
		}},
		{Name: "Toaster", Code: "T1", Cost: "180", SellingPrice: "210", CompetitorURLs: map[models.CompetitorID]string{
			"a.com": "https://a.com/p2", "b.com": "https://b.com/p2",
		}},
		{Name: "Mixer", Code: "M1", Cost: "90", SellingPrice: "120", CompetitorURLs: map[models.CompetitorID]string{
			"a.com": "https://a.com/p3", "b.com": "https://b.com/p3",
		}},
	}
	return products, a, b
}

func assertPrices(t *testing.T, want, got map[models.CompetitorID]models.PriceResult) {
	t.Helper()
	require.Len(t, got, len(want))
	for id, w := range want {
		assert.True(t, w.Equal(got[id]), "%s: want %s, got %s", id, w, got[id])
	}
}

func assertReportsEqual(t *testing.T, want, got []models.ProductReport) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Code, got[i].Code)
		assertPrices(t, want[i].Prices, got[i].Prices)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	products, a, b := threeProducts()
	d := NewDriver(extractor.NewRegistry(a, b))

	out, err := d.Run(context.Background(), products, 0, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, models.BatchComplete, out.Status)
	assert.Equal(t, 3, out.TotalProcessed)
	assert.Equal(t, 3, out.ResumeFrom)
	require.Len(t, out.Reports, 3)

	assert.Equal(t, []string{"Kettle", "Toaster", "Mixer"},
		[]string{out.Reports[0].Name, out.Reports[1].Name, out.Reports[2].Name})
	assert.Equal(t, "100", out.Reports[0].Cost)
	assert.Equal(t, "140", out.Reports[0].SellingPrice)

	assertPrices(t, map[models.CompetitorID]models.PriceResult{
		"a.com": models.Unavailable(), "b.com": price("150"),
	}, out.Reports[0].Prices)
	assertPrices(t, map[models.CompetitorID]models.PriceResult{
		"a.com": price("200"), "b.com": models.Unavailable(),
	}, out.Reports[1].Prices)
	assertPrices(t, map[models.CompetitorID]models.PriceResult{
		"a.com": models.OutOfStock(), "b.com": price("99.5"),
	}, out.Reports[2].Prices)
}

func TestRun_PlaceholderURLsSkipExtractor(t *testing.T) {
	a := newMock("a.com", nil)
	products := []models.Product{{Name: "X", CompetitorURLs: map[models.CompetitorID]string{
		"a.com": "NA",
	}}, {Name: "Y", CompetitorURLs: map[models.CompetitorID]string{
		"a.com": "  ",
	}}, {Name: "Z", CompetitorURLs: map[models.CompetitorID]string{
		"a.com": "na",
	}}}

	out, err := NewDriver(extractor.NewRegistry(a)).Run(context.Background(), products, 0, time.Hour)
	require.NoError(t, err)

	assert.Zero(t, a.totalCalls())
	for _, r := range out.Reports {
		assertPrices(t, map[models.CompetitorID]models.PriceResult{"a.com": models.Unavailable()}, r.Prices)
	}
}

func TestRun_UnknownCompetitorIsUnavailable(t *testing.T) {
	a := newMock("a.com", map[string]models.PriceResult{
		"https://a.com/1":     price("10"),
		"https://www.a.com/1": price("12"),
	})
	products := []models.Product{{Name: "X", CompetitorURLs: map[models.CompetitorID]string{
		"a.com":        "https://a.com/1",
		"Unmonitored":  "https://nobody.example/1",
		"Display Name": "https://www.a.com/1",
	}}}

	out, err := NewDriver(extractor.NewRegistry(a)).Run(context.Background(), products, 0, time.Hour)
	require.NoError(t, err)

	// The display-name column resolves through the URL host.
	assertPrices(t, map[models.CompetitorID]models.PriceResult{
		"a.com":        price("10"),
		"Unmonitored":  models.Unavailable(),
		"Display Name": price("12"),
	}, out.Reports[0].Prices)
	assert.Equal(t, 1, a.calls["https://www.a.com/1"])
}

func TestRun_DeadlineYieldsPartial(t *testing.T) {
	products, a, b := threeProducts()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	for _, m := range []*mockExtractor{a, b} {
		m.clock, m.delay = clock, 10*time.Second
	}
	// Product 0 makes one lookup (its other URL is NA); give it two
	// lookups so every product costs the same 20s.
	products[0].CompetitorURLs["a.com"] = "https://a.com/p1"

	d := NewDriver(extractor.NewRegistry(a, b), WithClock(clock.Now))
	out, err := d.Run(context.Background(), products, 0, 20*time.Second)
	require.NoError(t, err)

	assert.Equal(t, models.BatchPartial, out.Status)
	assert.Equal(t, 1, out.TotalProcessed)
	assert.Equal(t, 1, out.ResumeFrom)
	require.Len(t, out.Reports, 1)
	assert.Equal(t, "Kettle", out.Reports[0].Name)

	// Products after the cursor were never touched.
	assert.Zero(t, a.calls["https://a.com/p2"])
}

func TestRun_ResumptionChainMatchesSingleRun(t *testing.T) {
	products, a, b := threeProducts()
	full, err := NewDriver(extractor.NewRegistry(a, b)).Run(context.Background(), products, 0, time.Hour)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	for _, m := range []*mockExtractor{a, b} {
		m.clock, m.delay = clock, 10*time.Second
	}
	d := NewDriver(extractor.NewRegistry(a, b), WithClock(clock.Now))

	var (
		merged []models.ProductReport
		cursor int
		prev   = -1
		calls  int
	)
	for {
		out, err := d.Run(context.Background(), products, cursor, time.Nanosecond)
		require.NoError(t, err)
		calls++
		require.Greater(t, cursor, prev, "cursor must advance")
		prev = cursor

		merged = append(merged, out.Reports...)
		if out.Complete() {
			assert.Equal(t, len(products)-cursor, out.TotalProcessed)
			break
		}
		assert.Equal(t, cursor+out.TotalProcessed, out.ResumeFrom)
		cursor = out.ResumeFrom
		require.Less(t, calls, 10)
	}

	assert.Equal(t, 3, calls)
	assertReportsEqual(t, full.Reports, merged)
}

func TestRun_ZeroBudgetStillProgresses(t *testing.T) {
	products, a, b := threeProducts()
	out, err := NewDriver(extractor.NewRegistry(a, b)).Run(context.Background(), products, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, models.BatchPartial, out.Status)
	assert.Equal(t, 1, out.TotalProcessed)
	assert.Equal(t, 2, out.ResumeFrom)
	assert.Equal(t, "Toaster", out.Reports[0].Name)
}

func TestRun_StartIndex(t *testing.T) {
	products, a, b := threeProducts()
	d := NewDriver(extractor.NewRegistry(a, b))

	for _, idx := range []int{-1, 4} {
		_, err := d.Run(context.Background(), products, idx, time.Hour)
		assert.True(t, errors.Is(err, ErrInvalidStartIndex), "index %d", idx)
	}

	out, err := d.Run(context.Background(), products, 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.Zero(t, out.TotalProcessed)
	assert.Empty(t, out.Reports)

	out, err = d.Run(context.Background(), products, 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.Equal(t, 1, out.TotalProcessed)
	assert.Equal(t, "Mixer", out.Reports[0].Name)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	products, a, b := threeProducts()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewDriver(extractor.NewRegistry(a, b)).Run(ctx, products, 0, time.Hour)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, out)
	assert.Zero(t, a.totalCalls()+b.totalCalls())
}

func TestRun_CancelledMidProductIsNotReported(t *testing.T) {
	products, a, b := threeProducts()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.onCall = func(pageURL string) {
		if pageURL == "https://a.com/p2" {
			cancel()
		}
	}

	out, err := NewDriver(extractor.NewRegistry(a, b)).Run(ctx, products, 0, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, models.BatchPartial, out.Status)
	assert.Equal(t, 1, out.TotalProcessed)
	assert.Equal(t, 1, out.ResumeFrom)
	require.Len(t, out.Reports, 1)
	assert.Equal(t, "Kettle", out.Reports[0].Name)

	// The remaining lookups of the cancelled product are never issued.
	assert.Zero(t, b.calls["https://b.com/p2"])
	assert.Zero(t, a.calls["https://a.com/p3"])

	// Resuming looks the dropped product up again.
	out, err = NewDriver(extractor.NewRegistry(a, b)).Run(context.Background(), products, out.ResumeFrom, time.Hour)
	require.NoError(t, err)
	assert.True(t, out.Complete())
	require.Len(t, out.Reports, 2)
	assert.Equal(t, "Toaster", out.Reports[0].Name)
	assertPrices(t, map[models.CompetitorID]models.PriceResult{
		"a.com": price("200"),
		"b.com": models.Unavailable(),
	}, out.Reports[0].Prices)
}

func TestRun_EmptyList(t *testing.T) {
	out, err := NewDriver(extractor.NewRegistry()).Run(context.Background(), nil, 0, time.Hour)
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.Zero(t, out.TotalProcessed)
}
