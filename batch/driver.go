// Package batch walks a product list, looks up every competitor price
// through the extractor registry and stops at product boundaries once the
// wall-clock budget is spent, returning a resume cursor.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/pricewatch/extractor"
	"github.com/use-agent/pricewatch/models"
)

// ErrInvalidStartIndex is returned when the resume cursor lies outside the
// product list.
var ErrInvalidStartIndex = errors.New("batch: start index out of range")

// Resolver finds the extractor for a competitor column, given one of the
// column's product URLs. *extractor.Registry implements it.
type Resolver interface {
	Lookup(column models.CompetitorID, pageURL string) (extractor.Extractor, bool)
}

// Driver runs time-boxed batches. It holds no state between runs and is
// safe for concurrent use.
type Driver struct {
	resolver Resolver
	now      func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver creates a Driver that resolves extractors through r.
func NewDriver(r Resolver, opts ...Option) *Driver {
	d := &Driver{resolver: r, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes products[startIndex:] in order. Each product's competitor
// lookups run to completion before the budget is checked, so a product is
// either fully reported or left for the next run. At least one product is
// processed when any remain.
//
// The budget is only consulted between products; a lookup already in
// flight is bounded by its own per-call timeout. A product whose lookups
// overlap a cancellation of ctx is dropped and left for the next run.
// Cancellation before any product completes returns ctx's error.
func (d *Driver) Run(ctx context.Context, products []models.Product, startIndex int, deadline time.Duration) (*models.BatchOutcome, error) {
	if startIndex < 0 || startIndex > len(products) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidStartIndex, startIndex, len(products))
	}

	started := d.now()
	reports := make([]models.ProductReport, 0, len(products)-startIndex)

	for i := startIndex; i < len(products); i++ {
		if len(reports) > 0 {
			if elapsed := d.now().Sub(started); elapsed >= deadline {
				slog.Info("batch deadline reached",
					"start_index", startIndex,
					"processed", len(reports),
					"resume_from", i,
					"elapsed", elapsed,
				)
				return partial(reports, i), nil
			}
		}
		report, ok := d.runProduct(ctx, products[i])
		if !ok {
			return cancelled(ctx, reports, startIndex, i)
		}
		reports = append(reports, report)
	}

	slog.Info("batch complete",
		"start_index", startIndex,
		"processed", len(reports),
		"elapsed", d.now().Sub(started),
	)
	return &models.BatchOutcome{
		Status:         models.BatchComplete,
		Reports:        reports,
		TotalProcessed: len(reports),
		ResumeFrom:     len(products),
	}, nil
}

// cancelled ends a run whose ctx is done while products[next] was pending.
func cancelled(ctx context.Context, reports []models.ProductReport, startIndex, next int) (*models.BatchOutcome, error) {
	err := ctx.Err()
	slog.Warn("batch cancelled",
		"start_index", startIndex,
		"processed", len(reports),
		"resume_from", next,
		"error", err,
	)
	if len(reports) == 0 {
		return nil, fmt.Errorf("batch: cancelled at index %d: %w", next, err)
	}
	return partial(reports, next), nil
}

func partial(reports []models.ProductReport, next int) *models.BatchOutcome {
	return &models.BatchOutcome{
		Status:         models.BatchPartial,
		Reports:        reports,
		TotalProcessed: len(reports),
		ResumeFrom:     next,
	}
}

// runProduct looks up every competitor of p, one at a time. It reports
// false, and stops issuing lookups, once ctx is done.
func (d *Driver) runProduct(ctx context.Context, p models.Product) (models.ProductReport, bool) {
	report := models.NewProductReport(p)

	for _, id := range sortedColumns(p.CompetitorURLs) {
		if ctx.Err() != nil {
			return report, false
		}
		raw := p.CompetitorURLs[id]
		if !models.HasURL(raw) {
			report.Prices[id] = models.Unavailable()
			continue
		}

		pageURL := strings.TrimSpace(raw)
		ex, ok := d.resolver.Lookup(id, pageURL)
		if !ok {
			slog.Debug("no extractor for competitor", "competitor", id, "url", pageURL)
			report.Prices[id] = models.Unavailable()
			continue
		}
		report.Prices[id] = ex.Extract(ctx, pageURL)
	}
	if ctx.Err() != nil {
		return report, false
	}

	slog.Debug("product processed", "code", p.Code, "competitors", len(report.Prices))
	return report, true
}

func sortedColumns(m map[models.CompetitorID]string) []models.CompetitorID {
	ids := make([]models.CompetitorID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
