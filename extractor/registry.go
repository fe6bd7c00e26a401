package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
)

// Registry is the static mapping from competitor id to extractor. It is
// built once at startup and read-only afterwards.
type Registry struct {
	extractors map[models.CompetitorID]Extractor
}

// NewRegistry registers extractors under their ids. A later extractor with
// the same id replaces an earlier one.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[models.CompetitorID]Extractor, len(extractors))}
	for _, e := range extractors {
		r.extractors[NormalizeID(string(e.ID()))] = guarded{e}
	}
	return r
}

// Default builds the registry of every supported competitor. Noon is only
// registered when a renderer is available.
func Default(client *engine.Client, renderer engine.Renderer) *Registry {
	extractors := []Extractor{
		New2B(client),
		NewElIraqi(client),
		NewElGhazawy(client),
		NewRaneen(client),
		NewElSindbad(client),
		NewRayashop(client, ""),
		NewBTech(client, ""),
		NewAmazonEG(client),
		NewCairoSales(client),
		NewSerag(client),
	}
	if renderer != nil {
		extractors = append(extractors, NewNoon(renderer))
	}
	return NewRegistry(extractors...)
}

// Resolve returns the extractor for id.
func (r *Registry) Resolve(id models.CompetitorID) (Extractor, bool) {
	e, ok := r.extractors[NormalizeID(string(id))]
	return e, ok
}

// Lookup resolves a spreadsheet competitor column. The column header is
// tried first; when it is not a known id the product URL's host is used.
func (r *Registry) Lookup(column models.CompetitorID, pageURL string) (Extractor, bool) {
	if e, ok := r.Resolve(column); ok {
		return e, true
	}
	return r.Resolve(NormalizeID(pageURL))
}

// IDs returns the registered competitor ids in sorted order.
func (r *Registry) IDs() []models.CompetitorID {
	ids := make([]models.CompetitorID, 0, len(r.extractors))
	for id := range r.extractors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered competitors.
func (r *Registry) Len() int { return len(r.extractors) }

// NormalizeID reduces a competitor header or URL to its bare host:
// "https://www.Raneen.com/ar/x" -> "raneen.com".
func NormalizeID(raw string) models.CompetitorID {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		} else {
			s = s[strings.Index(s, "://")+3:]
		}
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, ok := strings.Cut(s, ":"); ok {
		s = h
	}
	s = strings.TrimPrefix(s, "www.")
	return models.CompetitorID(s)
}

// guarded turns a panicking extractor into an Unavailable result so one
// broken site cannot take down a batch.
type guarded struct {
	Extractor
}

func (g guarded) Extract(ctx context.Context, pageURL string) (result models.PriceResult) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("extractor panic",
				"competitor", g.ID(),
				"url", pageURL,
				"panic", fmt.Sprint(rec),
			)
			result = models.Unavailable()
		}
	}()
	return g.Extractor.Extract(ctx, pageURL)
}
