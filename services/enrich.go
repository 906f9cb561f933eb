package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"moviebrowser/models"
)

// tvLookup fetches the full record of one TV series.
type tvLookup interface {
	LookupTV(ctx context.Context, id int) (*models.TVSeries, error)
}

// SearchEnricher turns raw multi-search results into display-ready results:
// sorted by popularity, with every TV series carrying its episode counts and
// total runtime.
type SearchEnricher struct {
	lookup         tvLookup
	maxConcurrency int
	logger         zerolog.Logger
}

// NewSearchEnricher creates an enricher. maxConcurrency caps the number of
// simultaneous lookups; 0 runs every lookup at once.
func NewSearchEnricher(lookup tvLookup, maxConcurrency int, logger zerolog.Logger) *SearchEnricher {
	return &SearchEnricher{
		lookup:         lookup,
		maxConcurrency: maxConcurrency,
		logger:         logger.With().Str("component", "enrich").Logger(),
	}
}

// Enrich sorts items and merges detail data into each TV series. A failed
// lookup leaves that series as it came from the search; it never fails the
// batch. The input slice is not modified.
func (e *SearchEnricher) Enrich(ctx context.Context, items []models.MediaItem) []models.MediaItem {
	out := make([]models.MediaItem, len(items))
	copy(out, items)
	models.SortByPopularity(out)

	p := pool.New()
	if e.maxConcurrency > 0 {
		p = p.WithMaxGoroutines(e.maxConcurrency)
	}

	lookups := 0
	for i, item := range out {
		switch it := item.(type) {
		case *models.TVSeries:
			lookups++
			p.Go(func() {
				if enriched, ok := e.enrichSeries(ctx, it); ok {
					out[i] = enriched
				}
			})
		case *models.Movie:
		}
	}
	p.Wait()

	e.logger.Debug().Int("results", len(out)).Int("lookups", lookups).Msg("Search results enriched")
	return out
}

func (e *SearchEnricher) enrichSeries(ctx context.Context, series *models.TVSeries) (*models.TVSeries, bool) {
	details, err := e.lookup.LookupTV(ctx, series.ID)
	if err != nil {
		e.logger.Warn().Err(err).Int("id", series.ID).Msg("Error fetching TV details, returning item unenriched")
		return nil, false
	}

	enriched := *series
	enriched.MergeDetails(details)
	return &enriched, true
}
