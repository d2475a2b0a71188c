package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/metrics"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// SearchService runs the hybrid retrieval pipeline: structured filtering in
// the store, semantic ordering by query embedding, and a location-relaxation
// retry when a strict location predicate empties the result set.
type SearchService struct {
	store   ListingStore
	ai      *OpenAIClient
	metrics *metrics.Metrics
	log     zerolog.Logger
	limit   int
}

func NewSearchService(store ListingStore, ai *OpenAIClient, m *metrics.Metrics, log zerolog.Logger, limit, maxLimit int) *SearchService {
	if limit <= 0 {
		limit = 5
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return &SearchService{
		store:   store,
		ai:      ai,
		metrics: m,
		log:     log.With().Str("component", "search").Logger(),
		limit:   limit,
	}
}

// Search executes the filter against the listing store. An embedding failure
// degrades to keyword scoring; a store failure is reported as an upstream
// error so the conversation layer can ask the user to retry.
func (s *SearchService) Search(ctx context.Context, filter *model.SearchFilter) ([]model.SearchResult, error) {
	if filter == nil || filter.IsAmbiguous() {
		return nil, &model.ValidationError{Field: "filter", Reason: "no usable search constraints"}
	}
	s.metrics.SearchesTotal.Inc()

	queryVec := s.embedQuery(ctx, filter.Query)

	results, err := s.store.Search(ctx, filter, queryVec, s.limit)
	if err != nil {
		s.log.Error().Err(err).Msg("listing search failed")
		return nil, fmt.Errorf("listing search: %w", model.ErrUpstreamUnavailable)
	}

	// No hits with a location constraint: the area name may only live in the
	// free text, so retry with the location folded into the semantic query.
	if len(results) == 0 && filter.Location != nil && filter.Query != "" {
		relaxed := filter.Clone()
		loc := *relaxed.Location
		relaxed.Location = nil
		relaxed.Query = relaxed.Query + " " + loc

		vec := s.embedQuery(ctx, relaxed.Query)
		results, err = s.store.Search(ctx, relaxed, vec, s.limit)
		if err != nil {
			s.log.Error().Err(err).Msg("relaxed listing search failed")
			return nil, fmt.Errorf("listing search: %w", model.ErrUpstreamUnavailable)
		}
		if len(results) > 0 {
			s.log.Debug().Str("location", loc).Int("count", len(results)).
				Msg("location relaxation recovered results")
		}
	}

	return results, nil
}

// GetByID loads one listing, nil when absent.
func (s *SearchService) GetByID(ctx context.Context, propertyID string) (*model.PropertyListing, error) {
	listing, err := s.store.GetByID(ctx, propertyID)
	if err != nil {
		s.log.Error().Err(err).Str("property_id", propertyID).Msg("listing lookup failed")
		return nil, fmt.Errorf("listing lookup: %w", model.ErrUpstreamUnavailable)
	}
	return listing, nil
}

// embedQuery returns the query embedding or nil when embeddings are disabled
// or fail. nil drops the store into its keyword-ranking path.
func (s *SearchService) embedQuery(ctx context.Context, query string) []float32 {
	if !s.ai.IsEnabled() || query == "" {
		return nil
	}
	vec, err := s.ai.CreateEmbedding(ctx, query)
	if err != nil {
		s.metrics.UpstreamErrors.Inc()
		s.log.Warn().Err(err).Msg("embedding failed, degrading to keyword search")
		return nil
	}
	return vec
}
