package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// MemoryStore is an in-process listing store. It backs tests and DB-less
// runs; ranking substitutes keyword overlap for vector similarity but keeps
// the same ordering contract (score descending, ties by ascending yearly
// rent).
type MemoryStore struct {
	mu       sync.RWMutex
	listings []model.PropertyListing
}

// NewMemoryStore creates a store pre-loaded with the given listings.
func NewMemoryStore(listings []model.PropertyListing) *MemoryStore {
	return &MemoryStore{listings: append([]model.PropertyListing(nil), listings...)}
}

// Add inserts a listing.
func (s *MemoryStore) Add(l model.PropertyListing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, l)
}

// Search filters by the structured predicates and ranks by keyword overlap
// with the semantic query. The query vector is ignored here.
func (s *MemoryStore) Search(
	ctx context.Context,
	filter *model.SearchFilter,
	_ []float32,
	limit int,
) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var terms []string
	if filter != nil && filter.Query != "" {
		terms = strings.Fields(strings.ToLower(filter.Query))
	}

	var results []model.SearchResult
	for i := range s.listings {
		l := s.listings[i]
		if !filter.Matches(&l) {
			continue
		}
		results = append(results, model.SearchResult{
			PropertyListing: l,
			Score:           keywordScore(&l, terms),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].YearlyRent < results[j].YearlyRent
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetByID retrieves a listing. Returns (nil, nil) when not found.
func (s *MemoryStore) GetByID(ctx context.Context, propertyID string) (*model.PropertyListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.listings {
		if s.listings[i].PropertyID == propertyID {
			l := s.listings[i]
			return &l, nil
		}
	}
	return nil, nil
}

// BatchUpdateEmbeddings is a no-op match for the store interface; the memory
// store does not rank by vectors.
func (s *MemoryStore) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	return len(items), nil
}

// keywordScore counts query term occurrences across the listing's visible
// text fields, normalized by term count.
func keywordScore(l *model.PropertyListing, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(l.Location)
	if l.Area != nil {
		haystack += " " + strings.ToLower(*l.Area)
	}
	if l.City != nil {
		haystack += " " + strings.ToLower(*l.City)
	}
	if l.Description != nil {
		haystack += " " + strings.ToLower(*l.Description)
	}
	for _, a := range l.Amenities {
		haystack += " " + strings.ToLower(a)
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// MemoryLedger is the in-process booking ledger. A single mutex serializes
// reservations, which is the whole exclusivity guarantee.
type MemoryLedger struct {
	mu       sync.Mutex
	bookings map[model.TourSlot]model.Booking
	now      func() time.Time
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		bookings: make(map[model.TourSlot]model.Booking),
		now:      time.Now,
	}
}

// Reserve books a slot, or returns model.ErrSlotTaken if it is held.
func (l *MemoryLedger) Reserve(ctx context.Context, slot model.TourSlot, name, phone string) (*model.Booking, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.bookings[slot]; taken {
		return nil, model.ErrSlotTaken
	}

	booking := model.Booking{
		TourSlot:       slot,
		CustomerName:   name,
		CustomerPhone:  phone,
		ConfirmationID: slot.ConfirmationID(),
		BookedAt:       l.now(),
	}
	l.bookings[slot] = booking
	return &booking, nil
}

// BookedSlots returns booked slots for a property within [from, to].
func (l *MemoryLedger) BookedSlots(ctx context.Context, propertyID, from, to string) ([]model.TourSlot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var slots []model.TourSlot
	for slot := range l.bookings {
		if slot.PropertyID != propertyID {
			continue
		}
		if slot.Date < from || slot.Date > to {
			continue
		}
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return slots[i].Time < slots[j].Time
	})
	return slots, nil
}
