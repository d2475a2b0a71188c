package service

import (
	"context"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/crm"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// ListingStore is the hybrid search capability the agent talks to. Queries
// are read-only and may run with unbounded concurrency.
type ListingStore interface {
	// Search returns listings passing every structured predicate, ranked
	// by relevance score descending with ties broken by ascending yearly
	// rent. queryVec may be nil when no embedding is available.
	Search(ctx context.Context, filter *model.SearchFilter, queryVec []float32, limit int) ([]model.SearchResult, error)

	// GetByID returns (nil, nil) when the property does not exist.
	GetByID(ctx context.Context, propertyID string) (*model.PropertyListing, error)
}

// BookingLedger is the shared mutable booking state. Reserve must decide
// slot exclusivity atomically against concurrent attempts.
type BookingLedger interface {
	Reserve(ctx context.Context, slot model.TourSlot, name, phone string) (*model.Booking, error)
	BookedSlots(ctx context.Context, propertyID, from, to string) ([]model.TourSlot, error)
}

// LeadPublisher pushes captured leads toward the CRM. Nil-able; publishing
// failures never affect the conversation.
type LeadPublisher interface {
	PublishLead(ctx context.Context, event crm.LeadEvent) error
}
