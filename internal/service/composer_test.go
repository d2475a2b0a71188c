package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

func TestComposer_BookingConfirmedEchoesAllFacts(t *testing.T) {
	c := NewComposer(nil, zerolog.Nop())
	booking := &model.Booking{
		TourSlot:       model.TourSlot{PropertyID: "rocky_037", Date: "2025-11-07", Time: "14:00"},
		CustomerName:   "Sarah Ahmed",
		CustomerPhone:  "0501234567",
		ConfirmationID: "rocky_037_2025_11_07_14_00",
		BookedAt:       time.Now(),
	}

	reply := c.BookingConfirmed(context.Background(), booking)
	for _, want := range []string{"rocky_037", "2025-11-07", "14:00", "Sarah Ahmed", "0501234567", "rocky_037_2025_11_07_14_00"} {
		if !strings.Contains(reply, want) {
			t.Errorf("confirmation missing %q: %q", want, reply)
		}
	}
}

func TestComposer_MissingBookingInfo(t *testing.T) {
	c := NewComposer(nil, zerolog.Nop())

	tests := []struct {
		name    string
		missing []string
		want    string
	}{
		{"one field", []string{"a tour date"}, "a tour date"},
		{"two fields", []string{"your name", "your phone number"}, "your name and your phone number"},
		{"nothing missing", nil, "What else"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.MissingBookingInfo(tt.missing)
			if !strings.Contains(got, tt.want) {
				t.Errorf("MissingBookingInfo(%v) = %q, want it to contain %q", tt.missing, got, tt.want)
			}
		})
	}
}

func TestComposer_ResultsNumbersListings(t *testing.T) {
	c := NewComposer(nil, zerolog.Nop())
	results := []model.SearchResult{
		{PropertyListing: model.PropertyListing{PropertyID: "rocky_037", Location: "Dubai Marina", Bedrooms: intPtr(2), YearlyRent: 75000}},
		{PropertyListing: model.PropertyListing{PropertyID: "rocky_101", Location: "Dubai Marina", Bedrooms: intPtr(0), YearlyRent: 45000}},
	}

	reply := c.Results(context.Background(), results, false)
	if !strings.Contains(reply, "1. Dubai Marina") || !strings.Contains(reply, "2. Dubai Marina") {
		t.Errorf("results should be numbered: %q", reply)
	}
	if !strings.Contains(reply, "AED 75000/year") {
		t.Errorf("results should show the yearly rent: %q", reply)
	}
	if !strings.Contains(reply, "Studio") {
		t.Errorf("zero bedrooms should render as Studio: %q", reply)
	}
}

func TestComposer_SlotTaken(t *testing.T) {
	c := NewComposer(nil, zerolog.Nop())
	slot := model.TourSlot{PropertyID: "rocky_037", Date: "2025-11-07", Time: "14:00"}

	withAlts := c.SlotTaken(slot, []model.SlotStatus{{Date: "2025-11-07", Time: "16:00"}})
	if !strings.Contains(withAlts, "2025-11-07 at 16:00") {
		t.Errorf("alternatives missing: %q", withAlts)
	}

	noAlts := c.SlotTaken(slot, nil)
	if !strings.Contains(strings.ToLower(noAlts), "another day") {
		t.Errorf("fallback prompt missing: %q", noAlts)
	}
}
