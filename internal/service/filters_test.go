package service

import (
	"testing"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

func intPtr(v int) *int         { return &v }
func floatP(v float64) *float64 { return &v }
func strPtr(v string) *string   { return &v }

func TestMergeFilters_RetainsPriorConstraints(t *testing.T) {
	prior := &model.SearchFilter{
		Bedrooms: intPtr(2),
		Location: strPtr("Dubai Marina"),
		Query:    "2 bedroom in Dubai Marina",
	}
	next := &model.SearchFilter{
		MaxYearlyRent: floatP(80000),
		Amenities:     []string{"gym"},
		Query:         "under 80k with gym",
	}

	merged := MergeFilters(prior, next, false)

	if merged.Bedrooms == nil || *merged.Bedrooms != 2 {
		t.Errorf("bedrooms = %v, want 2", merged.Bedrooms)
	}
	if merged.Location == nil || *merged.Location != "Dubai Marina" {
		t.Errorf("location = %v, want Dubai Marina", merged.Location)
	}
	if merged.MaxYearlyRent == nil || *merged.MaxYearlyRent != 80000 {
		t.Errorf("max rent = %v, want 80000", merged.MaxYearlyRent)
	}
	if len(merged.Amenities) != 1 || merged.Amenities[0] != "gym" {
		t.Errorf("amenities = %v, want [gym]", merged.Amenities)
	}
	if merged.Query != "under 80k with gym" {
		t.Errorf("query = %q", merged.Query)
	}
}

func TestMergeFilters_OverridesSameField(t *testing.T) {
	prior := &model.SearchFilter{Bedrooms: intPtr(2), Location: strPtr("Dubai Marina")}
	next := &model.SearchFilter{Bedrooms: intPtr(3)}

	merged := MergeFilters(prior, next, false)
	if *merged.Bedrooms != 3 {
		t.Errorf("bedrooms = %d, want 3", *merged.Bedrooms)
	}
	if merged.Location == nil || *merged.Location != "Dubai Marina" {
		t.Errorf("location should survive an unrelated override")
	}
}

func TestMergeFilters_Reset(t *testing.T) {
	prior := &model.SearchFilter{Bedrooms: intPtr(2), MaxYearlyRent: floatP(80000)}
	next := &model.SearchFilter{Location: strPtr("Jumeirah"), Query: "villas in Jumeirah"}

	merged := MergeFilters(prior, next, true)
	if merged.Bedrooms != nil {
		t.Error("reset should drop prior bedrooms")
	}
	if merged.MaxYearlyRent != nil {
		t.Error("reset should drop prior rent cap")
	}
	if merged.Location == nil || *merged.Location != "Jumeirah" {
		t.Error("reset should keep the new constraints")
	}
}

func TestMergeFilters_AmenityUnion(t *testing.T) {
	prior := &model.SearchFilter{Amenities: []string{"gym"}}
	next := &model.SearchFilter{Amenities: []string{"pool", "GYM"}}

	merged := MergeFilters(prior, next, false)
	if len(merged.Amenities) != 2 {
		t.Errorf("amenities = %v, want union of gym and pool", merged.Amenities)
	}
}

func TestMergeFilters_InvertedRentWindow(t *testing.T) {
	prior := &model.SearchFilter{MinYearlyRent: floatP(100000)}
	next := &model.SearchFilter{MaxYearlyRent: floatP(80000)}

	merged := MergeFilters(prior, next, false)
	if merged.MinYearlyRent != nil {
		t.Error("stale min above new max should be dropped")
	}
	if merged.MaxYearlyRent == nil || *merged.MaxYearlyRent != 80000 {
		t.Error("new max should survive")
	}
}

func TestMergeFilters_DoesNotMutateInputs(t *testing.T) {
	prior := &model.SearchFilter{Bedrooms: intPtr(2), Amenities: []string{"gym"}}
	next := &model.SearchFilter{Amenities: []string{"pool"}}

	_ = MergeFilters(prior, next, false)
	if len(prior.Amenities) != 1 {
		t.Errorf("merge mutated prior amenities: %v", prior.Amenities)
	}
}
