package service

import (
	"strings"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// MergeFilters layers a refinement on top of the active filter. Prior
// constraints survive unless the new turn overrides the same field or asks
// for a reset. Amenities accumulate as a union.
func MergeFilters(prior, next *model.SearchFilter, reset bool) *model.SearchFilter {
	if reset || prior == nil {
		if next == nil {
			return nil
		}
		return next.Clone()
	}
	if next == nil {
		return prior.Clone()
	}

	merged := prior.Clone()
	if next.Bedrooms != nil {
		merged.Bedrooms = next.Bedrooms
	}
	if next.Bathrooms != nil {
		merged.Bathrooms = next.Bathrooms
	}
	if next.MinYearlyRent != nil {
		merged.MinYearlyRent = next.MinYearlyRent
	}
	if next.MaxYearlyRent != nil {
		merged.MaxYearlyRent = next.MaxYearlyRent
	}
	if next.Location != nil {
		merged.Location = next.Location
	}
	if next.Furnished != nil {
		merged.Furnished = next.Furnished
	}
	if next.Parking != nil {
		merged.Parking = next.Parking
	}
	for _, a := range next.Amenities {
		if !containsFold(merged.Amenities, a) {
			merged.Amenities = append(merged.Amenities, a)
		}
	}
	if next.Query != "" {
		merged.Query = next.Query
	}

	// A refinement can invert the rent window. Drop the stale bound rather
	// than searching an empty range.
	if merged.MinYearlyRent != nil && merged.MaxYearlyRent != nil &&
		*merged.MinYearlyRent > *merged.MaxYearlyRent {
		if next.MaxYearlyRent != nil {
			merged.MinYearlyRent = nil
		} else {
			merged.MaxYearlyRent = nil
		}
	}
	return merged
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
