package model

import (
	"strings"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/utils"
)

// SearchFilter represents structured search constraints plus the free-text
// semantic query. Nil pointer fields mean "unconstrained".
type SearchFilter struct {
	Bedrooms      *int     `json:"bedrooms,omitempty"`
	Bathrooms     *int     `json:"bathrooms,omitempty"`
	MinYearlyRent *float64 `json:"min_yearly_rent,omitempty"`
	MaxYearlyRent *float64 `json:"max_yearly_rent,omitempty"`
	Location      *string  `json:"location,omitempty"`
	Furnished     *bool    `json:"furnished,omitempty"`
	Parking       *bool    `json:"parking,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
	Query         string   `json:"query,omitempty"`
}

// HasStructured reports whether at least one structured predicate is set.
func (f *SearchFilter) HasStructured() bool {
	if f == nil {
		return false
	}
	return f.Bedrooms != nil || f.Bathrooms != nil ||
		f.MinYearlyRent != nil || f.MaxYearlyRent != nil ||
		f.Location != nil || f.Furnished != nil || f.Parking != nil ||
		len(f.Amenities) > 0
}

// IsAmbiguous reports whether the filter carries neither a semantic query nor
// any structured predicate. Such a filter cannot be executed.
func (f *SearchFilter) IsAmbiguous() bool {
	return f == nil || (strings.TrimSpace(f.Query) == "" && !f.HasStructured())
}

// Matches evaluates the structured predicates against a listing. The semantic
// query does not participate; it only affects ranking.
func (f *SearchFilter) Matches(l *PropertyListing) bool {
	if f == nil {
		return true
	}
	if f.Bedrooms != nil {
		if l.Bedrooms == nil || *l.Bedrooms != *f.Bedrooms {
			return false
		}
	}
	if f.Bathrooms != nil {
		if l.Bathrooms == nil || *l.Bathrooms != *f.Bathrooms {
			return false
		}
	}
	if f.MinYearlyRent != nil && l.YearlyRent < *f.MinYearlyRent {
		return false
	}
	if f.MaxYearlyRent != nil && l.YearlyRent >= *f.MaxYearlyRent {
		return false
	}
	if f.Location != nil {
		loc := strings.ToLower(l.Location)
		if l.Area != nil {
			loc += " " + strings.ToLower(*l.Area)
		}
		if l.City != nil {
			loc += " " + strings.ToLower(*l.City)
		}
		if !strings.Contains(loc, strings.ToLower(strings.TrimSpace(*f.Location))) {
			return false
		}
	}
	if f.Furnished != nil && l.Furnished != *f.Furnished {
		return false
	}
	if f.Parking != nil && l.Parking != *f.Parking {
		return false
	}
	for _, want := range f.Amenities {
		if !utils.ListingHasAmenity(l.Amenities, want) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. Refinement always works on a copy so a turn
// never mutates the filter held by the caller's previous state.
func (f *SearchFilter) Clone() *SearchFilter {
	if f == nil {
		return nil
	}
	c := &SearchFilter{Query: f.Query}
	if f.Bedrooms != nil {
		v := *f.Bedrooms
		c.Bedrooms = &v
	}
	if f.Bathrooms != nil {
		v := *f.Bathrooms
		c.Bathrooms = &v
	}
	if f.MinYearlyRent != nil {
		v := *f.MinYearlyRent
		c.MinYearlyRent = &v
	}
	if f.MaxYearlyRent != nil {
		v := *f.MaxYearlyRent
		c.MaxYearlyRent = &v
	}
	if f.Location != nil {
		v := *f.Location
		c.Location = &v
	}
	if f.Furnished != nil {
		v := *f.Furnished
		c.Furnished = &v
	}
	if f.Parking != nil {
		v := *f.Parking
		c.Parking = &v
	}
	if len(f.Amenities) > 0 {
		c.Amenities = append([]string(nil), f.Amenities...)
	}
	return c
}
