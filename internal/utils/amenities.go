package utils

import "strings"

// amenityAliases maps a canonical amenity key to the spellings that show up
// in listing payloads and user turns.
var amenityAliases = map[string][]string{
	"pool":       {"pool", "swimming pool", "shared pool", "private pool"},
	"gym":        {"gym", "gymnasium", "fitness", "fitness center", "shared gym"},
	"parking":    {"parking", "car park", "covered parking", "parking spot"},
	"balcony":    {"balcony", "terrace"},
	"security":   {"security", "24/7 security", "24-hour security", "concierge"},
	"maid":       {"maid room", "maids room", "maid's room"},
	"sea view":   {"sea view", "marina view", "water view"},
	"furnished":  {"furnished", "fully furnished"},
	"pets":       {"pets allowed", "pet friendly", "pet-friendly"},
	"playground": {"playground", "kids play area", "children's play area"},
	"sauna":      {"sauna", "steam room"},
	"bbq":        {"bbq", "barbecue", "bbq area"},
}

// NormalizeAmenity maps a user's phrasing onto the canonical amenity key so
// that filter sets compare and deduplicate cleanly.
func NormalizeAmenity(term string) string {
	t := strings.ToLower(strings.TrimSpace(term))
	for key, aliases := range amenityAliases {
		if t == key {
			return key
		}
		for _, alias := range aliases {
			if t == alias || strings.Contains(t, alias) {
				return key
			}
		}
	}
	return t
}

// AmenityMatches reports whether a required amenity term matches a listing
// amenity, tolerating alias spellings on both sides.
func AmenityMatches(want, have string) bool {
	w := strings.ToLower(strings.TrimSpace(want))
	h := strings.ToLower(strings.TrimSpace(have))
	if w == "" || h == "" {
		return false
	}
	if w == h || strings.Contains(h, w) {
		return true
	}
	key := NormalizeAmenity(w)
	for _, alias := range amenityAliases[key] {
		if strings.Contains(h, alias) {
			return true
		}
	}
	return false
}

// ListingHasAmenity reports whether any listing amenity satisfies the
// required term.
func ListingHasAmenity(amenities []string, want string) bool {
	for _, have := range amenities {
		if AmenityMatches(want, have) {
			return true
		}
	}
	return false
}

// AmenityPatterns returns the ILIKE patterns to try in SQL for a required
// amenity term, one per alias spelling.
func AmenityPatterns(term string) []string {
	key := NormalizeAmenity(term)
	aliases := amenityAliases[key]
	if len(aliases) == 0 {
		aliases = []string{strings.ToLower(strings.TrimSpace(term))}
	}
	patterns := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		patterns = append(patterns, "%"+alias+"%")
	}
	return patterns
}
