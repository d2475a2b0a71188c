package utils

import (
	"reflect"
	"testing"
)

func TestParseAIJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]interface{}
		wantErr bool
	}{
		{
			name:  "pure JSON",
			input: `{"intent": "new_search", "date": "2025-11-07"}`,
			want: map[string]interface{}{
				"intent": "new_search",
				"date":   "2025-11-07",
			},
		},
		{
			name: "JSON in markdown code block",
			input: "```json\n" +
				`{"intent": "booking_request", "time": "14:00"}` + "\n```",
			want: map[string]interface{}{
				"intent": "booking_request",
				"time":   "14:00",
			},
		},
		{
			name:  "JSON with surrounding prose",
			input: `Sure! Here is the parsed intent: {"intent": "acknowledgment"} Let me know if you need anything else.`,
			want: map[string]interface{}{
				"intent": "acknowledgment",
			},
		},
		{
			name:  "trailing comma",
			input: `{"intent": "unknown",}`,
			want: map[string]interface{}{
				"intent": "unknown",
			},
		},
		{
			name:  "unquoted keys",
			input: `{intent: "new_search", reset: true}`,
			want: map[string]interface{}{
				"intent": "new_search",
				"reset":  true,
			},
		},
		{
			name:  "nested object with braces in strings",
			input: `{"filter": {"query": "flat with {balcony}"}}`,
			want: map[string]interface{}{
				"filter": map[string]interface{}{
					"query": "flat with {balcony}",
				},
			},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			input:   "I am sorry, I cannot help with that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]interface{}
			err := ParseAIJSON(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAIJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseAIJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeAmenity(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"swimming pool", "pool"},
		{"Pool", "pool"},
		{"fitness center", "gym"},
		{"shared gym", "gym"},
		{"covered parking", "parking"},
		{"marina view", "sea view"},
		{"rooftop cinema", "rooftop cinema"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeAmenity(tt.input); got != tt.want {
				t.Errorf("NormalizeAmenity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestListingHasAmenity(t *testing.T) {
	amenities := []string{"Shared Pool", "Gymnasium", "Covered Parking"}

	tests := []struct {
		want string
		has  bool
	}{
		{"pool", true},
		{"gym", true},
		{"parking", true},
		{"sauna", false},
		{"balcony", false},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ListingHasAmenity(amenities, tt.want); got != tt.has {
				t.Errorf("ListingHasAmenity(%q) = %v, want %v", tt.want, got, tt.has)
			}
		})
	}
}
