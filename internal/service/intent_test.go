package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

func newTestExtractor() *IntentExtractor {
	e := NewIntentExtractor(nil, zerolog.Nop())
	// Fixed clock so relative and year-less dates resolve deterministically.
	e.Now = func() time.Time {
		return time.Date(2025, time.October, 20, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func TestExtract_SearchFilters(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name     string
		message  string
		wantKind model.IntentKind
		check    func(t *testing.T, intent *model.Intent)
	}{
		{
			name:     "bedrooms and location",
			message:  "2 bedroom apartment in Dubai Marina",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if intent.Filter == nil {
					t.Fatal("expected a filter")
				}
				if intent.Filter.Bedrooms == nil || *intent.Filter.Bedrooms != 2 {
					t.Errorf("bedrooms = %v, want 2", intent.Filter.Bedrooms)
				}
				if intent.Filter.Location == nil || *intent.Filter.Location != "Dubai Marina" {
					t.Errorf("location = %v, want Dubai Marina", intent.Filter.Location)
				}
			},
		},
		{
			name:     "marina is not the month of march",
			message:  "show me apartments in Dubai Marina",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if intent.Date != "" {
					t.Errorf("date = %q, want empty", intent.Date)
				}
			},
		},
		{
			name:     "budget in thousands",
			message:  "show me something under 80k yearly",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if intent.Filter == nil || intent.Filter.MaxYearlyRent == nil {
					t.Fatal("expected a max rent")
				}
				if *intent.Filter.MaxYearlyRent != 80000 {
					t.Errorf("max rent = %v, want 80000", *intent.Filter.MaxYearlyRent)
				}
			},
		},
		{
			name:     "monthly budget converts to yearly",
			message:  "find me a place under 7k monthly",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if intent.Filter == nil || intent.Filter.MaxYearlyRent == nil {
					t.Fatal("expected a max rent")
				}
				if *intent.Filter.MaxYearlyRent != 84000 {
					t.Errorf("max rent = %v, want 84000", *intent.Filter.MaxYearlyRent)
				}
			},
		},
		{
			name:     "studio maps to zero bedrooms",
			message:  "any studio in JLT",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if intent.Filter == nil || intent.Filter.Bedrooms == nil {
					t.Fatal("expected bedrooms")
				}
				if *intent.Filter.Bedrooms != 0 {
					t.Errorf("bedrooms = %d, want 0", *intent.Filter.Bedrooms)
				}
			},
		},
		{
			name:     "amenities",
			message:  "properties with gym and pool",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if intent.Filter == nil || len(intent.Filter.Amenities) != 2 {
					t.Fatalf("amenities = %v, want 2 entries", intent.Filter)
				}
			},
		},
		{
			name:     "reset phrase",
			message:  "let's start over, show me villas in Jumeirah",
			wantKind: model.IntentNewSearch,
			check: func(t *testing.T, intent *model.Intent) {
				if !intent.Reset {
					t.Error("expected reset = true")
				}
			},
		},
	}

	state := model.NewConversationState()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(context.Background(), state, tt.message)
			if intent.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", intent.Kind, tt.wantKind)
			}
			if tt.check != nil {
				tt.check(t, intent)
			}
		})
	}
}

func TestExtract_RefineVsNewSearch(t *testing.T) {
	e := newTestExtractor()

	browsing := model.NewConversationState()
	browsing.Stage = model.StageBrowsing
	browsing.ActiveFilter = &model.SearchFilter{Query: "2 bedroom in Dubai Marina"}

	intent := e.Extract(context.Background(), browsing, "under 80k yearly with a gym")
	if intent.Kind != model.IntentRefineSearch {
		t.Errorf("kind = %q, want refine_search", intent.Kind)
	}

	idle := model.NewConversationState()
	intent = e.Extract(context.Background(), idle, "under 80k yearly with a gym")
	if intent.Kind != model.IntentNewSearch {
		t.Errorf("kind = %q, want new_search", intent.Kind)
	}
}

func TestExtract_DatesAndTimes(t *testing.T) {
	e := newTestExtractor()
	state := model.NewConversationState()
	state.Stage = model.StageAwaitingTourDate

	tests := []struct {
		name     string
		message  string
		wantDate string
		wantTime string
	}{
		{"month day pm", "November 7th at 2pm", "2025-11-07", "14:00"},
		{"iso date 24h", "2025-11-07 at 14:00", "2025-11-07", "14:00"},
		{"past month rolls to next year", "March 5th at 10am", "2026-03-05", "10:00"},
		{"tomorrow", "tomorrow at 4 pm", "2025-10-21", "16:00"},
		{"noon pm", "November 7th at 12pm", "2025-11-07", "12:00"},
		{"midnight am", "November 7th at 12am", "2025-11-07", "00:00"},
		{"minutes", "Nov 7 at 2:30pm", "2025-11-07", "14:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(context.Background(), state, tt.message)
			if intent.Kind != model.IntentBookingRequest {
				t.Errorf("kind = %q, want booking_request", intent.Kind)
			}
			if intent.Date != tt.wantDate {
				t.Errorf("date = %q, want %q", intent.Date, tt.wantDate)
			}
			if intent.Time != tt.wantTime {
				t.Errorf("time = %q, want %q", intent.Time, tt.wantTime)
			}
		})
	}
}

func TestExtract_ContactInfo(t *testing.T) {
	e := newTestExtractor()
	state := model.NewConversationState()
	state.Stage = model.StageAwaitingContactInfo

	tests := []struct {
		name      string
		message   string
		wantName  string
		wantPhone string
	}{
		{"comma form", "Sarah Ahmed, 0501234567", "Sarah Ahmed", "0501234567"},
		{"stated name", "my name is Omar Hassan and my number is 0559876543", "Omar Hassan", "0559876543"},
		{"bare phone while expected", "0501234567", "", "0501234567"},
		{"phone with spaces", "reach me at 050 123 4567", "", "0501234567"},
		{"too short phone rejected", "call me at 12345", "", ""},
		{"cased name after i'm", "I'm Sarah Ahmed", "Sarah Ahmed", ""},
		{"prose after i'm is not a name", "I'm hoping for Thursday", "", ""},
		{"prose after this is is not a name", "this is great news", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(context.Background(), state, tt.message)
			if intent.Name != tt.wantName {
				t.Errorf("name = %q, want %q", intent.Name, tt.wantName)
			}
			if intent.Phone != tt.wantPhone {
				t.Errorf("phone = %q, want %q", intent.Phone, tt.wantPhone)
			}
		})
	}
}

func TestExtract_References(t *testing.T) {
	e := newTestExtractor()
	state := model.NewConversationState()
	state.Stage = model.StageBrowsing
	state.LastResults = []model.PropertyRef{
		{PropertyID: "rocky_037", Location: "Dubai Marina"},
		{PropertyID: "rocky_101", Location: "JLT"},
		{PropertyID: "rocky_202", Location: "Downtown"},
	}

	tests := []struct {
		name    string
		message string
		wantID  string
	}{
		{"first", "tell me more about the first one", "rocky_037"},
		{"second", "details on the second one", "rocky_101"},
		{"last", "what about the last one", "rocky_202"},
		{"by location", "tell me more about the one in JLT", "rocky_101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(context.Background(), state, tt.message)
			if intent.Kind != model.IntentDetailRequest {
				t.Fatalf("kind = %q, want detail_request", intent.Kind)
			}
			id, err := e.ResolveReference(state, intent.Reference)
			if err != nil {
				t.Fatalf("ResolveReference() error = %v", err)
			}
			if id != tt.wantID {
				t.Errorf("resolved id = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestResolveReference_Ambiguous(t *testing.T) {
	e := newTestExtractor()
	state := model.NewConversationState()
	state.LastResults = []model.PropertyRef{
		{PropertyID: "a", Location: "Dubai Marina"},
		{PropertyID: "b", Location: "Marina Promenade"},
	}

	tests := []struct {
		name string
		ref  *model.Reference
	}{
		{"no selection and no reference", nil},
		{"ordinal out of range", &model.Reference{Ordinal: 9}},
		{"name matches two listings", &model.Reference{Name: "marina"}},
		{"name matches nothing", &model.Reference{Name: "palm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ResolveReference(state, tt.ref)
			if err == nil {
				t.Fatal("expected an error")
			}
			if _, ok := err.(*model.AmbiguousReferenceError); !ok {
				t.Errorf("error type = %T, want *model.AmbiguousReferenceError", err)
			}
		})
	}
}

func TestExtract_BookingAndTourPhrasing(t *testing.T) {
	e := newTestExtractor()
	state := model.NewConversationState()
	state.Stage = model.StageBrowsing
	state.LastResults = []model.PropertyRef{{PropertyID: "rocky_037", Location: "Dubai Marina"}}

	tests := []struct {
		message  string
		wantKind model.IntentKind
	}{
		{"can I book a tour for the first one", model.IntentBookingRequest},
		{"is it available for a viewing this week", model.IntentTourAvailability},
		{"I'd like to visit the property", model.IntentTourAvailability},
		{"thanks, that's all", model.IntentAcknowledgment},
		{"what is the meaning of life", model.IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			intent := e.Extract(context.Background(), state, tt.message)
			if intent.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", intent.Kind, tt.wantKind)
			}
		})
	}
}
