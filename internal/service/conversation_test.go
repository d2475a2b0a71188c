package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/metrics"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/repository"
)

func testListings() []model.PropertyListing {
	desc := "Spacious two bedroom with full marina view"
	return []model.PropertyListing{
		{
			PropertyID:  "rocky_037",
			Location:    "Dubai Marina",
			Bedrooms:    intPtr(2),
			Bathrooms:   intPtr(2),
			YearlyRent:  75000,
			Amenities:   model.JSONArray{"gym", "swimming pool"},
			Description: &desc,
		},
		{
			PropertyID: "rocky_101",
			Location:   "Dubai Marina",
			Bedrooms:   intPtr(2),
			YearlyRent: 95000,
			Amenities:  model.JSONArray{"gym"},
		},
		{
			PropertyID: "rocky_202",
			Location:   "Jumeirah Lake Towers",
			Bedrooms:   intPtr(1),
			YearlyRent: 55000,
			Amenities:  model.JSONArray{"swimming pool"},
		},
	}
}

// newTestAgent wires the full conversation stack on in-memory stores with no
// AI client and a fixed clock (2025-10-20).
func newTestAgent(t *testing.T) (*ConversationService, *repository.MemoryLedger) {
	t.Helper()
	log := zerolog.Nop()
	m := metrics.NewWith(prometheus.NewRegistry())

	store := repository.NewMemoryStore(testListings())
	ledger := repository.NewMemoryLedger()

	extractor := NewIntentExtractor(nil, log)
	extractor.Now = fixedNow

	search := NewSearchService(store, nil, m, log, 5, 20)
	calendar := NewCalendarService(ledger, []string{"10:00", "14:00", "16:00"}, 7)
	calendar.Now = fixedNow
	composer := NewComposer(nil, log)

	svc := NewConversationService(extractor, search, calendar, ledger, composer, nil, m, log)
	svc.Now = fixedNow
	return svc, ledger
}

func TestConversation_FullBookingFlow(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	// Turn 1: initial search.
	reply, state := svc.HandleTurn(ctx, nil, "2 bedroom apartment in Dubai Marina")
	if state.Stage != model.StageBrowsing {
		t.Fatalf("stage = %q, want browsing", state.Stage)
	}
	if len(state.LastResults) != 2 {
		t.Fatalf("got %d results, want 2", len(state.LastResults))
	}
	if state.LastResults[0].PropertyID != "rocky_037" {
		t.Errorf("first result = %s, want rocky_037 (cheaper of the tied pair)", state.LastResults[0].PropertyID)
	}
	if !strings.Contains(reply, "rocky_037") {
		t.Errorf("reply should list rocky_037: %q", reply)
	}

	// Turn 2: refinement keeps bedrooms and location, adds budget and amenities.
	reply, state = svc.HandleTurn(ctx, state, "under 80k yearly with gym and pool")
	if len(state.LastResults) != 1 || state.LastResults[0].PropertyID != "rocky_037" {
		t.Fatalf("refined results = %v, want only rocky_037", state.LastResults)
	}
	if state.ActiveFilter.Bedrooms == nil || *state.ActiveFilter.Bedrooms != 2 {
		t.Error("refinement dropped the bedrooms constraint")
	}

	// Turn 3: detail request by ordinal.
	reply, state = svc.HandleTurn(ctx, state, "tell me more about the first one")
	if state.SelectedProperty != "rocky_037" {
		t.Fatalf("selected = %q, want rocky_037", state.SelectedProperty)
	}
	if !strings.Contains(reply, "75000") {
		t.Errorf("details should include the rent: %q", reply)
	}

	// Turn 4: availability question shows the slot grid.
	reply, state = svc.HandleTurn(ctx, state, "Is it available for tour this week?")
	if state.Stage != model.StageAwaitingTourDate {
		t.Fatalf("stage = %q, want awaiting_tour_date (reply %q)", state.Stage, reply)
	}
	if !strings.Contains(reply, "10:00") || !strings.Contains(reply, "16:00") {
		t.Errorf("reply should show the slot grid: %q", reply)
	}

	// Turn 5: date and time supplied.
	reply, state = svc.HandleTurn(ctx, state, "November 7th at 2pm")
	if state.Stage != model.StageAwaitingContactInfo {
		t.Fatalf("stage = %q, want awaiting_contact_info (reply %q)", state.Stage, reply)
	}
	if state.TourDetails.Date != "2025-11-07" || state.TourDetails.Time != "14:00" {
		t.Fatalf("tour details = %+v", state.TourDetails)
	}

	// Turn 6: contact info completes the booking.
	reply, state = svc.HandleTurn(ctx, state, "Sarah Ahmed, 0501234567")
	if state.Stage != model.StageBookingConfirmed {
		t.Fatalf("stage = %q, want booking_confirmed (reply %q)", state.Stage, reply)
	}
	if !strings.Contains(reply, "rocky_037_2025_11_07_14_00") {
		t.Errorf("reply missing confirmation id: %q", reply)
	}
	if !strings.Contains(reply, "Sarah Ahmed") || !strings.Contains(reply, "0501234567") {
		t.Errorf("reply should echo the captured contact info: %q", reply)
	}
}

func TestConversation_SlotConflictOffersAlternatives(t *testing.T) {
	svc, ledger := newTestAgent(t)
	ctx := context.Background()

	taken := model.TourSlot{PropertyID: "rocky_037", Date: "2025-11-07", Time: "14:00"}
	if _, err := ledger.Reserve(ctx, taken, "Someone Else", "0559999999"); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}

	state := model.NewConversationState()
	state.Stage = model.StageBrowsing
	state.LastResults = []model.PropertyRef{{PropertyID: "rocky_037", Location: "Dubai Marina"}}
	state.SelectedProperty = "rocky_037"
	state.TourDetails = model.TourDetails{PropertyID: "rocky_037"}
	state.LeadInfo = model.LeadInfo{Name: "Sarah Ahmed", Phone: "0501234567"}

	reply, next := svc.HandleTurn(ctx, state, "book it for November 7th at 2pm")
	if next.Stage != model.StageAwaitingTourDate {
		t.Fatalf("stage = %q, want awaiting_tour_date (reply %q)", next.Stage, reply)
	}
	if next.TourDetails.Time != "" {
		t.Error("conflicting time should be cleared for re-prompt")
	}
	if !strings.Contains(strings.ToLower(reply), "taken") {
		t.Errorf("reply should state the slot is taken: %q", reply)
	}
}

func TestConversation_OffGridSlotRejected(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	state := model.NewConversationState()
	state.Stage = model.StageAwaitingTourDate
	state.TourDetails = model.TourDetails{PropertyID: "rocky_037"}
	state.LeadInfo = model.LeadInfo{Name: "Sarah Ahmed", Phone: "0501234567"}

	_, next := svc.HandleTurn(ctx, state, "November 7th at 3pm")
	if next.Stage != model.StageAwaitingTourDate {
		t.Fatalf("stage = %q, want awaiting_tour_date", next.Stage)
	}
	if next.TourDetails.Time != "" || next.TourDetails.Date != "" {
		t.Errorf("rejected slot should be cleared, got %+v", next.TourDetails)
	}
}

func TestConversation_UnknownDoesNotDisturbState(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	state := model.NewConversationState()
	state.Stage = model.StageBrowsing
	state.ActiveFilter = &model.SearchFilter{Bedrooms: intPtr(2), Query: "2 bedroom"}
	state.LastResults = []model.PropertyRef{{PropertyID: "rocky_037", Location: "Dubai Marina"}}

	_, next := svc.HandleTurn(ctx, state, "what is the weather like")
	if next.Stage != model.StageBrowsing {
		t.Errorf("stage = %q, want browsing", next.Stage)
	}
	if len(next.LastResults) != 1 || next.LastResults[0].PropertyID != "rocky_037" {
		t.Errorf("results changed: %v", next.LastResults)
	}
	if next.ActiveFilter.Bedrooms == nil || *next.ActiveFilter.Bedrooms != 2 {
		t.Errorf("filter changed: %+v", next.ActiveFilter)
	}
}

func TestConversation_PrevStateNeverMutated(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	prev := model.NewConversationState()
	prev.Stage = model.StageBrowsing
	prev.ActiveFilter = &model.SearchFilter{Bedrooms: intPtr(2), Query: "2 bedroom"}
	prev.Turns = []model.Turn{{Role: "user", Text: "hello"}}

	_, _ = svc.HandleTurn(ctx, prev, "under 80k yearly")
	if len(prev.Turns) != 1 {
		t.Errorf("prev turns grew to %d", len(prev.Turns))
	}
	if prev.ActiveFilter.MaxYearlyRent != nil {
		t.Error("prev filter gained a rent cap")
	}
}

func TestConversation_ConfirmedStageResetsOnNextSearch(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	state := model.NewConversationState()
	state.Stage = model.StageBookingConfirmed
	state.LeadInfo = model.LeadInfo{Name: "Sarah Ahmed", Phone: "0501234567"}
	state.TourDetails = model.TourDetails{PropertyID: "rocky_037", Date: "2025-11-07", Time: "14:00"}

	_, next := svc.HandleTurn(ctx, state, "show me 1 bedroom apartments in JLT")
	if next.Stage != model.StageBrowsing {
		t.Fatalf("stage = %q, want browsing", next.Stage)
	}
	if next.TourDetails.PropertyID != "" {
		t.Error("tour details should be cleared after confirmation")
	}
	if next.LeadInfo.Name != "Sarah Ahmed" {
		t.Error("lead info should survive into the next browsing cycle")
	}
}

func TestConversation_BareResetDiscardsFilter(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	_, state := svc.HandleTurn(ctx, nil, "2 bedroom apartment in Dubai Marina")
	if state.ActiveFilter == nil {
		t.Fatal("first search should set the active filter")
	}

	// A reset with no new constraints still discards the old filter, even
	// though there is nothing to search for yet.
	reply, state := svc.HandleTurn(ctx, state, "start over")
	if state.ActiveFilter != nil {
		t.Fatalf("active filter should be cleared on reset, got %+v", state.ActiveFilter)
	}
	if state.LastResults != nil {
		t.Errorf("last results should be cleared on reset, got %v", state.LastResults)
	}
	if reply == "" {
		t.Error("reset turn should still reply")
	}

	// The next search starts from scratch: the 1BR JLT listing must not be
	// filtered out by the discarded 2BR Dubai Marina constraints.
	_, state = svc.HandleTurn(ctx, state, "show me apartments in Jumeirah Lake Towers")
	if len(state.LastResults) != 1 || state.LastResults[0].PropertyID != "rocky_202" {
		t.Fatalf("post-reset results = %v, want only rocky_202", state.LastResults)
	}
}

func TestConversation_GreetingOnFirstUnknownTurn(t *testing.T) {
	svc, _ := newTestAgent(t)

	reply, state := svc.HandleTurn(context.Background(), nil, "hello there")
	if state.Stage != model.StageIdle {
		t.Errorf("stage = %q, want idle", state.Stage)
	}
	if !strings.Contains(reply, "Layla") {
		t.Errorf("first-turn greeting should introduce the agent: %q", reply)
	}
	if state.ConversationID == "" {
		t.Error("a fresh conversation should get an id")
	}
}

func TestConversation_AmbiguousDetailAsksWhich(t *testing.T) {
	svc, _ := newTestAgent(t)

	state := model.NewConversationState()
	state.Stage = model.StageBrowsing
	state.LastResults = []model.PropertyRef{
		{PropertyID: "rocky_037", Location: "Dubai Marina"},
		{PropertyID: "rocky_101", Location: "Dubai Marina"},
	}

	reply, next := svc.HandleTurn(context.Background(), state, "tell me more about it")
	if next.SelectedProperty != "" {
		t.Errorf("nothing should be selected, got %q", next.SelectedProperty)
	}
	if !strings.Contains(strings.ToLower(reply), "which") {
		t.Errorf("reply should ask which property: %q", reply)
	}
}

func TestConversation_BookingIdempotentRetryIsConflict(t *testing.T) {
	svc, _ := newTestAgent(t)
	ctx := context.Background()

	state := model.NewConversationState()
	state.Stage = model.StageAwaitingContactInfo
	state.TourDetails = model.TourDetails{PropertyID: "rocky_037", Date: "2025-11-07", Time: "14:00"}

	reply, confirmed := svc.HandleTurn(ctx, state, "Sarah Ahmed, 0501234567")
	if confirmed.Stage != model.StageBookingConfirmed {
		t.Fatalf("stage = %q, want booking_confirmed (reply %q)", confirmed.Stage, reply)
	}

	// Replaying the pre-confirmation state hits the already-held slot.
	reply, again := svc.HandleTurn(ctx, state, "Sarah Ahmed, 0501234567")
	if again.Stage == model.StageBookingConfirmed {
		t.Fatalf("replay must not double book: %q", reply)
	}
	if !strings.Contains(strings.ToLower(reply), "taken") {
		t.Errorf("replay should report the slot as taken: %q", reply)
	}
}

func TestConversation_TourAvailabilityShowsGrid(t *testing.T) {
	svc, ledger := newTestAgent(t)
	ctx := context.Background()

	booked := model.TourSlot{PropertyID: "rocky_037", Date: "2025-10-22", Time: "14:00"}
	if _, err := ledger.Reserve(ctx, booked, "A", "0500000000"); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}

	state := model.NewConversationState()
	state.Stage = model.StageBrowsing
	state.LastResults = []model.PropertyRef{{PropertyID: "rocky_037", Location: "Dubai Marina"}}
	state.SelectedProperty = "rocky_037"

	reply, next := svc.HandleTurn(ctx, state, "when can I come for a viewing?")
	if next.Stage != model.StageAwaitingTourDate {
		t.Fatalf("stage = %q, want awaiting_tour_date", next.Stage)
	}
	if !strings.Contains(reply, "already booked") {
		t.Errorf("reply should flag the booked slot: %q", reply)
	}
	if !strings.Contains(reply, "2025-10-21") {
		t.Errorf("reply should start the grid tomorrow: %q", reply)
	}
}

func TestConversation_NoResultsSuggestsRelaxing(t *testing.T) {
	svc, _ := newTestAgent(t)

	reply, state := svc.HandleTurn(context.Background(), nil, "5 bedroom villa in Al Barari under 40k")
	if state.Stage != model.StageBrowsing {
		t.Errorf("stage = %q, want browsing", state.Stage)
	}
	if len(state.LastResults) != 0 {
		t.Errorf("expected no results, got %v", state.LastResults)
	}
	if !strings.Contains(strings.ToLower(reply), "couldn't find") {
		t.Errorf("reply should state nothing matched: %q", reply)
	}
}
