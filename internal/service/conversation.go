package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/crm"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/metrics"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// ConversationService drives one turn of the Layla dialogue: extract the
// intent, advance the state machine, perform the side effect, compose the
// reply. The service itself is stateless; all dialogue state travels in the
// caller-held ConversationState.
type ConversationService struct {
	extractor *IntentExtractor
	search    *SearchService
	calendar  *CalendarService
	ledger    BookingLedger
	composer  *Composer
	leads     LeadPublisher
	metrics   *metrics.Metrics
	log       zerolog.Logger

	Now func() time.Time
}

func NewConversationService(
	extractor *IntentExtractor,
	search *SearchService,
	calendar *CalendarService,
	ledger BookingLedger,
	composer *Composer,
	leads LeadPublisher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *ConversationService {
	return &ConversationService{
		extractor: extractor,
		search:    search,
		calendar:  calendar,
		ledger:    ledger,
		composer:  composer,
		leads:     leads,
		metrics:   m,
		log:       log.With().Str("component", "conversation").Logger(),
		Now:       time.Now,
	}
}

// HandleTurn processes one user message. prev is never mutated; the advanced
// copy is returned alongside the reply.
func (s *ConversationService) HandleTurn(ctx context.Context, prev *model.ConversationState, message string) (string, *model.ConversationState) {
	start := s.Now()
	state := prev.Clone()
	state.Turns = append(state.Turns, model.Turn{Role: "user", Text: message})

	intent := s.extractor.Extract(ctx, state, message)
	s.log.Debug().
		Str("conversation_id", state.ConversationID).
		Str("intent", string(intent.Kind)).
		Str("stage", string(state.Stage)).
		Msg("turn")

	// A confirmed booking is terminal for that tour: the next substantive
	// message starts a fresh browsing cycle with the lead info retained.
	if state.Stage == model.StageBookingConfirmed &&
		intent.Kind != model.IntentAcknowledgment && intent.Kind != model.IntentUnknown {
		state.Stage = model.StageBrowsing
		state.TourDetails = model.TourDetails{}
	}

	var reply string
	switch intent.Kind {
	case model.IntentNewSearch, model.IntentRefineSearch:
		reply = s.handleSearch(ctx, state, intent)
	case model.IntentDetailRequest:
		reply = s.handleDetail(ctx, state, intent)
	case model.IntentTourAvailability:
		reply = s.handleTourAvailability(ctx, state, intent)
	case model.IntentBookingRequest:
		reply = s.handleBooking(ctx, state, intent)
	case model.IntentAcknowledgment:
		reply = s.composer.Ack()
	default:
		if state.Stage == model.StageIdle && len(state.Turns) <= 1 {
			reply = s.composer.Greeting(ctx)
		} else {
			reply = s.composer.Clarify("")
		}
	}

	state.Turns = append(state.Turns, model.Turn{Role: "assistant", Text: reply})
	s.metrics.TurnsTotal.WithLabelValues(string(intent.Kind)).Inc()
	s.metrics.TurnDuration.Observe(s.Now().Sub(start).Seconds())
	return reply, state
}

func (s *ConversationService) handleSearch(ctx context.Context, state *model.ConversationState, intent *model.Intent) string {
	refined := intent.Kind == model.IntentRefineSearch && !intent.Reset
	filter := MergeFilters(state.ActiveFilter, intent.Filter, intent.Reset)

	// A reset discards the prior context even when this turn carries no new
	// constraints, so it must land before any early return below.
	if intent.Reset {
		state.ActiveFilter = nil
		state.LastResults = nil
		state.SelectedProperty = ""
		state.TourDetails = model.TourDetails{}
		state.LeadInfo = model.LeadInfo{}
	}

	results, err := s.search.Search(ctx, filter)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return s.composer.Clarify("")
		}
		s.metrics.UpstreamErrors.Inc()
		return s.composer.TryAgain()
	}

	state.ActiveFilter = filter

	if len(results) == 0 {
		state.LastResults = nil
		state.Stage = model.StageBrowsing
		return s.composer.NoResults(filter)
	}

	refs := make([]model.PropertyRef, len(results))
	for i := range results {
		refs[i] = results[i].Ref()
	}
	state.LastResults = refs
	state.SelectedProperty = ""
	state.Stage = model.StageBrowsing
	return s.composer.Results(ctx, results, refined)
}

func (s *ConversationService) handleDetail(ctx context.Context, state *model.ConversationState, intent *model.Intent) string {
	propertyID, err := s.extractor.ResolveReference(state, intent.Reference)
	if err != nil {
		var aErr *model.AmbiguousReferenceError
		if errors.As(err, &aErr) {
			return s.composer.AmbiguousReference(aErr.Phrase)
		}
		return s.composer.Clarify("")
	}

	listing, err := s.search.GetByID(ctx, propertyID)
	if err != nil {
		s.metrics.UpstreamErrors.Inc()
		return s.composer.TryAgain()
	}
	if listing == nil {
		return s.composer.AmbiguousReference("")
	}

	state.SelectedProperty = listing.PropertyID
	state.TourDetails.PropertyID = listing.PropertyID
	return s.composer.Details(ctx, listing)
}

func (s *ConversationService) handleTourAvailability(ctx context.Context, state *model.ConversationState, intent *model.Intent) string {
	propertyID, err := s.extractor.ResolveReference(state, intent.Reference)
	if err != nil {
		var aErr *model.AmbiguousReferenceError
		if errors.As(err, &aErr) {
			return s.composer.AmbiguousReference(aErr.Phrase)
		}
		return s.composer.Clarify("")
	}

	slots, err := s.calendar.AvailableSlots(ctx, propertyID)
	if err != nil {
		s.metrics.UpstreamErrors.Inc()
		return s.composer.TryAgain()
	}

	state.SelectedProperty = propertyID
	state.TourDetails.PropertyID = propertyID
	state.Stage = model.StageAwaitingTourDate
	return s.composer.Slots(slots)
}

// bookingFieldOrder lists the booking fields in the order the flow asks
// for them.
var bookingFieldOrder = []struct {
	get  func(state *model.ConversationState) string
	want string
}{
	{func(s *model.ConversationState) string { return s.TourDetails.PropertyID }, "the property you'd like to tour"},
	{func(s *model.ConversationState) string { return s.TourDetails.Date }, "a tour date"},
	{func(s *model.ConversationState) string { return s.TourDetails.Time }, "a tour time"},
	{func(s *model.ConversationState) string { return s.LeadInfo.Name }, "your name"},
	{func(s *model.ConversationState) string { return s.LeadInfo.Phone }, "your phone number"},
}

func (s *ConversationService) handleBooking(ctx context.Context, state *model.ConversationState, intent *model.Intent) string {
	// Fold whatever this turn supplied into the accumulated booking state.
	if intent.Date != "" {
		state.TourDetails.Date = intent.Date
	}
	if intent.Time != "" {
		state.TourDetails.Time = intent.Time
	}
	if intent.Name != "" {
		state.LeadInfo.Name = intent.Name
	}
	if intent.Phone != "" {
		state.LeadInfo.Phone = intent.Phone
	}
	if state.TourDetails.PropertyID == "" {
		propertyID, err := s.extractor.ResolveReference(state, intent.Reference)
		if err == nil {
			state.TourDetails.PropertyID = propertyID
			state.SelectedProperty = propertyID
		} else if intent.Reference != nil {
			var aErr *model.AmbiguousReferenceError
			if errors.As(err, &aErr) {
				return s.composer.AmbiguousReference(aErr.Phrase)
			}
		}
	}

	var missing []string
	for _, field := range bookingFieldOrder {
		if field.get(state) == "" {
			missing = append(missing, field.want)
		}
	}
	if len(missing) > 0 {
		if state.TourDetails.Date == "" || state.TourDetails.Time == "" {
			state.Stage = model.StageAwaitingTourDate
		} else {
			state.Stage = model.StageAwaitingContactInfo
		}
		return s.composer.MissingBookingInfo(missing)
	}

	if !s.calendar.SlotOffered(state.TourDetails.Date, state.TourDetails.Time) {
		state.Stage = model.StageAwaitingTourDate
		td := state.TourDetails
		state.TourDetails.Date = ""
		state.TourDetails.Time = ""
		s.log.Debug().Str("date", td.Date).Str("time", td.Time).Msg("rejected off-grid slot")
		return s.composer.InvalidSlot("")
	}

	slot := model.TourSlot{
		PropertyID: state.TourDetails.PropertyID,
		Date:       state.TourDetails.Date,
		Time:       state.TourDetails.Time,
	}
	booking, err := s.ledger.Reserve(ctx, slot, state.LeadInfo.Name, state.LeadInfo.Phone)
	switch {
	case errors.Is(err, model.ErrSlotTaken):
		s.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
		state.Stage = model.StageAwaitingTourDate
		state.TourDetails.Time = ""
		alternatives, altErr := s.calendar.AlternativeSlots(ctx, slot.PropertyID, slot.Date, 3)
		if altErr != nil {
			alternatives = nil
		}
		return s.composer.SlotTaken(slot, alternatives)

	case err != nil:
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			state.Stage = model.StageAwaitingTourDate
			state.TourDetails.Date = ""
			state.TourDetails.Time = ""
			return s.composer.InvalidSlot(vErr.Reason)
		}
		s.metrics.BookingsTotal.WithLabelValues("error").Inc()
		s.metrics.UpstreamErrors.Inc()
		return s.composer.TryAgain()
	}

	s.metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	state.Stage = model.StageBookingConfirmed
	s.publishLead(state, booking)
	return s.composer.BookingConfirmed(ctx, booking)
}

// publishLead ships the booked lead to the CRM asynchronously. The turn
// never waits on, or fails because of, the broker.
func (s *ConversationService) publishLead(state *model.ConversationState, booking *model.Booking) {
	if s.leads == nil {
		return
	}
	event := crm.LeadEvent{
		ConversationID: state.ConversationID,
		Name:           booking.CustomerName,
		Phone:          booking.CustomerPhone,
		PropertyID:     booking.PropertyID,
		TourDate:       booking.Date,
		TourTime:       booking.Time,
		ConfirmationID: booking.ConfirmationID,
		CapturedAt:     booking.BookedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.leads.PublishLead(ctx, event); err != nil {
			s.log.Error().Err(err).
				Str("confirmation_id", event.ConfirmationID).
				Msg("failed to publish lead to CRM")
		}
	}()
}
