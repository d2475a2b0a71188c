package model

import "github.com/google/uuid"

// Stage names the conversation state machine position.
type Stage string

const (
	StageIdle                Stage = "idle"
	StageBrowsing            Stage = "browsing"
	StageAwaitingTourDate    Stage = "awaiting_tour_date"
	StageAwaitingContactInfo Stage = "awaiting_contact_info"
	StageBookingConfirmed    Stage = "booking_confirmed"
)

// Turn is one utterance in the dialogue.
type Turn struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// LeadInfo holds captured prospect contact details.
type LeadInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// TourDetails accumulates booking fields across turns; any of them may be
// empty until the user supplies it.
type TourDetails struct {
	PropertyID string `json:"property_id,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
}

// ConversationState is the caller-held dialogue state threaded through every
// /api/chat request. The server keeps no session store: each turn receives
// the previous state, copies it, advances the copy and returns it.
type ConversationState struct {
	ConversationID   string        `json:"conversation_id"`
	Stage            Stage         `json:"stage"`
	Turns            []Turn        `json:"turns"`
	LeadInfo         LeadInfo      `json:"lead_info"`
	ActiveFilter     *SearchFilter `json:"active_filter,omitempty"`
	LastResults      []PropertyRef `json:"last_results,omitempty"`
	SelectedProperty string        `json:"selected_property,omitempty"`
	TourDetails      TourDetails   `json:"tour_details"`
}

// NewConversationState returns the initial state for a first turn.
func NewConversationState() *ConversationState {
	return &ConversationState{
		ConversationID: uuid.NewString(),
		Stage:          StageIdle,
	}
}

// Clone returns a deep copy so a turn never mutates the caller's state.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return NewConversationState()
	}
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.LastResults = append([]PropertyRef(nil), s.LastResults...)
	c.ActiveFilter = s.ActiveFilter.Clone()
	if c.ConversationID == "" {
		c.ConversationID = uuid.NewString()
	}
	if c.Stage == "" {
		c.Stage = StageIdle
	}
	return &c
}
