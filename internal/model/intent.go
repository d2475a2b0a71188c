package model

// IntentKind classifies what a user turn is asking for.
type IntentKind string

const (
	IntentNewSearch        IntentKind = "new_search"
	IntentRefineSearch     IntentKind = "refine_search"
	IntentDetailRequest    IntentKind = "detail_request"
	IntentTourAvailability IntentKind = "tour_availability"
	IntentBookingRequest   IntentKind = "booking_request"
	IntentAcknowledgment   IntentKind = "acknowledgment"
	IntentUnknown          IntentKind = "unknown"
)

// Reference points at a previously shown property, either by 1-based display
// ordinal ("the first one") or by a name fragment ("the one in Marina").
type Reference struct {
	Ordinal int    `json:"ordinal,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Intent is the structured reading of one user turn. Booking fields carry
// whatever was found; missing fields are follow-up questions, not errors.
type Intent struct {
	Kind      IntentKind    `json:"intent"`
	Filter    *SearchFilter `json:"filter,omitempty"`
	Reset     bool          `json:"reset,omitempty"`
	Reference *Reference    `json:"reference,omitempty"`
	Date      string        `json:"date,omitempty"` // YYYY-MM-DD
	Time      string        `json:"time,omitempty"` // HH:MM
	Name      string        `json:"name,omitempty"`
	Phone     string        `json:"phone,omitempty"`
}
