package model

import (
	"fmt"
	"strings"
	"time"
)

// TourSlot is a bookable (property, date, time) tuple. Date is YYYY-MM-DD,
// Time is 24h HH:MM.
type TourSlot struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

// ConfirmationID derives the booking confirmation code from the slot alone.
// It is a pure function, so a stored booking can always re-derive its own
// code: rocky_037 + 2025-11-07 + 14:00 -> rocky_037_2025_11_07_14_00.
func (s TourSlot) ConfirmationID() string {
	raw := fmt.Sprintf("%s_%s_%s", s.PropertyID, s.Date, s.Time)
	raw = strings.ReplaceAll(raw, "-", "_")
	return strings.ReplaceAll(raw, ":", "_")
}

// Validate checks the slot's date and time formats.
func (s TourSlot) Validate() error {
	if s.PropertyID == "" {
		return &ValidationError{Field: "property_id", Reason: "missing"}
	}
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	if _, err := time.Parse("15:04", s.Time); err != nil {
		return &ValidationError{Field: "time", Reason: "expected HH:MM"}
	}
	return nil
}

// Booking is a confirmed tour reservation. Immutable after creation.
type Booking struct {
	TourSlot
	CustomerName   string    `json:"customer_name"`
	CustomerPhone  string    `json:"customer_phone"`
	ConfirmationID string    `json:"confirmation_id"`
	BookedAt       time.Time `json:"booked_at"`
}

// SlotStatus is one cell of the tour slot grid shown to the user.
type SlotStatus struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Booked bool   `json:"booked"`
}
