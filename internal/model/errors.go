package model

import (
	"errors"
	"fmt"
)

// Every failure in the core resolves to a conversational reply; these types
// only decide which reply.
var (
	// ErrSlotTaken is returned when a tour slot already has a booking.
	ErrSlotTaken = errors.New("tour slot already booked")

	// ErrUpstreamUnavailable is returned when the completion or search
	// service fails after the retry. Retryable from the caller's side.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// AmbiguousReferenceError means a user reference ("the first one") could not
// be resolved against the last shown results.
type AmbiguousReferenceError struct {
	Phrase string
}

func (e *AmbiguousReferenceError) Error() string {
	if e.Phrase == "" {
		return "ambiguous property reference"
	}
	return fmt.Sprintf("ambiguous property reference %q", e.Phrase)
}

// ValidationError marks a malformed structured field, such as an unparseable
// date or an empty filter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
