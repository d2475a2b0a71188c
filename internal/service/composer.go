package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// Composer renders replies. Every factual element (rents, ids, dates,
// confirmation numbers) comes from deterministic templates; the completion
// model is only ever asked for a conversational lead-in, and any failure
// there falls back to canned phrasing so facts are never delegated to the
// model.
type Composer struct {
	ai  *OpenAIClient
	log zerolog.Logger
}

func NewComposer(ai *OpenAIClient, log zerolog.Logger) *Composer {
	return &Composer{ai: ai, log: log.With().Str("component", "composer").Logger()}
}

// Results renders a numbered listing summary.
func (c *Composer) Results(ctx context.Context, results []model.SearchResult, refined bool) string {
	var b strings.Builder
	lead := "Here's what I found for you:"
	if refined {
		lead = "Here's what matches your updated criteria:"
	}
	b.WriteString(c.leadIn(ctx, lead, "the agent just ran a property search"))
	b.WriteString("\n\n")
	for i, r := range results {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, r.Location))
		if r.Bedrooms != nil {
			if *r.Bedrooms == 0 {
				b.WriteString(" | Studio")
			} else {
				b.WriteString(fmt.Sprintf(" | %d BR", *r.Bedrooms))
			}
		}
		b.WriteString(fmt.Sprintf(" | AED %.0f/year (ref %s)\n", r.YearlyRent, r.PropertyID))
	}
	b.WriteString("\nWould you like more details on any of these, or shall I book you a tour?")
	return b.String()
}

// NoResults explains an empty search and suggests relaxing constraints.
func (c *Composer) NoResults(filter *model.SearchFilter) string {
	var hints []string
	if filter != nil {
		if filter.MaxYearlyRent != nil {
			hints = append(hints, "raising your budget")
		}
		if filter.Location != nil {
			hints = append(hints, "looking at nearby areas")
		}
		if len(filter.Amenities) > 0 {
			hints = append(hints, "dropping one of the amenities")
		}
	}
	msg := "I couldn't find any properties matching all of that."
	if len(hints) > 0 {
		msg += " You could try " + strings.Join(hints, " or ") + "."
	} else {
		msg += " Could you loosen one of the requirements?"
	}
	return msg
}

// Details renders a single listing in full.
func (c *Composer) Details(ctx context.Context, l *model.PropertyListing) string {
	var b strings.Builder
	b.WriteString(c.leadIn(ctx, "Here are the details:", "the agent is describing one property"))
	b.WriteString(fmt.Sprintf("\n\n%s (ref %s)\n", l.Location, l.PropertyID))
	if l.Bedrooms != nil {
		if *l.Bedrooms == 0 {
			b.WriteString("Studio")
		} else {
			b.WriteString(fmt.Sprintf("%d bedroom", *l.Bedrooms))
		}
		if l.Bathrooms != nil {
			b.WriteString(fmt.Sprintf(", %d bathroom", *l.Bathrooms))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("AED %.0f/year (AED %.0f/month)\n", l.YearlyRent, l.MonthlyRent))
	if l.Sqft != nil {
		b.WriteString(fmt.Sprintf("%.0f sqft\n", *l.Sqft))
	}
	if len(l.Amenities) > 0 {
		b.WriteString("Amenities: " + strings.Join(l.Amenities, ", ") + "\n")
	}
	if l.Description != nil && *l.Description != "" {
		b.WriteString(*l.Description + "\n")
	}
	b.WriteString("\nWould you like to book a tour?")
	return b.String()
}

// Slots renders the availability grid, flagging taken slots.
func (c *Composer) Slots(slots []model.SlotStatus) string {
	var b strings.Builder
	b.WriteString("Here are the available tour times:\n\n")
	byDate := map[string][]string{}
	var order []string
	for _, s := range slots {
		if _, seen := byDate[s.Date]; !seen {
			order = append(order, s.Date)
		}
		entry := s.Time
		if s.Booked {
			entry += " (already booked)"
		}
		byDate[s.Date] = append(byDate[s.Date], entry)
	}
	for _, d := range order {
		b.WriteString(fmt.Sprintf("%s: %s\n", d, strings.Join(byDate[d], ", ")))
	}
	b.WriteString("\nWhich day and time work for you?")
	return b.String()
}

// BookingConfirmed echoes back every booking fact including the
// confirmation id.
func (c *Composer) BookingConfirmed(ctx context.Context, booking *model.Booking) string {
	lead := c.leadIn(ctx, "You're all set!", "the agent just confirmed a tour booking")
	return fmt.Sprintf(
		"%s Your tour is booked:\n\nProperty: %s\nDate: %s\nTime: %s\nName: %s\nPhone: %s\nConfirmation ID: %s\n\nSee you there!",
		lead, booking.PropertyID, booking.Date, booking.Time,
		booking.CustomerName, booking.CustomerPhone, booking.ConfirmationID)
}

// MissingBookingInfo prompts for the fields still needed.
func (c *Composer) MissingBookingInfo(missing []string) string {
	switch len(missing) {
	case 0:
		return "What else can I help you with?"
	case 1:
		return fmt.Sprintf("Almost there! I just need %s to book your tour.", missing[0])
	default:
		last := missing[len(missing)-1]
		rest := strings.Join(missing[:len(missing)-1], ", ")
		return fmt.Sprintf("To book your tour I still need %s and %s.", rest, last)
	}
}

// SlotTaken reports the conflict and offers open alternatives.
func (c *Composer) SlotTaken(slot model.TourSlot, alternatives []model.SlotStatus) string {
	msg := fmt.Sprintf("I'm sorry, the %s slot on %s has just been taken.", slot.Time, slot.Date)
	if len(alternatives) > 0 {
		var opts []string
		for _, a := range alternatives {
			opts = append(opts, fmt.Sprintf("%s at %s", a.Date, a.Time))
		}
		msg += " How about " + strings.Join(opts, ", or ") + "?"
	} else {
		msg += " Would another day work for you?"
	}
	return msg
}

// Clarify asks for a usable constraint or an unambiguous reference.
func (c *Composer) Clarify(reason string) string {
	if reason == "" {
		return "Could you tell me a bit more about what you're looking for? An area, a budget, or the number of bedrooms helps."
	}
	return reason
}

// AmbiguousReference asks which listing the user meant.
func (c *Composer) AmbiguousReference(phrase string) string {
	if phrase == "" {
		return "Which property do you mean? You can say the number from the list, like \"the first one\"."
	}
	return fmt.Sprintf("I'm not sure which property you mean by %q. You can say the number from the list, like \"the first one\".", phrase)
}

// TryAgain covers transient upstream failures without leaking details.
func (c *Composer) TryAgain() string {
	return "Sorry, I'm having trouble reaching our listings right now. Please try again in a moment."
}

// InvalidSlot re-prompts after a malformed or past date/time.
func (c *Composer) InvalidSlot(reason string) string {
	if reason == "" {
		reason = "that date or time doesn't look right"
	}
	return fmt.Sprintf("Sorry, %s. Tours run at 10:00, 14:00 and 16:00 on future dates. When would you like to come?", reason)
}

// Greeting opens a fresh conversation.
func (c *Composer) Greeting(ctx context.Context) string {
	return c.leadIn(ctx,
		"Hi, I'm Layla from Rocky Real Estate! Tell me what you're looking for and I'll find you a home. An area, budget, or number of bedrooms is a great start.",
		"the agent is greeting a new customer")
}

// Ack closes out a thank-you turn.
func (c *Composer) Ack() string {
	return "You're welcome! Let me know if there's anything else I can help with."
}

// leadIn asks the model to rephrase the canned lead conversationally. The
// canned text is the only source of truth; on any failure it is returned
// verbatim.
func (c *Composer) leadIn(ctx context.Context, canned, situation string) string {
	if !c.ai.IsEnabled() {
		return canned
	}
	resp, err := c.ai.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: "You are Layla, a warm, professional leasing agent for Rocky Real Estate in Dubai. Rephrase the given sentence in your own friendly voice. Keep it to one short sentence. Do not add any facts, numbers, names or property details."},
			{Role: "user", Content: fmt.Sprintf("Situation: %s\nSentence: %s", situation, canned)},
		},
		MaxTokens:   60,
		Temperature: 0.7,
	})
	if err != nil || len(resp.Choices) == 0 {
		c.log.Debug().Err(err).Msg("lead-in rephrase failed, using canned text")
		return canned
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" || len(out) > 300 {
		return canned
	}
	return out
}
