package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/utils"
)

// IntentExtractor turns a free-text user turn into a structured intent. The
// primary path asks the completion model for JSON and strictly validates it;
// the rule path covers AI-disabled runs and any extraction the model gets
// wrong. Raw model output is never trusted as structured data.
type IntentExtractor struct {
	ai  *OpenAIClient
	log zerolog.Logger

	// Now is swappable for deterministic date resolution in tests.
	Now func() time.Time
}

// NewIntentExtractor creates an extractor. ai may be nil.
func NewIntentExtractor(ai *OpenAIClient, log zerolog.Logger) *IntentExtractor {
	return &IntentExtractor{
		ai:  ai,
		log: log.With().Str("component", "intent").Logger(),
		Now: time.Now,
	}
}

// Extract parses one user turn against the current conversation state.
// Extraction never fails: an unusable model response falls back to the
// deterministic rules, and an unclassifiable message comes back as Unknown.
func (e *IntentExtractor) Extract(ctx context.Context, state *model.ConversationState, message string) *model.Intent {
	if e.ai.IsEnabled() {
		intent, err := e.extractWithAI(ctx, state, message)
		if err == nil {
			return intent
		}
		e.log.Warn().Err(err).Msg("AI intent extraction failed, falling back to rules")
	}
	return e.extractWithRules(state, message)
}

// ResolveReference maps a user reference onto a property id using the last
// shown results. A nil reference falls back to the selected property.
func (e *IntentExtractor) ResolveReference(state *model.ConversationState, ref *model.Reference) (string, error) {
	if ref == nil {
		if state.SelectedProperty != "" {
			return state.SelectedProperty, nil
		}
		if len(state.LastResults) == 1 {
			return state.LastResults[0].PropertyID, nil
		}
		return "", &model.AmbiguousReferenceError{}
	}

	if ref.Ordinal != 0 {
		if len(state.LastResults) == 0 {
			return "", &model.AmbiguousReferenceError{Phrase: fmt.Sprintf("#%d", ref.Ordinal)}
		}
		idx := ref.Ordinal - 1
		if ref.Ordinal < 0 { // "the last one"
			idx = len(state.LastResults) + ref.Ordinal
		}
		if idx < 0 || idx >= len(state.LastResults) {
			return "", &model.AmbiguousReferenceError{Phrase: fmt.Sprintf("#%d", ref.Ordinal)}
		}
		return state.LastResults[idx].PropertyID, nil
	}

	if ref.Name != "" {
		needle := strings.ToLower(strings.TrimSpace(ref.Name))
		match := ""
		for _, r := range state.LastResults {
			if strings.Contains(strings.ToLower(r.Location), needle) ||
				strings.EqualFold(r.PropertyID, needle) {
				if match != "" && match != r.PropertyID {
					return "", &model.AmbiguousReferenceError{Phrase: ref.Name}
				}
				match = r.PropertyID
			}
		}
		if match != "" {
			return match, nil
		}
		return "", &model.AmbiguousReferenceError{Phrase: ref.Name}
	}

	return e.ResolveReference(state, nil)
}

// --- AI path ---

const intentSystemPrompt = `You are the intent parser for Layla, a leasing agent for Rocky Real Estate in Dubai. Read the user's latest message in the context of the conversation and respond ONLY with a JSON object:

{
  "intent": "new_search" | "refine_search" | "detail_request" | "tour_availability" | "booking_request" | "acknowledgment" | "unknown",
  "reset": boolean (true only for explicit "start over" style requests),
  "reference": {"ordinal": 1-based position like "the first one", "name": location fragment like "the one in Marina"},
  "filter": {
    "bedrooms": integer (studio = 0),
    "bathrooms": integer,
    "max_yearly_rent": number in AED ("80k yearly" = 80000, monthly figures times 12),
    "min_yearly_rent": number in AED,
    "location": area name,
    "furnished": boolean,
    "parking": boolean,
    "amenities": array of required amenities like ["gym", "pool"],
    "query": short free-text phrase for semantic search
  },
  "date": "YYYY-MM-DD" (resolve "November 7th" to the next such date),
  "time": "HH:MM" 24-hour ("2pm" = "14:00"),
  "name": customer name if stated,
  "phone": customer phone if stated
}

Rules:
- Omit any field that is not present in the message.
- "refine_search" when the user adds constraints on top of shown results; "new_search" otherwise.
- Messages that only supply a date/time or name/phone during booking are "booking_request".
- Never invent values.

Examples:
Message: "2 bedroom apartment in Dubai Marina"
Response: {"intent": "new_search", "filter": {"bedrooms": 2, "location": "Dubai Marina", "query": "2 bedroom apartment in Dubai Marina"}}

Message: "under 80k yearly with gym and pool"
Response: {"intent": "refine_search", "filter": {"max_yearly_rent": 80000, "amenities": ["gym", "pool"], "query": "gym and pool"}}

Message: "Tell me more about the first one"
Response: {"intent": "detail_request", "reference": {"ordinal": 1}}

Message: "Is it available for tour this week?"
Response: {"intent": "tour_availability"}

Message: "November 7th at 2pm"
Response: {"intent": "booking_request", "date": "2025-11-07", "time": "14:00"}

Message: "Sarah Ahmed, 0501234567"
Response: {"intent": "booking_request", "name": "Sarah Ahmed", "phone": "0501234567"}`

func (e *IntentExtractor) extractWithAI(ctx context.Context, state *model.ConversationState, message string) (*model.Intent, error) {
	user := fmt.Sprintf("Conversation stage: %s\nShown results: %d\nToday: %s\nMessage: %s",
		state.Stage, len(state.LastResults), e.Now().Format("2006-01-02"), message)

	resp, err := e.ai.ChatCompletion(ctx, ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: intentSystemPrompt},
			{Role: "user", Content: user},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var intent model.Intent
	content := resp.Choices[0].Message.Content
	if err := utils.ParseAIJSON(content, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse intent JSON: %w", err)
	}

	if err := e.validate(&intent); err != nil {
		return nil, fmt.Errorf("intent validation failed: %w", err)
	}
	return &intent, nil
}

var placeholderNames = map[string]bool{
	"layla": true, "customer": true, "user": true, "test": true,
	"demo": true, "example": true, "placeholder": true,
}

// validate applies type/range checks to extracted fields. Anything the model
// got wrong is rejected wholesale so the rule path can take over.
func (e *IntentExtractor) validate(intent *model.Intent) error {
	switch intent.Kind {
	case model.IntentNewSearch, model.IntentRefineSearch, model.IntentDetailRequest,
		model.IntentTourAvailability, model.IntentBookingRequest,
		model.IntentAcknowledgment, model.IntentUnknown:
	default:
		return fmt.Errorf("unknown intent kind %q", intent.Kind)
	}

	if f := intent.Filter; f != nil {
		if f.Bedrooms != nil && (*f.Bedrooms < 0 || *f.Bedrooms > 10) {
			return fmt.Errorf("bedrooms out of range")
		}
		if f.Bathrooms != nil && (*f.Bathrooms < 0 || *f.Bathrooms > 10) {
			return fmt.Errorf("bathrooms out of range")
		}
		if f.MaxYearlyRent != nil && *f.MaxYearlyRent <= 0 {
			return fmt.Errorf("max_yearly_rent must be positive")
		}
		if f.MinYearlyRent != nil && *f.MinYearlyRent < 0 {
			return fmt.Errorf("min_yearly_rent must be non-negative")
		}
		if f.MinYearlyRent != nil && f.MaxYearlyRent != nil && *f.MinYearlyRent > *f.MaxYearlyRent {
			return fmt.Errorf("min_yearly_rent above max_yearly_rent")
		}
		for i, a := range f.Amenities {
			f.Amenities[i] = utils.NormalizeAmenity(a)
		}
	}

	if intent.Date != "" {
		if _, err := time.Parse("2006-01-02", intent.Date); err != nil {
			return fmt.Errorf("bad date %q", intent.Date)
		}
	}
	if intent.Time != "" {
		if _, err := time.Parse("15:04", intent.Time); err != nil {
			return fmt.Errorf("bad time %q", intent.Time)
		}
	}
	if intent.Phone != "" {
		digits := strings.Map(keepDigits, intent.Phone)
		if len(digits) < 8 || len(digits) > 13 {
			return fmt.Errorf("bad phone %q", intent.Phone)
		}
		intent.Phone = digits
	}
	if intent.Name != "" && placeholderNames[strings.ToLower(intent.Name)] {
		intent.Name = ""
	}
	if intent.Reference != nil && intent.Reference.Ordinal == 0 && intent.Reference.Name == "" {
		intent.Reference = nil
	}
	return nil
}

// --- rule path ---

var (
	resetRe    = regexp.MustCompile(`(?i)\b(start over|start again|new search|reset|forget (that|it|everything))\b`)
	bookRe     = regexp.MustCompile(`(?i)\b(book|reserve|schedule)\b`)
	tourRe     = regexp.MustCompile(`(?i)\b(tour|viewing|visit)\b`)
	detailRe   = regexp.MustCompile(`(?i)\b(tell me more|more about|more details|details|describe|what about)\b`)
	searchRe   = regexp.MustCompile(`(?i)\b(show|find|search|looking for|do you have|any|apartment|apartments|property|properties|villa|flat|studio|place)\b`)
	ackRe      = regexp.MustCompile(`(?i)^\W*(thanks|thank you|ok|okay|great|perfect|awesome|cool|got it|sounds good|bye|goodbye)\b`)
	ordinalRe  = regexp.MustCompile(`(?i)\b(first|1st|second|2nd|third|3rd|fourth|4th|fifth|5th|last)\s+(one|property|listing|option|result)?\b`)
	bedroomRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:-|\s)?\s*(?:bed(?:room)?s?|br)\b`)
	bathroomRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:-|\s)?\s*bath(?:room)?s?\b`)
	maxRentRe  = regexp.MustCompile(`(?i)\b(?:under|below|less than|max(?:imum)?|up to|within)\s*(?:aed\s*)?(\d+(?:[.,]\d+)?)\s*(k)?\b`)
	minRentRe  = regexp.MustCompile(`(?i)\b(?:over|above|more than|at least|min(?:imum)?)\s*(?:aed\s*)?(\d+(?:[.,]\d+)?)\s*(k)?\b`)
	monthlyRe  = regexp.MustCompile(`(?i)\b(monthly|per month|/month|a month)\b`)
	locationRe = regexp.MustCompile(`(?i)\bin\s+([A-Za-z][A-Za-z ]{2,40})`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\b\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	timeRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	time24Re   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	nameRe     = regexp.MustCompile(`(?i)\b(?:my name is|call me)\s+([A-Za-z][A-Za-z'. -]{1,40})`)
	// "i'm"-style prefixes introduce arbitrary prose at least as often as a
	// name, so the capture is restricted to title-cased tokens.
	casedNameRe = regexp.MustCompile(`\b(?i:i am|i'm|this is)\s+([A-Z][a-z'.-]+(?:\s+[A-Z][A-Za-z'.-]+){0,3})`)
	phoneRe     = regexp.MustCompile(`(?i)\b(?:phone|mobile|number|reach me at|contact me at)\D{0,12}(\+?\d[\d -]{6,14}\d)`)
	commaRe     = regexp.MustCompile(`([A-Za-z][A-Za-z'. -]{1,40}?)\s*,\s*(\+?\d[\d -]{6,14}\d)\s*$`)
	barePhone   = regexp.MustCompile(`\b(\+?\d{8,13})\b`)
	refNameRe   = regexp.MustCompile(`(?i)\bthe one in\s+([A-Za-z][A-Za-z ]{2,40})`)
)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func (e *IntentExtractor) extractWithRules(state *model.ConversationState, message string) *model.Intent {
	text := strings.TrimSpace(message)
	lower := strings.ToLower(text)

	intent := &model.Intent{Kind: model.IntentUnknown}
	intent.Reset = resetRe.MatchString(lower)
	intent.Date = e.parseDate(lower)
	intent.Time = parseClockTime(text)
	intent.Reference = parseReference(lower)
	intent.Filter = parseFilter(text)

	name, phone := parseContact(text, state.Stage == model.StageAwaitingContactInfo)
	intent.Name, intent.Phone = name, phone

	switch {
	case intent.Reset:
		intent.Kind = model.IntentNewSearch

	case state.Stage == model.StageAwaitingContactInfo && (intent.Name != "" || intent.Phone != ""):
		intent.Kind = model.IntentBookingRequest

	case state.Stage == model.StageAwaitingTourDate && (intent.Date != "" || intent.Time != ""):
		intent.Kind = model.IntentBookingRequest

	case bookRe.MatchString(lower):
		intent.Kind = model.IntentBookingRequest

	case (intent.Date != "" || intent.Time != "") && intent.Filter == nil:
		intent.Kind = model.IntentBookingRequest

	case tourRe.MatchString(lower):
		intent.Kind = model.IntentTourAvailability

	case detailRe.MatchString(lower):
		intent.Kind = model.IntentDetailRequest

	case intent.Filter != nil:
		if state.ActiveFilter != nil && state.Stage == model.StageBrowsing {
			intent.Kind = model.IntentRefineSearch
		} else {
			intent.Kind = model.IntentNewSearch
		}

	case intent.Reference != nil:
		intent.Kind = model.IntentDetailRequest

	case ackRe.MatchString(lower):
		intent.Kind = model.IntentAcknowledgment
	}

	return intent
}

// parseDate resolves ISO dates, month-day phrases and today/tomorrow.
// A month-day with no year resolves to its next occurrence.
func (e *IntentExtractor) parseDate(lower string) string {
	if m := isoDateRe.FindStringSubmatch(lower); m != nil {
		if _, err := time.Parse("2006-01-02", m[1]); err == nil {
			return m[1]
		}
	}

	now := e.Now()
	if m := monthDayRe.FindStringSubmatch(lower); m != nil {
		month, ok := monthNumbers[strings.ToLower(m[1])[:3]]
		if !ok {
			return ""
		}
		day, err := strconv.Atoi(m[2])
		if err != nil || day < 1 || day > 31 {
			return ""
		}
		date := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if date.Before(today) {
			date = date.AddDate(1, 0, 0)
		}
		if date.Day() != day { // e.g. February 30
			return ""
		}
		return date.Format("2006-01-02")
	}

	if strings.Contains(lower, "tomorrow") {
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}
	if strings.Contains(lower, "today") {
		return now.Format("2006-01-02")
	}
	return ""
}

// parseClockTime resolves "2pm", "2:30 pm" and 24h "14:00" forms.
func parseClockTime(text string) string {
	if m := timeRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return ""
		}
		switch strings.ToLower(m[3]) {
		case "pm":
			if hour != 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}

	if m := time24Re.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return ""
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	return ""
}

func parseReference(lower string) *model.Reference {
	if m := ordinalRe.FindStringSubmatch(lower); m != nil {
		switch strings.ToLower(m[1]) {
		case "first", "1st":
			return &model.Reference{Ordinal: 1}
		case "second", "2nd":
			return &model.Reference{Ordinal: 2}
		case "third", "3rd":
			return &model.Reference{Ordinal: 3}
		case "fourth", "4th":
			return &model.Reference{Ordinal: 4}
		case "fifth", "5th":
			return &model.Reference{Ordinal: 5}
		case "last":
			return &model.Reference{Ordinal: -1}
		}
	}
	if m := refNameRe.FindStringSubmatch(lower); m != nil {
		return &model.Reference{Name: strings.TrimSpace(m[1])}
	}
	return nil
}

// locationStopWords rejects captures like "in this week" and trims the
// capture at the first constraint keyword.
var locationStopWords = []string{
	" with ", " under ", " below ", " over ", " above ", " for ", " that ",
	" around ", " near ", " at ", " and ", " within ",
}

var locationRejects = map[string]bool{
	"this": true, "the": true, "a": true, "my": true, "that": true,
	"next": true, "general": true, "total": true, "person": true,
}

func parseLocation(text string) *string {
	m := locationRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	candidate := " " + m[1] + " "
	for _, stop := range locationStopWords {
		if idx := strings.Index(strings.ToLower(candidate), stop); idx >= 0 {
			candidate = candidate[:idx]
		}
	}
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil
	}
	first := strings.ToLower(strings.Fields(candidate)[0])
	if locationRejects[first] {
		return nil
	}
	return &candidate
}

// amenityKeywords are the phrasings the rule path recognizes as amenity
// requirements.
var amenityKeywords = []string{
	"gym", "pool", "balcony", "sea view", "marina view", "maid", "sauna",
	"bbq", "playground", "security",
}

// parseFilter extracts structured constraints. Returns nil when the message
// carries neither a structured field nor search phrasing, so that pure
// booking or reference turns do not look like searches.
func parseFilter(text string) *model.SearchFilter {
	lower := strings.ToLower(text)
	f := &model.SearchFilter{}
	found := false

	if m := bedroomRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 10 {
			f.Bedrooms = &n
			found = true
		}
	} else if strings.Contains(lower, "studio") {
		zero := 0
		f.Bedrooms = &zero
		found = true
	}

	if m := bathroomRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 10 {
			f.Bathrooms = &n
			found = true
		}
	}

	monthly := monthlyRe.MatchString(lower)
	if m := maxRentRe.FindStringSubmatch(lower); m != nil {
		if v, ok := parseMoney(m[1], m[2], monthly); ok {
			f.MaxYearlyRent = &v
			found = true
		}
	}
	if m := minRentRe.FindStringSubmatch(lower); m != nil {
		if v, ok := parseMoney(m[1], m[2], monthly); ok {
			f.MinYearlyRent = &v
			found = true
		}
	}

	if loc := parseLocation(text); loc != nil {
		f.Location = loc
		found = true
	}

	for _, kw := range amenityKeywords {
		if strings.Contains(lower, kw) {
			f.Amenities = append(f.Amenities, utils.NormalizeAmenity(kw))
			found = true
		}
	}
	if strings.Contains(lower, "unfurnished") {
		v := false
		f.Furnished = &v
		found = true
	} else if strings.Contains(lower, "furnished") {
		v := true
		f.Furnished = &v
		found = true
	}
	if strings.Contains(lower, "parking") {
		v := true
		f.Parking = &v
		found = true
	}

	if !found && !searchRe.MatchString(lower) {
		return nil
	}
	f.Query = text
	return f
}

// parseMoney converts "80", "80k", "1,500" with an optional monthly context
// into a yearly AED amount.
func parseMoney(num, kSuffix string, monthly bool) (float64, bool) {
	num = strings.ReplaceAll(num, ",", "")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if kSuffix != "" {
		v *= 1000
	}
	if monthly {
		v *= 12
	}
	// Bare small numbers ("under 3 bedrooms") are not prices.
	if v < 100 {
		return 0, false
	}
	return v, true
}

func parseContact(text string, expectingContact bool) (name, phone string) {
	if m := commaRe.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if !placeholderNames[strings.ToLower(candidate)] {
			name = candidate
		}
		phone = strings.Map(keepDigits, m[2])
	}

	if name == "" {
		if m := nameRe.FindStringSubmatch(text); m != nil {
			candidate := m[1] + " "
			// Trim a trailing "and my phone ..." continuation.
			for _, stop := range []string{" and ", " phone", " my "} {
				if idx := strings.Index(strings.ToLower(candidate), stop); idx >= 0 {
					candidate = candidate[:idx] + " "
				}
			}
			candidate = strings.TrimSpace(candidate)
			// Two-letter captures are prepositions, not names.
			if len(candidate) >= 3 && !placeholderNames[strings.ToLower(candidate)] {
				name = candidate
			}
		}
	}
	if name == "" {
		if m := casedNameRe.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			if len(candidate) >= 3 && !placeholderNames[strings.ToLower(candidate)] {
				name = candidate
			}
		}
	}

	if phone == "" {
		if m := phoneRe.FindStringSubmatch(text); m != nil {
			phone = strings.Map(keepDigits, m[1])
		} else if expectingContact {
			if m := barePhone.FindStringSubmatch(text); m != nil {
				phone = strings.Map(keepDigits, m[1])
			}
		}
	}

	if phone != "" && (len(phone) < 8 || len(phone) > 13) {
		phone = ""
	}
	return name, phone
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}
