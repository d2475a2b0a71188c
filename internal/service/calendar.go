package service

import (
	"context"
	"fmt"
	"time"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// CalendarService materializes the tour slot grid for a property: a fixed
// set of times per day over a rolling window, with booked slots flagged from
// the ledger.
type CalendarService struct {
	ledger     BookingLedger
	slotTimes  []string
	windowDays int

	Now func() time.Time
}

func NewCalendarService(ledger BookingLedger, slotTimes []string, windowDays int) *CalendarService {
	if len(slotTimes) == 0 {
		slotTimes = []string{"10:00", "14:00", "16:00"}
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	return &CalendarService{
		ledger:     ledger,
		slotTimes:  slotTimes,
		windowDays: windowDays,
		Now:        time.Now,
	}
}

// AvailableSlots returns the full grid for the property, starting tomorrow.
func (c *CalendarService) AvailableSlots(ctx context.Context, propertyID string) ([]model.SlotStatus, error) {
	start := c.Now().AddDate(0, 0, 1)
	from := start.Format("2006-01-02")
	to := start.AddDate(0, 0, c.windowDays-1).Format("2006-01-02")

	booked, err := c.ledger.BookedSlots(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", model.ErrUpstreamUnavailable)
	}
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b.Date+" "+b.Time] = true
	}

	grid := make([]model.SlotStatus, 0, c.windowDays*len(c.slotTimes))
	for d := 0; d < c.windowDays; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		for _, t := range c.slotTimes {
			grid = append(grid, model.SlotStatus{
				Date:   date,
				Time:   t,
				Booked: taken[date+" "+t],
			})
		}
	}
	return grid, nil
}

// SlotOffered reports whether the date/time pair falls on the offered grid.
func (c *CalendarService) SlotOffered(date, tm string) bool {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	now := c.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !parsed.After(today) {
		return false
	}
	for _, t := range c.slotTimes {
		if t == tm {
			return true
		}
	}
	return false
}

// AlternativeSlots returns up to n open slots near the requested date,
// preferring the same day.
func (c *CalendarService) AlternativeSlots(ctx context.Context, propertyID, date string, n int) ([]model.SlotStatus, error) {
	grid, err := c.AvailableSlots(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	var sameDay, other []model.SlotStatus
	for _, s := range grid {
		if s.Booked {
			continue
		}
		if s.Date == date {
			sameDay = append(sameDay, s)
		} else {
			other = append(other, s)
		}
	}
	open := append(sameDay, other...)
	if len(open) > n {
		open = open[:n]
	}
	return open, nil
}
