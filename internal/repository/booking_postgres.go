package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// PostgresLedger records tour bookings. Slot exclusivity rides on the
// (property_id, tour_date, tour_time) primary key: the conditional insert is
// the atomic single-writer-per-slot check, so two concurrent reservations
// for the same slot cannot both succeed.
type PostgresLedger struct {
	db *sqlx.DB
}

// NewPostgresLedger creates a ledger on an existing connection pool.
func NewPostgresLedger(db *sqlx.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Reserve books a slot. Returns model.ErrSlotTaken when the slot already has
// a booking.
func (l *PostgresLedger) Reserve(ctx context.Context, slot model.TourSlot, name, phone string) (*model.Booking, error) {
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		TourSlot:       slot,
		CustomerName:   name,
		CustomerPhone:  phone,
		ConfirmationID: slot.ConfirmationID(),
	}

	query := `
		INSERT INTO tour_bookings
			(property_id, tour_date, tour_time, customer_name, customer_phone, confirmation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, tour_date, tour_time) DO NOTHING
		RETURNING booked_at
	`
	var bookedAt time.Time
	err := l.db.QueryRowxContext(ctx, query,
		slot.PropertyID, slot.Date, slot.Time, name, phone, booking.ConfirmationID,
	).Scan(&bookedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to reserve slot: %w", err)
	}

	booking.BookedAt = bookedAt
	return booking, nil
}

// BookedSlots returns the booked slots for a property within [from, to],
// dates in YYYY-MM-DD.
func (l *PostgresLedger) BookedSlots(ctx context.Context, propertyID, from, to string) ([]model.TourSlot, error) {
	query := `
		SELECT property_id, to_char(tour_date, 'YYYY-MM-DD') AS date, tour_time AS time
		FROM tour_bookings
		WHERE property_id = $1 AND tour_date BETWEEN $2 AND $3
		ORDER BY tour_date, tour_time
	`
	rows, err := l.db.QueryxContext(ctx, query, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	defer rows.Close()

	var slots []model.TourSlot
	for rows.Next() {
		var s model.TourSlot
		if err := rows.Scan(&s.PropertyID, &s.Date, &s.Time); err != nil {
			return nil, fmt.Errorf("failed to scan booked slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}
