// Package crm publishes captured leads to the CRM intake exchange.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// LeadEvent is the message emitted when a tour booking confirms a lead.
type LeadEvent struct {
	ConversationID string    `json:"conversation_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	PropertyID     string    `json:"property_id"`
	TourDate       string    `json:"tour_date"`
	TourTime       string    `json:"tour_time"`
	ConfirmationID string    `json:"confirmation_id"`
	CapturedAt     time.Time `json:"captured_at"`
}

// Publisher holds the AMQP connection for lead publishing.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewPublisher connects to RabbitMQ and declares the lead exchange.
func NewPublisher(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("crm: failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("crm: failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("crm: failed to declare exchange %q: %w", exchange, err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      log.With().Str("component", "crm").Logger(),
	}, nil
}

// PublishLead publishes a lead event with routing key "lead.booked".
func (p *Publisher) PublishLead(ctx context.Context, event LeadEvent) error {
	if p.channel == nil || p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("crm: not connected")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("crm: failed to marshal lead event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		"lead.booked",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("crm: failed to publish lead: %w", err)
	}

	p.log.Info().
		Str("conversation_id", event.ConversationID).
		Str("confirmation_id", event.ConfirmationID).
		Msg("lead published")
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
