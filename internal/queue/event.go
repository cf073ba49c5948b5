// Package queue carries booking lifecycle messages over RabbitMQ.
package queue

import (
	"time"

	"github.com/kirinyoku/tripgo/internal/domain"
)

// BookingQueue is the durable queue every booking message is routed to.
const BookingQueue = "booking.events"

type MessageType string

const (
	TypeBookingConfirmed MessageType = "booking.confirmed"
	TypeBookingCancelled MessageType = "booking.cancelled"
)

// BookingMessage is the JSON body published after a booking commits.
type BookingMessage struct {
	Type       MessageType `json:"type"`
	Reference  string      `json:"reference"`
	UserID     int64       `json:"user_id"`
	TripID     int64       `json:"trip_id"`
	Travellers int         `json:"travellers"`
	TotalCents int64       `json:"total_cents"`
	Status     string      `json:"status"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewBookingMessage describes b in its current status.
func NewBookingMessage(b domain.Booking, at time.Time) BookingMessage {
	typ := TypeBookingConfirmed
	if b.Status == domain.StatusCancelled {
		typ = TypeBookingCancelled
	}

	return BookingMessage{
		Type:       typ,
		Reference:  b.Reference,
		UserID:     b.UserID,
		TripID:     b.TripID,
		Travellers: b.Travellers,
		TotalCents: b.TotalCents,
		Status:     string(b.Status),
		OccurredAt: at.UTC(),
	}
}
