package domain

import (
	"time"
)

// DateLayout is the wire format of trip dates.
const DateLayout = "2006-01-02"

// Text limits, in characters, matching the column widths of the schema.
const (
	MaxPlaceLen        = 64
	MaxContactNameLen  = 120
	MaxContactEmailLen = 254
)

type Trip struct {
	ID             int64      `json:"id"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	DepartDate     time.Time  `json:"depart_date"`
	ReturnDate     *time.Time `json:"return_date,omitempty"`
	PriceCents     int64      `json:"price_cents"`
	SeatsAvailable int        `json:"seats_available"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TripFilter narrows a trip search. Zero values are ignored.
type TripFilter struct {
	Origin      string     `json:"origin,omitempty"`
	Destination string     `json:"destination,omitempty"`
	DepartDate  *time.Time `json:"depart_date,omitempty"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
}

type Booking struct {
	ID           int64         `json:"-"`
	Reference    string        `json:"reference"`
	UserID       int64         `json:"-"`
	TripID       int64         `json:"trip_id"`
	Travellers   int           `json:"travellers"`
	ContactName  string        `json:"contact_name"`
	ContactEmail string        `json:"contact_email"`
	TotalCents   int64         `json:"total_cents"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BookingWithTrip is a booking joined with the display fields of its trip.
type BookingWithTrip struct {
	Booking
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	DepartDate  time.Time  `json:"depart_date"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
}

// BookingDetail is a booking with its trip fields and audit trail, newest event first.
type BookingDetail struct {
	BookingWithTrip
	Events []BookingEvent `json:"events"`
}

type BookingEvent struct {
	ID        int64     `json:"-"`
	BookingID int64     `json:"-"`
	Kind      EventKind `json:"kind"`
	Note      string    `json:"note"`
	At        time.Time `json:"at"`
}

type EventKind string

const (
	EventCreated   EventKind = "CREATED"
	EventCancelled EventKind = "CANCELLED"
	EventUpdated   EventKind = "UPDATED"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventCancelled, EventUpdated:
		return true
	}
	return false
}
