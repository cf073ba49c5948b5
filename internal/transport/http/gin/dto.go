package httpgin

import (
	"time"

	"github.com/kirinyoku/tripgo/internal/domain"
)

type BookRequest struct {
	TripID       int64  `json:"trip_id" binding:"required"`
	Travellers   int    `json:"travellers"`
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
}

type CreateTripRequest struct {
	Origin         string  `json:"origin" binding:"required"`
	Destination    string  `json:"destination" binding:"required"`
	DepartDate     string  `json:"depart_date" binding:"required" example:"2025-09-10"`
	ReturnDate     *string `json:"return_date,omitempty" example:"2025-09-17"`
	Price          string  `json:"price" binding:"required" example:"120.00"`
	SeatsAvailable int     `json:"seats_available" binding:"gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type BookResponse struct {
	Reference  string `json:"reference"`
	Total      string `json:"total"`
	TotalCents int64  `json:"total_cents"`
	Status     string `json:"status"`
}

type CancelResponse struct {
	Detail string `json:"detail"`
}

type CreateTripResponse struct {
	TripID int64 `json:"trip_id"`
}

type TripView struct {
	ID             int64   `json:"id"`
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DepartDate     string  `json:"depart_date"`
	ReturnDate     *string `json:"return_date,omitempty"`
	Price          string  `json:"price"`
	PriceCents     int64   `json:"price_cents"`
	SeatsAvailable int     `json:"seats_available"`
}

type EventView struct {
	Kind string    `json:"kind"`
	Note string    `json:"note"`
	At   time.Time `json:"at"`
}

type BookingView struct {
	Reference    string      `json:"reference"`
	TripID       int64       `json:"trip_id"`
	Origin       string      `json:"origin"`
	Destination  string      `json:"destination"`
	DepartDate   string      `json:"depart_date"`
	ReturnDate   *string     `json:"return_date,omitempty"`
	Travellers   int         `json:"travellers"`
	ContactName  string      `json:"contact_name"`
	ContactEmail string      `json:"contact_email"`
	Total        string      `json:"total"`
	TotalCents   int64       `json:"total_cents"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	Events       []EventView `json:"events"`
}

func tripView(t domain.Trip) TripView {
	return TripView{
		ID:             t.ID,
		Origin:         t.Origin,
		Destination:    t.Destination,
		DepartDate:     t.DepartDate.Format(domain.DateLayout),
		ReturnDate:     formatDate(t.ReturnDate),
		Price:          domain.FormatCents(t.PriceCents),
		PriceCents:     t.PriceCents,
		SeatsAvailable: t.SeatsAvailable,
	}
}

func tripViews(ts []domain.Trip) []TripView {
	out := make([]TripView, len(ts))
	for i, t := range ts {
		out[i] = tripView(t)
	}
	return out
}

func bookingView(d domain.BookingDetail) BookingView {
	evs := make([]EventView, len(d.Events))
	for i, e := range d.Events {
		evs[i] = EventView{Kind: string(e.Kind), Note: e.Note, At: e.At}
	}

	return BookingView{
		Reference:    d.Reference,
		TripID:       d.TripID,
		Origin:       d.Origin,
		Destination:  d.Destination,
		DepartDate:   d.DepartDate.Format(domain.DateLayout),
		ReturnDate:   formatDate(d.ReturnDate),
		Travellers:   d.Travellers,
		ContactName:  d.ContactName,
		ContactEmail: d.ContactEmail,
		Total:        domain.FormatCents(d.TotalCents),
		TotalCents:   d.TotalCents,
		Status:       string(d.Status),
		CreatedAt:    d.CreatedAt,
		Events:       evs,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateLayout)
	return &s
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}
