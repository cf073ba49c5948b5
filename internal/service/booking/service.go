// Package booking is the ledger of trip bookings.
//
// A booking is created together with its seat reservation and its CREATED
// event in one transaction, and cancelled together with the seat release and
// its CANCELLED event in another. Nothing is ever partially applied.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/queue"
	"github.com/kirinyoku/tripgo/internal/repository"
	redisrepo "github.com/kirinyoku/tripgo/internal/repository/redis"
	"github.com/kirinyoku/tripgo/internal/service/eventlog"
	"github.com/kirinyoku/tripgo/internal/service/inventory"
	"github.com/kirinyoku/tripgo/internal/uow"
)

const (
	NoteCreated   = "Booking confirmed"
	NoteCancelled = "Cancelled by user"
)

// Limiter throttles booking attempts per principal.
type Limiter interface {
	Allow(ctx context.Context, id string) (redisrepo.Decision, error)
}

// Publisher receives booking lifecycle messages after commit.
type Publisher interface {
	PublishBooking(ctx context.Context, msg queue.BookingMessage) error
}

type Config struct {
	// MaxTravellers caps the party size of one booking.
	MaxTravellers int
	// ReferenceAttempts bounds the generate and check loop for references.
	ReferenceAttempts int
	NewReference      domain.ReferenceGenerator
	Now               func() time.Time
}

type Service struct {
	store     repository.Store
	uow       *uow.UoW
	inventory *inventory.Service
	events    *eventlog.Service
	limiter   Limiter
	publisher Publisher
	validate  *validator.Validate
	logger    *slog.Logger
	cfg       Config
}

// New builds the ledger. limiter and publisher may be nil.
func New(
	store repository.Store,
	inv *inventory.Service,
	events *eventlog.Service,
	limiter Limiter,
	publisher Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.MaxTravellers <= 0 {
		cfg.MaxTravellers = 9
	}

	if cfg.ReferenceAttempts <= 0 {
		cfg.ReferenceAttempts = 5
	}

	if cfg.NewReference == nil {
		cfg.NewReference = domain.NewReference
	}

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Service{
		store:     store,
		uow:       uow.NewUoW(store),
		inventory: inv,
		events:    events,
		limiter:   limiter,
		publisher: publisher,
		validate:  v,
		logger:    logger,
		cfg:       cfg,
	}
}

type BookRequest struct {
	TripID       int64  `json:"trip_id" validate:"gt=0"`
	Travellers   int    `json:"travellers" validate:"gte=1"`
	ContactName  string `json:"contact_name" validate:"required,max=120"`
	ContactEmail string `json:"contact_email" validate:"required,email,max=254"`
}

// Book reserves seats and records a confirmed booking for userID.
//
// Parameters:
//   - ctx: request-scoped context.
//   - userID: the principal placing the booking.
//   - req: trip, party size and contact details.
//
// Returns:
//   - *domain.Booking: the confirmed booking with its reference and total.
//   - error: booking.ErrInvalidInput (*InvalidInputError) for bad input; the
//     store is not touched then.
//   - error: booking.ErrTripNotFound if the trip does not exist.
//   - error: booking.ErrInsufficientInventory (*inventory.InsufficientInventoryError)
//     if the trip has fewer seats than travellers.
//   - error: booking.ErrRateLimited (*RateLimitedError) when throttled.
func (s *Service) Book(ctx context.Context, userID int64, req BookRequest) (*domain.Booking, error) {
	const op = "service.booking.Book"

	req.ContactName = strings.TrimSpace(req.ContactName)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)

	if err := s.validateRequest(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.throttle(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out domain.Booking

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		trip, ok, err := s.inventory.ReserveTx(ctx, tx, after, req.TripID, req.Travellers)
		if err != nil {
			return err
		}
		if !ok {
			return &inventory.InsufficientInventoryError{
				TripID:    req.TripID,
				Requested: req.Travellers,
				Available: trip.SeatsAvailable,
			}
		}

		total, err := domain.MulCents(trip.PriceCents, req.Travellers)
		if err != nil {
			return err
		}

		ref, err := s.allocateReference(ctx, tx)
		if err != nil {
			return err
		}

		now := s.cfg.Now()
		b := domain.Booking{
			Reference:    ref,
			UserID:       userID,
			TripID:       req.TripID,
			Travellers:   req.Travellers,
			ContactName:  req.ContactName,
			ContactEmail: req.ContactEmail,
			TotalCents:   total,
			Status:       domain.StatusConfirmed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		id, err := tx.Bookings().Create(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id

		if _, err := s.events.AppendTx(ctx, tx, id, domain.EventCreated, NoteCreated); err != nil {
			return err
		}

		out = b
		s.publishAfter(after, b, now)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("booking confirmed",
		"reference", out.Reference,
		"trip_id", out.TripID,
		"travellers", out.Travellers,
	)

	return &out, nil
}

type CancelResult int

const (
	Cancelled CancelResult = iota + 1
	AlreadyCancelled
)

func (r CancelResult) String() string {
	switch r {
	case Cancelled:
		return "cancelled"
	case AlreadyCancelled:
		return "already_cancelled"
	}
	return "unknown"
}

// Cancel cancels the booking identified by reference if userID owns it.
//
// Returns:
//   - CancelResult: Cancelled, or AlreadyCancelled when the booking was
//     cancelled before; nothing changes in that case.
//   - error: booking.ErrBookingNotFound if the booking does not exist or
//     belongs to someone else.
func (s *Service) Cancel(ctx context.Context, reference string, userID int64) (CancelResult, error) {
	const op = "service.booking.Cancel"

	var res CancelResult

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		b, err := tx.Bookings().GetForUpdate(ctx, reference, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		changed, err := b.Status.Transition(domain.StatusCancelled)
		if err != nil {
			return err
		}
		if !changed {
			res = AlreadyCancelled
			return nil
		}

		if _, err := s.inventory.ReleaseTx(ctx, tx, after, b.TripID, b.Travellers); err != nil {
			return err
		}

		now := s.cfg.Now()
		if err := tx.Bookings().UpdateStatus(ctx, b.ID, domain.StatusCancelled, now); err != nil {
			return err
		}

		if _, err := s.events.AppendTx(ctx, tx, b.ID, domain.EventCancelled, NoteCancelled); err != nil {
			return err
		}

		b.Status = domain.StatusCancelled
		b.UpdatedAt = now
		s.publishAfter(after, *b, now)

		res = Cancelled
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if res == Cancelled {
		s.logger.Info("booking cancelled", "reference", reference)
	}

	return res, nil
}

// Get returns a booking owned by userID with its trip fields and events.
func (s *Service) Get(ctx context.Context, reference string, userID int64) (*domain.BookingDetail, error) {
	const op = "service.booking.Get"

	b, err := s.store.Bookings().GetWithTrip(ctx, reference, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	evs, err := s.events.List(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.BookingDetail{BookingWithTrip: *b, Events: evs}, nil
}

func (s *Service) validateRequest(req BookRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalidField(verrs[0])
		}
		return &InvalidInputError{Field: "request", Msg: err.Error()}
	}

	if req.Travellers > s.cfg.MaxTravellers {
		return &InvalidInputError{
			Field: "travellers",
			Msg:   fmt.Sprintf("must be at most %d", s.cfg.MaxTravellers),
		}
	}

	return nil
}

func invalidField(fe validator.FieldError) *InvalidInputError {
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "gt", "gte":
		msg = "must be positive"
	case "max":
		msg = "must be at most " + fe.Param() + " characters"
	default:
		msg = "is invalid"
	}
	return &InvalidInputError{Field: fe.Field(), Msg: msg}
}

func (s *Service) throttle(ctx context.Context, userID int64) error {
	if s.limiter == nil {
		return nil
	}

	d, err := s.limiter.Allow(ctx, fmt.Sprintf("user:%d", userID))
	if err != nil {
		// an unavailable limiter must not block bookings
		s.logger.Warn("booking rate limiter unavailable", "error", err)
		return nil
	}
	if !d.Allowed {
		return &RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
}

// allocateReference draws references until one is unused. The unique index
// on bookings.reference still rejects a concurrent duplicate at insert time.
func (s *Service) allocateReference(ctx context.Context, tx repository.Tx) (string, error) {
	for i := 0; i < s.cfg.ReferenceAttempts; i++ {
		ref := s.cfg.NewReference()

		taken, err := tx.Bookings().ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
	}

	return "", ErrReferenceExhausted
}

func (s *Service) publishAfter(after func(uow.AfterCommit), b domain.Booking, at time.Time) {
	if s.publisher == nil {
		return
	}

	msg := queue.NewBookingMessage(b, at)
	after(func(ctx context.Context) {
		if err := s.publisher.PublishBooking(ctx, msg); err != nil {
			s.logger.Warn("booking message publish failed",
				"reference", msg.Reference,
				"type", msg.Type,
				"error", err,
			)
		}
	})
}
