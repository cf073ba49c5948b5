package httpgin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/tripgo/internal/domain"
	redisrepo "github.com/kirinyoku/tripgo/internal/repository/redis"
	"github.com/kirinyoku/tripgo/internal/service"
	"github.com/kirinyoku/tripgo/internal/service/admin"
	"github.com/kirinyoku/tripgo/internal/service/booking"
	"github.com/kirinyoku/tripgo/internal/service/inventory"
	"github.com/kirinyoku/tripgo/internal/service/query"
)

const idemLockTTL = 60 * time.Second

// IdempotencyStore keeps responses of POST /bookings per Idempotency-Key.
type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, res redisrepo.IdempotentResult) error
	GetResult(ctx context.Context, key string) (redisrepo.IdempotentResult, bool, error)
	Release(ctx context.Context, key string) error
}

type Options struct {
	// CORSOrigins restricts cross-origin callers; empty allows any origin.
	CORSOrigins []string
}

// NewRouter wires the HTTP API. idem may be nil, in which case the
// Idempotency-Key header is ignored.
func NewRouter(
	svcs *service.Services,
	idem IdempotencyStore,
	auth *Authenticator,
	logger *slog.Logger,
	opts Options,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS(opts.CORSOrigins...))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/trips", handleSearchTrips(svcs))
	r.GET("/trips/:id", handleGetTrip(svcs))

	// Principal API
	user := r.Group("/", auth.Middleware())
	{
		user.POST("/bookings", handleBook(svcs, idem))
		user.GET("/bookings", handleListBookings(svcs))
		user.GET("/bookings/:reference", handleGetBooking(svcs))
		user.POST("/bookings/:reference/cancel", handleCancel(svcs))
	}

	// Admin API
	adm := r.Group("/admin", auth.Middleware(), RequireRole(RoleAdmin))
	{
		adm.POST("/trips", handleCreateTrip(svcs))
		adm.DELETE("/trips/:id", handleDeleteTrip(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Search trips
// @Param    origin       query  string  false  "origin substring (alias: from)"
// @Param    destination  query  string  false  "destination substring (alias: to)"
// @Param    depart       query  string  false  "depart date YYYY-MM-DD"
// @Param    return       query  string  false  "return date YYYY-MM-DD"
// @Success  200  {array}   TripView
// @Failure  400  {object}  ErrorResponse
// @Router   /trips [get]
func handleSearchTrips(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := domain.TripFilter{
			Origin:      firstQuery(c, "origin", "from"),
			Destination: firstQuery(c, "destination", "to"),
		}

		var ok bool
		if f.DepartDate, ok = dateQuery(c, "depart"); !ok {
			return
		}
		if f.ReturnDate, ok = dateQuery(c, "return"); !ok {
			return
		}

		trips, err := svcs.Query.SearchTrips(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, tripViews(trips), "public, max-age=15", true)
	}
}

// @Summary  Get trip
// @Param    id  path  int  true  "Trip ID"
// @Success  200  {object}  TripView
// @Failure  404  {object}  ErrorResponse
// @Router   /trips/{id} [get]
func handleGetTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		t, err := svcs.Query.GetTrip(c.Request.Context(), tripID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, tripView(*t), "public, max-age=15", true)
	}
}

// @Summary  Book a trip (idempotent)
// @Security BearerAuth
// @Param    req body  BookRequest true "payload"
// @Param    Idempotency-Key header string false "replays the first response for the same key"
// @Success  201 {object} BookResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "trip not found"
// @Failure  409 {object} ErrorResponse "not enough seats / idem in progress"
// @Failure  422 {object} ErrorResponse "idempotency key reused with another request"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleBook(svcs *service.Services, idem IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)

		var req BookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey, fingerprint string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(p.UserID, idemKey)
			fingerprint = bookFingerprint(req)

			if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey, fingerprint); replayed {
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey, fingerprint); replayed {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		b, err := svcs.Booking.Book(c.Request.Context(), p.UserID, booking.BookRequest{
			TripID:       req.TripID,
			Travellers:   req.Travellers,
			ContactName:  req.ContactName,
			ContactEmail: req.ContactEmail,
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := BookResponse{
			Reference:  b.Reference,
			Total:      domain.FormatCents(b.TotalCents),
			TotalCents: b.TotalCents,
			Status:     string(b.Status),
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, redisrepo.IdempotentResult{
				Fingerprint: fingerprint,
				Payload:     string(payload),
			})
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  List my bookings, newest first
// @Security BearerAuth
// @Success  200 {array} BookingView
// @Router   /bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)

		list, err := svcs.Query.ListBookings(c.Request.Context(), p.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]BookingView, len(list))
		for i, d := range list {
			out[i] = bookingView(d)
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get my booking
// @Security BearerAuth
// @Param    reference  path  string  true  "Booking reference"
// @Success  200 {object} BookingView
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{reference} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)

		d, err := svcs.Booking.Get(c.Request.Context(), c.Param("reference"), p.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, bookingView(*d))
	}
}

// @Summary  Cancel my booking (idempotent)
// @Security BearerAuth
// @Param    reference  path  string  true  "Booking reference"
// @Success  200 {object} CancelResponse "cancelled or already_cancelled"
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{reference}/cancel [post]
func handleCancel(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, _ := principal(c)

		res, err := svcs.Booking.Cancel(c.Request.Context(), c.Param("reference"), p.UserID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, CancelResponse{Detail: res.String()})
	}
}

// @Summary  Create trip
// @Security BearerAuth
// @Param    req body  CreateTripRequest true "payload"
// @Success  201 {object} CreateTripResponse
// @Failure  400 {object} ErrorResponse
// @Failure  403 {object} ErrorResponse
// @Router   /admin/trips [post]
func handleCreateTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTripRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		depart, err := parseDate(req.DepartDate)
		if err != nil {
			badRequest(c, "invalid depart_date (YYYY-MM-DD)")
			return
		}

		var ret *time.Time
		if req.ReturnDate != nil && *req.ReturnDate != "" {
			d, err := parseDate(*req.ReturnDate)
			if err != nil {
				badRequest(c, "invalid return_date (YYYY-MM-DD)")
				return
			}
			ret = &d
		}

		price, err := domain.ParseCents(req.Price)
		if err != nil {
			badRequest(c, "invalid price")
			return
		}

		id, err := svcs.Admin.CreateTrip(c.Request.Context(), admin.NewTrip{
			Origin:         req.Origin,
			Destination:    req.Destination,
			DepartDate:     depart,
			ReturnDate:     ret,
			PriceCents:     price,
			SeatsAvailable: req.SeatsAvailable,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateTripResponse{TripID: id})
	}
}

// @Summary  Delete trip without bookings
// @Security BearerAuth
// @Param    id  path  int  true  "Trip ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "trip has bookings"
// @Router   /admin/trips/{id} [delete]
func handleDeleteTrip(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		tripID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.DeleteTrip(c.Request.Context(), tripID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

// replayIdempotent answers from a stored result. A key whose stored result
// came from a different request is rejected with 422.
func replayIdempotent(c *gin.Context, idem IdempotencyStore, storageKey, idemKey, fingerprint string) bool {
	res, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}
	if res.Fingerprint != fingerprint {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "idempotency key already used for a different request",
		})
		return true
	}
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(res.Payload))
	return true
}

// bookFingerprint digests the fields that decide a booking. Contact fields
// are trimmed as the booking service trims them.
func bookFingerprint(req BookRequest) string {
	req.ContactName = strings.TrimSpace(req.ContactName)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func firstQuery(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.Query(n)); v != "" {
			return v
		}
	}
	return ""
}

func dateQuery(c *gin.Context, name string) (*time.Time, bool) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return nil, true
	}
	d, err := parseDate(s)
	if err != nil {
		badRequest(c, "invalid "+name+" (YYYY-MM-DD)")
		return nil, false
	}
	return &d, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		invalid      *booking.InvalidInputError
		insufficient *inventory.InsufficientInventoryError
		limited      *booking.RateLimitedError
		invalidTrip  *admin.InvalidTripError
	)

	switch {
	// booking service
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalid.Msg, Field: invalid.Field})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "not enough seats available: " + strconv.Itoa(insufficient.Available) + " left",
		})
	case errors.As(err, &limited):
		c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Round(time.Second).Seconds())))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many booking attempts"})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	// trips, from any service
	case errors.Is(err, inventory.ErrTripNotFound),
		errors.Is(err, query.ErrTripNotFound),
		errors.Is(err, admin.ErrTripNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "trip not found"})
	// admin service
	case errors.As(err, &invalidTrip):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidTrip.Error()})
	case errors.Is(err, admin.ErrTripHasBookings):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "trip has bookings"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
