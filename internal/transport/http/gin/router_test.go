package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tripgo/internal/domain"
	"github.com/kirinyoku/tripgo/internal/repository/memory"
	redisrepo "github.com/kirinyoku/tripgo/internal/repository/redis"
	"github.com/kirinyoku/tripgo/internal/service"
)

const testSecret = "test-secret"

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
	auth   *Authenticator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithIdempotency(t, nil)
}

func newHarnessWithIdempotency(t *testing.T, idem IdempotencyStore) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	svcs := service.NewServices(store, service.Deps{}, logger, service.Config{})
	auth := NewAuthenticator(testSecret)

	return &harness{
		t:      t,
		router: NewRouter(svcs, idem, auth, logger, Options{}),
		store:  store,
		auth:   auth,
	}
}

func (h *harness) token(userID int64, role string) string {
	h.t.Helper()
	tok, err := h.auth.IssueToken(userID, role, time.Hour)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) trip(seats int, price int64) int64 {
	h.t.Helper()
	ret := time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC)
	id, err := h.store.Trips().Create(context.Background(), domain.Trip{
		Origin:         "Paris",
		Destination:    "Rome",
		DepartDate:     time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		ReturnDate:     &ret,
		PriceCents:     price,
		SeatsAvailable: seats,
	})
	require.NoError(h.t, err)
	return id
}

// memIdempotency mirrors redisrepo.IdempotencyStore without Redis.
type memIdempotency struct {
	mu     sync.Mutex
	locked map[string]bool
	saved  map[string]redisrepo.IdempotentResult
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{
		locked: make(map[string]bool),
		saved:  make(map[string]redisrepo.IdempotentResult),
	}
}

func (m *memIdempotency) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, done := m.saved[key]; done || m.locked[key] {
		return false, nil
	}
	m.locked[key] = true
	return true, nil
}

func (m *memIdempotency) SaveResult(_ context.Context, key string, res redisrepo.IdempotentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locked, key)
	m.saved[key] = res
	return nil
}

func (m *memIdempotency) GetResult(_ context.Context, key string) (redisrepo.IdempotentResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.saved[key]
	return res, ok, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locked, key)
	delete(m.saved, key)
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func bookBody(tripID int64, travellers int) gin.H {
	return gin.H{
		"trip_id":       tripID,
		"travellers":    travellers,
		"contact_name":  "Ada Lovelace",
		"contact_email": "ada@example.com",
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSearchTrips(t *testing.T) {
	h := newHarness(t)
	h.trip(3, 10000)

	w := h.do(http.MethodGet, "/trips?from=par&to=ROM&depart=2025-09-10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trips := decode[[]TripView](t, w)
	require.Len(t, trips, 1)
	assert.Equal(t, "100.00", trips[0].Price)
	assert.Equal(t, "2025-09-10", trips[0].DepartDate)
	require.NotNil(t, trips[0].ReturnDate)
	assert.Equal(t, "2025-09-17", *trips[0].ReturnDate)

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	w = h.do(http.MethodGet, "/trips?from=par&to=ROM&depart=2025-09-10", "", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = h.do(http.MethodGet, "/trips?origin=lisbon", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = h.do(http.MethodGet, "/trips?depart=10-09-2025", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTrip(t *testing.T) {
	h := newHarness(t)
	id := h.trip(3, 10000)

	w := h.do(http.MethodGet, "/trips/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[TripView](t, w).SeatsAvailable)

	w = h.do(http.MethodGet, "/trips/"+itoa(id+1), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/trips/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingFlow(t *testing.T) {
	h := newHarness(t)
	tripID := h.trip(2, 10000)
	alice := h.token(1, "")

	w := h.do(http.MethodPost, "/bookings", alice, bookBody(tripID, 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	booked := decode[BookResponse](t, w)
	assert.Equal(t, "200.00", booked.Total)
	assert.Equal(t, int64(20000), booked.TotalCents)
	assert.Equal(t, "CONFIRMED", booked.Status)

	w = h.do(http.MethodPost, "/bookings", alice, bookBody(tripID, 1))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/bookings", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]BookingView](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, booked.Reference, list[0].Reference)
	assert.Equal(t, "Paris", list[0].Origin)
	require.Len(t, list[0].Events, 1)
	assert.Equal(t, "CREATED", list[0].Events[0].Kind)

	w = h.do(http.MethodPost, "/bookings/"+booked.Reference+"/cancel", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"detail":"cancelled"}`, w.Body.String())

	w = h.do(http.MethodPost, "/bookings/"+booked.Reference+"/cancel", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"detail":"already_cancelled"}`, w.Body.String())

	w = h.do(http.MethodGet, "/bookings/"+booked.Reference, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[BookingView](t, w)
	assert.Equal(t, "CANCELLED", detail.Status)
	require.Len(t, detail.Events, 2)
	assert.Equal(t, "CANCELLED", detail.Events[0].Kind)

	w = h.do(http.MethodGet, "/trips/"+itoa(tripID), "", nil)
	assert.Equal(t, 2, decode[TripView](t, w).SeatsAvailable)
}

func TestBookingErrors(t *testing.T) {
	h := newHarness(t)
	tripID := h.trip(2, 10000)
	alice := h.token(1, "")

	w := h.do(http.MethodPost, "/bookings", "", bookBody(tripID, 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/bookings", "garbage", bookBody(tripID, 1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/bookings", alice, bookBody(tripID, 0))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "travellers", decode[ErrorResponse](t, w).Field)

	w = h.do(http.MethodPost, "/bookings", alice, gin.H{"trip_id": tripID, "travellers": 1, "contact_name": "Ada"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "contact_email", decode[ErrorResponse](t, w).Field)

	w = h.do(http.MethodPost, "/bookings", alice, bookBody(tripID+1, 1))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/trips/"+itoa(tripID), "", nil)
	assert.Equal(t, 2, decode[TripView](t, w).SeatsAvailable)
}

func TestBookingsAreScopedToPrincipal(t *testing.T) {
	h := newHarness(t)
	tripID := h.trip(2, 10000)

	w := h.do(http.MethodPost, "/bookings", h.token(1, ""), bookBody(tripID, 1))
	require.Equal(t, http.StatusCreated, w.Code)
	ref := decode[BookResponse](t, w).Reference

	bob := h.token(2, "")
	w = h.do(http.MethodGet, "/bookings/"+ref, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/bookings/"+ref+"/cancel", bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodGet, "/bookings", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestAdminTrips(t *testing.T) {
	h := newHarness(t)
	admin := h.token(99, RoleAdmin)

	body := gin.H{
		"origin":          "Lyon",
		"destination":     "Nice",
		"depart_date":     "2025-10-01",
		"price":           "45.50",
		"seats_available": 12,
	}

	w := h.do(http.MethodPost, "/admin/trips", h.token(1, ""), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/admin/trips", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tripID := decode[CreateTripResponse](t, w).TripID

	w = h.do(http.MethodGet, "/trips/"+itoa(tripID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "45.50", decode[TripView](t, w).Price)

	bad := gin.H{"origin": "Lyon", "destination": "Nice", "depart_date": "2025-10-01", "price": "12.345"}
	w = h.do(http.MethodPost, "/admin/trips", admin, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad = gin.H{"origin": "Lyon", "destination": "Nice", "depart_date": "2025-10-01", "return_date": "2025-09-01", "price": "1"}
	w = h.do(http.MethodPost, "/admin/trips", admin, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/bookings", h.token(1, ""), bookBody(tripID, 1))
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodDelete, "/admin/trips/"+itoa(tripID), admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	other := h.trip(1, 100)
	w = h.do(http.MethodDelete, "/admin/trips/"+itoa(other), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(http.MethodDelete, "/admin/trips/"+itoa(other), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpiredToken(t *testing.T) {
	h := newHarness(t)
	tok, err := h.auth.IssueToken(1, "", -time.Minute)
	require.NoError(t, err)

	w := h.do(http.MethodGet, "/bookings", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := NewAuthenticator("another-secret").IssueToken(1, "", time.Hour)
	require.NoError(t, err)
	w = h.do(http.MethodGet, "/bookings", other, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestBookIdempotencyKey(t *testing.T) {
	h := newHarnessWithIdempotency(t, newMemIdempotency())
	tripID := h.trip(5, 10000)
	tok := h.token(1, "")

	first := h.do(http.MethodPost, "/bookings", tok, bookBody(tripID, 2), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	created := decode[BookResponse](t, first)

	// a retry of the same request replays the first response
	retry := h.do(http.MethodPost, "/bookings", tok, bookBody(tripID, 2), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, created.Reference, decode[BookResponse](t, retry).Reference)
	assert.Equal(t, "k-1", retry.Header().Get("Idempotency-Key"))

	// the same key with another party size is refused, not replayed
	other := h.do(http.MethodPost, "/bookings", tok, bookBody(tripID, 3), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusUnprocessableEntity, other.Code)
	assert.NotContains(t, other.Body.String(), created.Reference)

	tr, err := h.store.Trips().Get(context.Background(), tripID)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.SeatsAvailable)

	// keys are per principal
	w := h.do(http.MethodPost, "/bookings", h.token(2, ""), bookBody(tripID, 3), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEqual(t, created.Reference, decode[BookResponse](t, w).Reference)
}

func TestBookIdempotencyKeyReleasedOnFailure(t *testing.T) {
	h := newHarnessWithIdempotency(t, newMemIdempotency())
	tripID := h.trip(1, 10000)
	tok := h.token(1, "")

	w := h.do(http.MethodPost, "/bookings", tok, bookBody(tripID, 2), "Idempotency-Key", "k-2")
	require.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/bookings", tok, bookBody(tripID, 1), "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
