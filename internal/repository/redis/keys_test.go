package redisrepo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/tripgo/internal/domain"
)

func TestKeySearchNormalizesFilter(t *testing.T) {
	d := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)

	a := KeySearch(3, domain.TripFilter{Origin: " Paris ", Destination: "ROME", DepartDate: &d}, 50)
	b := KeySearch(3, domain.TripFilter{Origin: "paris", Destination: "rome", DepartDate: &d}, 50)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "tripgo:v1:search:3:"))

	assert.NotEqual(t, a, KeySearch(4, domain.TripFilter{Origin: "paris", Destination: "rome", DepartDate: &d}, 50))
	assert.NotEqual(t, a, KeySearch(3, domain.TripFilter{Origin: "paris", Destination: "rome", DepartDate: &d}, 10))
	assert.NotEqual(t, a, KeySearch(3, domain.TripFilter{Origin: "paris", Destination: "rome", ReturnDate: &d}, 50))
	assert.NotEqual(t, a, KeySearch(3, domain.TripFilter{Origin: "parisrome", DepartDate: &d}, 50))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "tripgo:v1:trip:42", KeyTrip(42))
	assert.Equal(t, "tripgo:v1:idem:booking:7:abc", KeyIdemBooking(7, "abc"))
	assert.Equal(t, "tripgo:v1:rl:booking:user:7", KeyRateLimit("booking", "user:7"))
	assert.Equal(t, "tripgo:v1:trips:changed", ChannelTripsChanged())
}
