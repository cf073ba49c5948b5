package redisrepo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kirinyoku/tripgo/internal/domain"
)

const ns = "tripgo:v1"

func KeyTrip(tripID int64) string {
	return fmt.Sprintf("%s:trip:%d", ns, tripID)
}

// KeySearchGeneration holds a counter bumped on every seat change. Search
// keys embed it so that stale pages are never read after a mutation.
func KeySearchGeneration() string {
	return ns + ":search:gen"
}

func KeySearch(gen int64, f domain.TripFilter, limit int) string {
	return fmt.Sprintf("%s:search:%d:%s", ns, gen, filterDigest(f, limit))
}

func KeyIdemBooking(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:booking:%d:%s", ns, userID, idemKey)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelTripsChanged() string {
	return ns + ":trips:changed"
}

func filterDigest(f domain.TripFilter, limit int) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Origin)))
	b.WriteByte(0)
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Destination)))
	b.WriteByte(0)
	if f.DepartDate != nil {
		b.WriteString(f.DepartDate.Format(domain.DateLayout))
	}
	b.WriteByte(0)
	if f.ReturnDate != nil {
		b.WriteString(f.ReturnDate.Format(domain.DateLayout))
	}
	fmt.Fprintf(&b, "\x00%d", limit)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:12])
}
