package domain

import (
	"crypto/rand"
	"strings"
)

const (
	ReferencePrefix = "TRV-"
	ReferenceLength = 8

	// excludes 0, O, 1 and I
	referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// ReferenceGenerator produces candidate booking references. Uniqueness is
// checked by the caller against the store.
type ReferenceGenerator func() string

// NewReference returns a reference such as "TRV-7KQ2MZ4X".
func NewReference() string {
	b := make([]byte, ReferenceLength)
	if _, err := rand.Read(b); err != nil {
		panic("domain.NewReference: crypto/rand: " + err.Error())
	}

	var sb strings.Builder
	sb.Grow(len(ReferencePrefix) + ReferenceLength)
	sb.WriteString(ReferencePrefix)
	for _, c := range b {
		// 256 is a multiple of 32, so this keeps the distribution uniform.
		sb.WriteByte(referenceAlphabet[int(c)%len(referenceAlphabet)])
	}

	return sb.String()
}

// ValidReference reports whether s is shaped like a reference produced by NewReference.
func ValidReference(s string) bool {
	suffix, ok := strings.CutPrefix(s, ReferencePrefix)
	if !ok || len(suffix) != ReferenceLength {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if strings.IndexByte(referenceAlphabet, suffix[i]) < 0 {
			return false
		}
	}
	return true
}
