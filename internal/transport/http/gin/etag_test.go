package httpgin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEtagMatches(t *testing.T) {
	tag := `W/"abc"`
	assert.True(t, etagMatches(`W/"abc"`, tag))
	assert.True(t, etagMatches(`"x", W/"abc"`, tag))
	assert.True(t, etagMatches(`*`, tag))
	assert.False(t, etagMatches(``, tag))
	assert.False(t, etagMatches(`"abc"`, tag))
}
