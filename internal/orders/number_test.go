package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	re := regexp.MustCompile(`^260119-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{5}$`)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n := NewOrderNumber(now)
		assert.Regexp(t, re, n)
		seen[n] = true
	}
	// 31^5 combinations per day.
	assert.Greater(t, len(seen), 190)
}
