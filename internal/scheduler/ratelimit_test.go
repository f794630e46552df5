package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterFirstPollAllowed(t *testing.T) {
	r := NewRateLimiter()
	assert.True(t, r.CanPoll("user@example.com", time.Minute))
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter()
	r.now = func() time.Time { return now }

	r.RecordPoll("user@example.com")
	assert.False(t, r.CanPoll("user@example.com", time.Minute))

	now = now.Add(59 * time.Second)
	assert.False(t, r.CanPoll("user@example.com", time.Minute))

	// Boundary is inclusive.
	now = now.Add(time.Second)
	assert.True(t, r.CanPoll("user@example.com", time.Minute))

	now = now.Add(time.Second)
	assert.True(t, r.CanPoll("user@example.com", time.Minute))
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRateLimiter()
	r.now = func() time.Time { return now }

	r.RecordPoll("first@example.com")
	assert.False(t, r.CanPoll("first@example.com", time.Minute))
	assert.True(t, r.CanPoll("second@example.com", time.Minute))
}
