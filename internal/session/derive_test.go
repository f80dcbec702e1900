package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"no expiry", time.Time{}, 0},
		{"exact seconds", now.Add(5 * time.Second), 5},
		{"rounds up", now.Add(4100 * time.Millisecond), 5},
		{"sub second", now.Add(10 * time.Millisecond), 1},
		{"expired now", now, 0},
		{"expired long ago", now.Add(-time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TTL(tt.expiresAt, now))
		})
	}
}

func TestStuck(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, Stuck(CodeConnecting, since, since.Add(20*time.Second), DefaultStuckAfter))
	assert.True(t, Stuck(CodeConnecting, since, since.Add(21*time.Second), DefaultStuckAfter))
	assert.False(t, Stuck(CodeWaitingQR, since, since.Add(time.Hour), DefaultStuckAfter))
	assert.False(t, Stuck(CodeConnecting, time.Time{}, since, DefaultStuckAfter))
}

func TestParseCode(t *testing.T) {
	for _, c := range Codes {
		got, err := ParseCode(string(c))
		assert.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCode("")
	assert.Error(t, err)
	_, err = ParseCode("READY")
	assert.Error(t, err)
}
