package credentials

import (
	"testing"
	"time"
)

func TestIsFresh(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	buffer := 5 * time.Minute

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "well in the future", expiresAt: now.Add(time.Hour), want: true},
		{name: "one second past the buffer", expiresAt: now.Add(buffer + time.Second), want: true},
		{name: "exactly at the buffer boundary", expiresAt: now.Add(buffer), want: false},
		{name: "inside the buffer", expiresAt: now.Add(time.Minute), want: false},
		{name: "already expired", expiresAt: now.Add(-time.Second), want: false},
		{name: "zero expiry", expiresAt: time.Time{}, want: false},
	}

	for _, tt := range tests {
		if got := IsFresh(tt.expiresAt, now, buffer); got != tt.want {
			t.Fatalf("%s: IsFresh(%v) = %v, want %v", tt.name, tt.expiresAt, got, tt.want)
		}
	}
}

func TestIsFreshZeroBuffer(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if IsFresh(now, now, 0) {
		t.Fatalf("token expiring exactly now must not be fresh")
	}
	if !IsFresh(now.Add(time.Second), now, 0) {
		t.Fatalf("token expiring after now must be fresh with zero buffer")
	}
}
