package cache

import (
	"testing"
	"time"
)

func TestEntry_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: now.Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: now.Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "just expired",
			expires: now.Add(-1 * time.Second),
			want:    true,
		},
		{
			name:    "no expiry",
			expires: time.Time{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expires: tt.expires,
			}
			if got := entry.ExpiredAt(now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_ExpiredAt_Boundary(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{Expires: expires}

	if entry.ExpiredAt(expires.Add(-time.Nanosecond)) {
		t.Error("entry should be fresh just before its expiry")
	}
	if !entry.ExpiredAt(expires) {
		t.Error("entry should be expired exactly at its expiry")
	}
}

func TestEntry_TTL(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{
			name:    "one hour remaining",
			expires: now.Add(1 * time.Hour),
			want:    time.Hour,
		},
		{
			name:    "already expired",
			expires: now.Add(-1 * time.Hour),
			want:    0,
		},
		{
			name:    "5 minutes remaining",
			expires: now.Add(5 * time.Minute),
			want:    5 * time.Minute,
		},
		{
			name:    "no expiry",
			expires: time.Time{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{
				Expires: tt.expires,
			}
			if got := entry.TTL(now); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
