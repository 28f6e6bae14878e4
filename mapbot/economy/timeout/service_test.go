package timeout

import (
	"testing"
	"time"
)

func TestActualRemaining(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		base    time.Duration
		speedup bool
		want    time.Duration
	}{
		{
			name:    "fresh cooldown",
			elapsed: 0,
			base:    30 * time.Minute,
			want:    30 * time.Minute,
		},
		{
			name:    "partially elapsed",
			elapsed: 10 * time.Minute,
			base:    30 * time.Minute,
			want:    20 * time.Minute,
		},
		{
			name:    "exactly expired",
			elapsed: 30 * time.Minute,
			base:    30 * time.Minute,
			want:    0,
		},
		{
			name:    "long expired clamps to zero",
			elapsed: 48 * time.Hour,
			base:    30 * time.Minute,
			want:    0,
		},
		{
			name:    "speedup halves the base duration",
			elapsed: 5 * time.Minute,
			base:    30 * time.Minute,
			speedup: true,
			want:    10 * time.Minute,
		},
		{
			name:    "speedup can expire a cooldown early",
			elapsed: 20 * time.Minute,
			base:    30 * time.Minute,
			speedup: true,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := actualRemaining(start, start.Add(tt.elapsed), tt.base, tt.speedup)
			if got != tt.want {
				t.Errorf("actualRemaining = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDailyRemaining(t *testing.T) {
	tests := []struct {
		name     string
		lastUsed time.Time
		now      time.Time
		want     time.Duration
	}{
		{
			name:     "same day still blocked",
			lastUsed: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
			now:      time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC),
			want:     8*time.Hour + time.Minute,
		},
		{
			name:     "available right after midnight",
			lastUsed: time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC),
			now:      time.Date(2025, 3, 2, 0, 1, 0, 0, time.UTC),
			want:     0,
		},
		{
			name:     "month rollover counts as a new day",
			lastUsed: time.Date(2025, 2, 28, 22, 0, 0, 0, time.UTC),
			now:      time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC),
			want:     0,
		},
		{
			name:     "used at midnight exactly",
			lastUsed: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			want:     12 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dailyRemaining(tt.lastUsed, tt.now)
			if got != tt.want {
				t.Errorf("dailyRemaining = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewBlocked(t *testing.T) {
	if !(View{Remaining: time.Second}).Blocked() {
		t.Error("view with remaining time should be blocked")
	}
	if (View{Remaining: 0}).Blocked() {
		t.Error("view with no remaining time should not be blocked")
	}
	// The free-claim bypass zeroes Remaining while ActualRemaining still
	// runs; only Remaining gates the action.
	v := View{Remaining: 0, ActualRemaining: 4 * time.Minute, FreeClaimBypass: true}
	if v.Blocked() {
		t.Error("bypassed view should not be blocked")
	}
}
