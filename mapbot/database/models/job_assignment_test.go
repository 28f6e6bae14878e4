package models

import (
	"testing"
	"time"
)

func TestJobAssignmentProgress(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	assignment := JobAssignment{StartedAt: &start, ActiveUntil: &end}

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{name: "just started", now: start, want: 0},
		{name: "halfway", now: start.Add(30 * time.Minute), want: 0.5},
		{name: "finished", now: end, want: 1},
		{name: "past the end clamps", now: end.Add(time.Hour), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assignment.Progress(tt.now); got != tt.want {
				t.Errorf("Progress = %v, want %v", got, tt.want)
			}
		})
	}

	idle := JobAssignment{}
	if got := idle.Progress(start); got != 0 {
		t.Errorf("idle assignment Progress = %v, want 0", got)
	}
	if idle.IsActive() {
		t.Error("idle assignment reported active")
	}
	if !assignment.IsActive() {
		t.Error("started assignment not reported active")
	}
}

func TestJobAssignmentTimeRemaining(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	assignment := JobAssignment{StartedAt: &start, ActiveUntil: &end}

	if got := assignment.TimeRemaining(start); got != time.Hour {
		t.Errorf("TimeRemaining at start = %v, want 1h", got)
	}
	if got := assignment.TimeRemaining(end.Add(time.Minute)); got != 0 {
		t.Errorf("TimeRemaining past end = %v, want 0", got)
	}
	if got := (&JobAssignment{}).TimeRemaining(start); got != 0 {
		t.Errorf("idle TimeRemaining = %v, want 0", got)
	}
}

func TestTradeSessionHelpers(t *testing.T) {
	session := TradeSession{User1ID: "1", User2ID: "2"}

	if !session.Involves("1") || !session.Involves("2") {
		t.Error("session does not involve its own parties")
	}
	if session.Involves("3") {
		t.Error("session involves a stranger")
	}
	if got := session.Counterparty("1"); got != "2" {
		t.Errorf("Counterparty(1) = %s, want 2", got)
	}
	if got := session.Counterparty("2"); got != "1" {
		t.Errorf("Counterparty(2) = %s, want 1", got)
	}
}
