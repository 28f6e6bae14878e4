package commands

import (
	"strings"
	"testing"
)

func TestClassifyAccept(t *testing.T) {
	fresh := strings.Split("alice/bob/k3x/m9q", "/")
	half := strings.Split("alice/bob/k3x/m9q/alice", "/")

	tests := []struct {
		name    string
		parts   []string
		presser string
		want    acceptStep
	}{
		{name: "stranger cannot accept", parts: fresh, presser: "mallory", want: stepNotParticipant},
		{name: "first accept by the partner", parts: fresh, presser: "bob", want: stepFirstAccept},
		{name: "first accept by the initiator", parts: fresh, presser: "alice", want: stepFirstAccept},
		{name: "stranger cannot finish either", parts: half, presser: "mallory", want: stepNotParticipant},
		{name: "one side cannot accept twice", parts: half, presser: "alice", want: stepAlreadyAccepted},
		{name: "second accept executes", parts: half, presser: "bob", want: stepExecute},
		{name: "short id is malformed", parts: strings.Split("alice/bob/k3x", "/"), presser: "alice", want: stepMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyAccept(tt.parts, tt.presser); got != tt.want {
				t.Errorf("classifyAccept(%v, %q) = %v, want %v", tt.parts, tt.presser, got, tt.want)
			}
		})
	}
}
