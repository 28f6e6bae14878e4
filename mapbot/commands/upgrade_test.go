package commands

import (
	"testing"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/upgrade"
)

func TestQuoteChanged(t *testing.T) {
	quote := &upgrade.Quote{
		Condition: &models.CardCondition{ID: "Good"},
		Price:     450,
	}

	if quoteChanged(quote, "Good", 450) {
		t.Error("unchanged quote reported stale")
	}
	if !quoteChanged(quote, "Poor", 450) {
		t.Error("tier change not reported stale")
	}
	if !quoteChanged(quote, "Good", 400) {
		t.Error("price change not reported stale")
	}
}
