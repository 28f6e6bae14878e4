package upgrade

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

func conditionChain() map[string]*models.CardCondition {
	byID := make(map[string]*models.CardCondition)
	for _, c := range models.DefaultConditions() {
		byID[c.ID] = c
	}
	for _, c := range byID {
		if c.NextID != nil {
			c.Next = byID[*c.NextID]
		}
		if c.PreviousID != nil {
			c.Previous = byID[*c.PreviousID]
		}
	}
	return byID
}

func TestBuildQuote(t *testing.T) {
	chain := conditionChain()

	tests := []struct {
		name      string
		condition string
		foil      bool
		wantPrice int64
		wantErr   error
	}{
		{name: "badly damaged", condition: models.ConditionBadlyDamaged, wantPrice: 100},
		{name: "poor", condition: models.ConditionPoor, wantPrice: 250},
		{name: "good", condition: models.ConditionGood, wantPrice: 500},
		{name: "foil doubles the price", condition: models.ConditionPoor, foil: true, wantPrice: 500},
		{name: "mint is terminal", condition: models.ConditionMint, wantErr: ErrTerminalCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := chain[tt.condition]
			card := &models.Card{ID: "aaaa", ConditionID: cond.ID, Foil: tt.foil}

			quote, err := BuildQuote(card, cond, cond.Next, cond.Previous)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("BuildQuote error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildQuote: %v", err)
			}
			if quote.Price != tt.wantPrice {
				t.Errorf("price = %d, want %d", quote.Price, tt.wantPrice)
			}
			if quote.Next == nil {
				t.Error("quote for non-terminal tier has no next condition")
			}
		})
	}
}

func TestRollOutcome(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	t.Run("certain success", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			success, downgrade := rollOutcome(r, 1.0, true)
			if !success || downgrade {
				t.Fatalf("rollOutcome(1.0) = %v, %v, want success without downgrade", success, downgrade)
			}
		}
	})

	t.Run("certain failure without previous never downgrades", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			success, downgrade := rollOutcome(r, 0.0, false)
			if success || downgrade {
				t.Fatalf("rollOutcome(0.0, no previous) = %v, %v", success, downgrade)
			}
		}
	})

	t.Run("failure downgrades about half the time", func(t *testing.T) {
		downgrades := 0
		const rolls = 20000
		for i := 0; i < rolls; i++ {
			_, downgrade := rollOutcome(r, 0.0, true)
			if downgrade {
				downgrades++
			}
		}
		rate := float64(downgrades) / rolls
		if rate < 0.47 || rate > 0.53 {
			t.Errorf("downgrade rate = %.3f, want around 0.5", rate)
		}
	})

	t.Run("success rate tracks tier chance", func(t *testing.T) {
		successes := 0
		const rolls = 20000
		for i := 0; i < rolls; i++ {
			success, _ := rollOutcome(r, 0.25, true)
			if success {
				successes++
			}
		}
		rate := float64(successes) / rolls
		if rate < 0.22 || rate > 0.28 {
			t.Errorf("success rate = %.3f, want around 0.25", rate)
		}
	})
}
