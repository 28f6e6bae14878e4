package rewards

import (
	"math/rand"
	"testing"
)

func TestRollDailyAmount(t *testing.T) {
	r := rand.New(rand.NewSource(17))

	for i := 0; i < 10000; i++ {
		amount := rollDailyAmount(r)
		if amount < 50 || amount > 249 {
			t.Fatalf("rollDailyAmount = %d, want within [50, 249]", amount)
		}
	}
}
