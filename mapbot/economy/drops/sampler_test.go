package drops

import (
	"math/rand"
	"testing"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

func testPool(n int) []*models.Mapper {
	pool := make([]*models.Mapper, n)
	for i := range pool {
		pool[i] = &models.Mapper{ID: int64(i + 1), Username: "mapper", Rarity: (i * 7) % 120}
	}
	return pool
}

func TestSampleWeight(t *testing.T) {
	tests := []struct {
		name       string
		rarity     int
		scale      float64
		wishlisted bool
		want       float64
	}{
		{name: "common mapper", rarity: 0, scale: 133, want: 1.0},
		{name: "mid rarity", rarity: 66, scale: 133, want: 1 - 66.0/133},
		{name: "beyond scale clamps to floor", rarity: 200, scale: 133, want: 0.01},
		{name: "wishlisted gets 15 percent more", rarity: 0, scale: 133, wishlisted: true, want: 1.15},
		{name: "flatter superdrop scale", rarity: 100, scale: 200, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sampleWeight(tt.rarity, tt.scale, tt.wishlisted)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("sampleWeight(%d, %v, %v) = %v, want %v", tt.rarity, tt.scale, tt.wishlisted, got, tt.want)
			}
		})
	}
}

func TestSampleMappersNoReplacement(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	pool := testPool(50)

	for trial := 0; trial < 100; trial++ {
		got := SampleMappers(r, pool, nil, DropRarityScale, 5)
		if len(got) != 5 {
			t.Fatalf("sample size = %d, want 5", len(got))
		}
		seen := make(map[int64]bool)
		for _, m := range got {
			if seen[m.ID] {
				t.Fatalf("mapper %d sampled twice in one draw", m.ID)
			}
			seen[m.ID] = true
		}
	}
}

func TestSampleMappersSmallPool(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	pool := testPool(2)

	got := SampleMappers(r, pool, nil, DropRarityScale, 5)
	if len(got) != 2 {
		t.Errorf("sample from pool of 2 returned %d mappers, want 2", len(got))
	}

	if got := SampleMappers(r, nil, nil, DropRarityScale, 3); got != nil {
		t.Errorf("sample from empty pool = %v, want nil", got)
	}
}

func TestSampleMappersWishlistBias(t *testing.T) {
	// Two mappers with identical rarity, one wishlisted. Over many
	// draws of one, the wishlisted mapper must come up more often.
	r := rand.New(rand.NewSource(7))
	pool := []*models.Mapper{
		{ID: 1, Rarity: 50},
		{ID: 2, Rarity: 50},
	}
	wishlisted := map[int64]bool{2: true}

	counts := map[int64]int{}
	const draws = 20000
	for i := 0; i < draws; i++ {
		got := SampleMappers(r, pool, wishlisted, DropRarityScale, 1)
		counts[got[0].ID]++
	}

	if counts[2] <= counts[1] {
		t.Errorf("wishlisted mapper drawn %d times vs %d, want more", counts[2], counts[1])
	}
	// Expected share is 1.15/2.15 ~ 53.5%; allow generous slack.
	share := float64(counts[2]) / draws
	if share < 0.51 || share > 0.58 {
		t.Errorf("wishlisted share = %.3f, want around 0.535", share)
	}
}

func TestSampleMappersRarityBias(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	pool := []*models.Mapper{
		{ID: 1, Rarity: 10},
		{ID: 2, Rarity: 120},
	}

	counts := map[int64]int{}
	for i := 0; i < 10000; i++ {
		got := SampleMappers(r, pool, nil, DropRarityScale, 1)
		counts[got[0].ID]++
	}

	if counts[1] <= counts[2] {
		t.Errorf("common mapper drawn %d times vs rare %d, want more", counts[1], counts[2])
	}
}

func TestRollDropCount(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	fives := 0
	const rolls = 100000
	for i := 0; i < rolls; i++ {
		switch n := rollDropCount(r); n {
		case 3:
		case 5:
			fives++
		default:
			t.Fatalf("rollDropCount = %d, want 3 or 5", n)
		}
	}
	rate := float64(fives) / rolls
	if rate < 0.04 || rate > 0.06 {
		t.Errorf("five-card rate = %.4f, want around 0.05", rate)
	}
}

func TestRollCondition(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	counts := map[string]int{}
	const rolls = 80000
	for i := 0; i < rolls; i++ {
		counts[rollCondition(r)]++
	}

	// Distribution is 2/8, 3/8, 2/8, 1/8.
	expected := map[string]float64{
		models.ConditionBadlyDamaged: 0.25,
		models.ConditionPoor:         0.375,
		models.ConditionGood:         0.25,
		models.ConditionMint:         0.125,
	}
	for id, want := range expected {
		got := float64(counts[id]) / rolls
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("condition %s rate = %.3f, want around %.3f", id, got, want)
		}
	}
}
