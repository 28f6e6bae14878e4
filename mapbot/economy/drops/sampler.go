package drops

import (
	"math"
	"math/rand"
	"sort"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

const (
	// Rarity scales normalize a mapper's rarity stat into a sampling
	// weight. The superdrop scale is flatter so high-rarity mappers
	// show up more often.
	DropRarityScale      = 133.0
	SuperdropRarityScale = 200.0

	// wishlistBoost raises a wishlisted mapper's weight by 15%.
	wishlistBoost = 0.15

	minWeight = 0.01
)

// sampleWeight is the relative pick probability of one mapper. Higher
// rarity values are rarer, so weight falls off linearly with rarity.
func sampleWeight(rarity int, scale float64, wishlisted bool) float64 {
	w := 1 - float64(rarity)/scale
	if w < minWeight {
		w = minWeight
	}
	if wishlisted {
		w *= 1 + wishlistBoost
	}
	return w
}

// SampleMappers draws count mappers without replacement, weighted by
// rarity and wishlist status. Uses exponential sort keys so one pass
// over the pool yields an unbiased weighted sample.
func SampleMappers(r *rand.Rand, pool []*models.Mapper, wishlisted map[int64]bool, scale float64, count int) []*models.Mapper {
	if count > len(pool) {
		count = len(pool)
	}
	if count <= 0 {
		return nil
	}

	type keyed struct {
		mapper *models.Mapper
		key    float64
	}
	keys := make([]keyed, len(pool))
	for i, m := range pool {
		w := sampleWeight(m.Rarity, scale, wishlisted[m.ID])
		keys[i] = keyed{mapper: m, key: -math.Log(r.Float64()) / w}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].key < keys[j].key })

	out := make([]*models.Mapper, count)
	for i := range out {
		out[i] = keys[i].mapper
	}
	return out
}

// conditionPool is the skewed condition distribution for new cards:
// 2/8 badly damaged, 3/8 poor, 2/8 good, 1/8 mint.
var conditionPool = []string{
	models.ConditionBadlyDamaged,
	models.ConditionBadlyDamaged,
	models.ConditionPoor,
	models.ConditionPoor,
	models.ConditionPoor,
	models.ConditionGood,
	models.ConditionGood,
	models.ConditionMint,
}

func rollCondition(r *rand.Rand) string {
	return conditionPool[r.Intn(len(conditionPool))]
}

// rollDropCount is 3 cards, or 5 on a 5% roll.
func rollDropCount(r *rand.Rand) int {
	if r.Float64() < 0.05 {
		return 5
	}
	return 3
}

func rollFoil(r *rand.Rand) bool {
	return r.Float64() < 0.05
}
