package jobs

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestSuccessChance(t *testing.T) {
	tests := []struct {
		name        string
		motivation  int64
		baseEffort  int64
		mindblocked bool
		want        float64
	}{
		{
			name:       "zero effort floors at base chance",
			motivation: 7,
			baseEffort: 0,
			want:       0.3,
		},
		{
			name:       "max motivation and effort caps at 0.9",
			motivation: 10,
			baseEffort: 240,
			want:       0.9,
		},
		{
			name:       "mid stats",
			motivation: 5,
			baseEffort: 120,
			want:       0.3 + 0.5*math.Pow(0.5, 0.25)*0.7,
		},
		{
			name:        "mindblock halves",
			motivation:  7,
			baseEffort:  0,
			mindblocked: true,
			want:        0.15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuccessChance(tt.motivation, tt.baseEffort, tt.mindblocked)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SuccessChance(%d, %d, %v) = %v, want %v",
					tt.motivation, tt.baseEffort, tt.mindblocked, got, tt.want)
			}
		})
	}
}

func TestWorkDuration(t *testing.T) {
	r := rand.New(rand.NewSource(9))

	t.Run("zero effort stays within random band", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			d := workDuration(r, 0)
			if d < 42*time.Minute || d > 60*time.Minute {
				t.Fatalf("workDuration(0) = %v, want within [42m, 60m]", d)
			}
		}
	})

	t.Run("max effort shortens the window", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			d := workDuration(r, 240)
			if d < 24*time.Minute || d > 42*time.Minute {
				t.Fatalf("workDuration(240) = %v, want within [24m, 42m]", d)
			}
		}
	})
}

// zeroSource always rolls the lowest possible value.
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

func TestRollResolution(t *testing.T) {
	r := rand.New(rand.NewSource(21))

	t.Run("certain success never fails", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			res := rollResolution(r, 1.0)
			if !res.success {
				t.Fatal("rollResolution(1.0) failed")
			}
			if res.mindblocked || res.demotivated || res.reason != "" {
				t.Fatal("successful resolution carries failure state")
			}
		}
	})

	t.Run("certain failure never succeeds and picks a reason", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			res := rollResolution(r, 0.0)
			if res.success {
				t.Fatal("rollResolution(0.0) succeeded")
			}
			if res.reason == "" {
				t.Fatal("failed resolution has no reason")
			}
			if res.mindblocked && res.demotivated {
				t.Fatal("resolution is both mindblocked and demotivated")
			}
		}
	})

	t.Run("zero chance fails even on a zero roll", func(t *testing.T) {
		zr := rand.New(zeroSource{})
		res := rollResolution(zr, 0.0)
		if res.success {
			t.Fatal("rollResolution(0.0) succeeded on a zero roll")
		}
	})

	t.Run("failure side-effect rates", func(t *testing.T) {
		var mindblocks, demotivations int
		const rolls = 50000
		for i := 0; i < rolls; i++ {
			res := rollResolution(r, 0.0)
			if res.mindblocked {
				mindblocks++
			}
			if res.demotivated {
				demotivations++
			}
		}
		mbRate := float64(mindblocks) / rolls
		if mbRate < 0.18 || mbRate > 0.22 {
			t.Errorf("mindblock rate = %.3f, want around 0.2", mbRate)
		}
		// Demotivation is 50% of the remaining 80%.
		dmRate := float64(demotivations) / rolls
		if dmRate < 0.37 || dmRate > 0.43 {
			t.Errorf("demotivation rate = %.3f, want around 0.4", dmRate)
		}
	})
}

func TestResolutionApplyToMotivation(t *testing.T) {
	tests := []struct {
		name       string
		res        resolution
		motivation int64
		want       int64
	}{
		{name: "boost", res: resolution{success: true, motivationUp: true}, motivation: 7, want: 8},
		{name: "boost caps at ten", res: resolution{success: true, motivationUp: true}, motivation: 10, want: 10},
		{name: "success without boost", res: resolution{success: true}, motivation: 7, want: 7},
		{name: "plain failure", res: resolution{}, motivation: 7, want: 7},
		{name: "mindblock drops two and caps at four", res: resolution{mindblocked: true}, motivation: 9, want: 4},
		{name: "mindblock from low motivation floors at one", res: resolution{mindblocked: true}, motivation: 2, want: 1},
		{name: "mindblock mid range", res: resolution{mindblocked: true}, motivation: 5, want: 3},
		{name: "demotivation", res: resolution{demotivated: true}, motivation: 5, want: 4},
		{name: "demotivation floors at one", res: resolution{demotivated: true}, motivation: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.applyToMotivation(tt.motivation); got != tt.want {
				t.Errorf("applyToMotivation(%d) = %d, want %d", tt.motivation, got, tt.want)
			}
		})
	}
}

func TestValidSlot(t *testing.T) {
	for _, slot := range Slots {
		if !validSlot(slot) {
			t.Errorf("validSlot(%q) = false, want true", slot)
		}
	}
	for _, slot := range []string{"e", "A", "", "ab"} {
		if validSlot(slot) {
			t.Errorf("validSlot(%q) = true, want false", slot)
		}
	}
}
