package assignment

import (
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(i int) *int { return &i }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestAssignment(defaultScore, minScore int, weight, multiplier string) Assignment {
	return Assignment{
		Category: Category{
			Name:         "Thesis",
			DefaultScore: defaultScore,
			MinScore:     minScore,
			ScoreWeight:  dec(weight),
		},
		RequiredQuantity: 1,
		ScoreMultiplier:  dec(multiplier),
		Status:           StatusActive,
	}
}

func TestAssignment_effectiveScores(t *testing.T) {
	tests := []struct {
		name       string
		a          Assignment
		wantMax    int
		wantMin    int
		wantWeight string
	}{
		{
			name:       "category defaults",
			a:          newTestAssignment(10, 0, "1.00", "1.00"),
			wantMax:    10,
			wantMin:    0,
			wantWeight: "1",
		},
		{
			name: "custom max ignored when override is off",
			a: func() Assignment {
				a := newTestAssignment(10, 2, "1.20", "1.50")
				a.CustomMaxScore = intPtr(50)
				return a
			}(),
			wantMax:    10,
			wantMin:    2,
			wantWeight: "1.8",
		},
		{
			name: "custom override",
			a: func() Assignment {
				a := newTestAssignment(10, 2, "2.00", "0.50")
				a.UseCustomScore = true
				a.CustomMaxScore = intPtr(50)
				a.CustomMinScore = intPtr(5)
				return a
			}(),
			wantMax:    50,
			wantMin:    5,
			wantWeight: "1",
		},
		{
			name: "custom min applies even without the override",
			a: func() Assignment {
				a := newTestAssignment(10, 0, "1.00", "1.00")
				a.CustomMinScore = intPtr(3)
				return a
			}(),
			wantMax:    10,
			wantMin:    3,
			wantWeight: "1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.EffectiveMaxScore(); got != tt.wantMax {
				t.Errorf("EffectiveMaxScore() = %v, want %v", got, tt.wantMax)
			}
			if got := tt.a.EffectiveMinScore(); got != tt.wantMin {
				t.Errorf("EffectiveMinScore() = %v, want %v", got, tt.wantMin)
			}
			if got := tt.a.EffectiveWeight(); !got.Equal(dec(tt.wantWeight)) {
				t.Errorf("EffectiveWeight() = %v, want %v", got, tt.wantWeight)
			}
		})
	}
}

func TestAssignment_CalculateFinalScore(t *testing.T) {
	tests := []struct {
		name      string
		a         Assignment
		raw       int
		wantScore string
	}{
		{name: "plain", a: newTestAssignment(10, 0, "1.00", "1.00"), raw: 8, wantScore: "8.00"},
		{name: "multiplier 1.5", a: newTestAssignment(10, 0, "1.00", "1.50"), raw: 8, wantScore: "12.00"},
		{name: "weight times multiplier", a: newTestAssignment(10, 0, "1.20", "1.50"), raw: 7, wantScore: "12.60"},
		{name: "clamped to max", a: newTestAssignment(10, 0, "1.00", "1.00"), raw: 25, wantScore: "10.00"},
		{name: "clamped to min", a: newTestAssignment(10, 4, "1.00", "1.00"), raw: 1, wantScore: "4.00"},
		{name: "rounds half up", a: newTestAssignment(10, 0, "0.33", "0.50"), raw: 1, wantScore: "0.17"},
		{name: "zero", a: newTestAssignment(10, 0, "1.00", "2.00"), raw: 0, wantScore: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.CalculateFinalScore(tt.raw)
			if got.StringFixed(ScorePlaces) != tt.wantScore {
				t.Errorf("CalculateFinalScore(%d) = %v, want %v", tt.raw, got.StringFixed(ScorePlaces), tt.wantScore)
			}
		})
	}
}

func TestAssignment_CalculateFinalScore_clampingEqualsBounds(t *testing.T) {
	a := newTestAssignment(20, 5, "1.25", "1.10")
	if got, want := a.CalculateFinalScore(0), a.CalculateFinalScore(5); !got.Equal(want) {
		t.Errorf("below min: got %v, want %v", got, want)
	}
	if got, want := a.CalculateFinalScore(500), a.CalculateFinalScore(20); !got.Equal(want) {
		t.Errorf("above max: got %v, want %v", got, want)
	}
}

func TestAssignment_CalculateFinalScore_monotonic(t *testing.T) {
	weights := []string{"0.10", "0.50", "1.00", "1.25", "2.00", "10.00"}

	// in raw score, weight fixed
	for _, w := range weights {
		a := newTestAssignment(100, 0, w, "1.00")
		prev := a.CalculateFinalScore(-5)
		for raw := -4; raw <= 110; raw++ {
			cur := a.CalculateFinalScore(raw)
			if cur.LessThan(prev) {
				t.Fatalf("weight %s: score(%d) = %v < score(%d) = %v", w, raw, cur, raw-1, prev)
			}
			prev = cur
		}
	}

	// in weight, raw score fixed
	for _, raw := range []int{0, 1, 7, 50, 100} {
		var prev decimal.Decimal
		for i, w := range weights {
			cur := newTestAssignment(100, 0, w, "1.00").CalculateFinalScore(raw)
			if i > 0 && cur.LessThan(prev) {
				t.Fatalf("raw %d: score with weight %s = %v < %v", raw, w, cur, prev)
			}
			prev = cur
		}
	}
}

func TestAssignment_derived(t *testing.T) {
	a := newTestAssignment(10, 0, "1.50", "2.00")
	a.RequiredQuantity = 4
	a.CompletedQuantity = 3

	if got := a.RemainingQuantity(); got != 1 {
		t.Errorf("RemainingQuantity() = %v, want 1", got)
	}
	if got := a.ProgressPercentage(); got != 75 {
		t.Errorf("ProgressPercentage() = %v, want 75", got)
	}
	if got := a.WeightedMaxScore(); !got.Equal(dec("30")) {
		t.Errorf("WeightedMaxScore() = %v, want 30", got)
	}

	a.CompletedQuantity = 9
	if got := a.RemainingQuantity(); got != 0 {
		t.Errorf("RemainingQuantity() = %v, want 0", got)
	}
	if got := a.ProgressPercentage(); got != 100 {
		t.Errorf("ProgressPercentage() = %v, want 100", got)
	}

	p := Progress{RawScore: intPtr(7)}
	pct, ok := p.ScorePercentage(a)
	if !ok || !pct.Equal(dec("70")) {
		t.Errorf("ScorePercentage() = %v, %v, want 70, true", pct, ok)
	}
	if _, ok := (Progress{}).ScorePercentage(a); ok {
		t.Error("ScorePercentage() of an ungraded item should not be ok")
	}
}
