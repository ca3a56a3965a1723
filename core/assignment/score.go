package assignment

import "github.com/shopspring/decimal"

// ScorePlaces is the precision of weighted scores.
const ScorePlaces = 2

// EffectiveMaxScore returns the custom max score when the override is on and set, else the category default.
func (a Assignment) EffectiveMaxScore() int {
	if a.UseCustomScore && a.CustomMaxScore != nil {
		return *a.CustomMaxScore
	}
	return a.Category.DefaultScore
}

// EffectiveMinScore returns the custom min score when set, else the category minimum.
func (a Assignment) EffectiveMinScore() int {
	if a.CustomMinScore != nil {
		return *a.CustomMinScore
	}
	return a.Category.MinScore
}

// EffectiveWeight is category.score_weight × score_multiplier.
func (a Assignment) EffectiveWeight() decimal.Decimal {
	return weightOrDefault(a.Category.ScoreWeight).Mul(weightOrDefault(a.ScoreMultiplier))
}

// WeightedMaxScore is the best final score an item of this assignment can get.
func (a Assignment) WeightedMaxScore() decimal.Decimal {
	return roundScore(decimal.NewFromInt(int64(a.EffectiveMaxScore())).Mul(a.EffectiveWeight()))
}

// ClampScore bounds raw into [EffectiveMinScore, EffectiveMaxScore].
func (a Assignment) ClampScore(raw int) int {
	if min := a.EffectiveMinScore(); raw < min {
		return min
	}
	if max := a.EffectiveMaxScore(); raw > max {
		return max
	}
	return raw
}

// CalculateFinalScore clamps raw into the effective range, applies the effective weight
// and rounds half away from zero to ScorePlaces.
func (a Assignment) CalculateFinalScore(raw int) decimal.Decimal {
	return roundScore(decimal.NewFromInt(int64(a.ClampScore(raw))).Mul(a.EffectiveWeight()))
}

type ScoreInfo struct {
	UseCustomScore   bool            `json:"use_custom_score"`
	MaxScore         int             `json:"max_score"`
	MinScore         int             `json:"min_score"`
	CategoryWeight   decimal.Decimal `json:"category_weight"`
	Multiplier       decimal.Decimal `json:"multiplier"`
	EffectiveWeight  decimal.Decimal `json:"effective_weight"`
	WeightedMaxScore decimal.Decimal `json:"weighted_max_score"`
	ScoreNote        string          `json:"score_note"`
}

func (a Assignment) ScoreInfo() ScoreInfo {
	return ScoreInfo{
		UseCustomScore:   a.UseCustomScore,
		MaxScore:         a.EffectiveMaxScore(),
		MinScore:         a.EffectiveMinScore(),
		CategoryWeight:   weightOrDefault(a.Category.ScoreWeight),
		Multiplier:       weightOrDefault(a.ScoreMultiplier),
		EffectiveWeight:  a.EffectiveWeight(),
		WeightedMaxScore: a.WeightedMaxScore(),
		ScoreNote:        a.ScoreNote,
	}
}

// ScorePercentage is raw/max × 100 with one decimal, computed against the assignment's current max.
func (p Progress) ScorePercentage(a Assignment) (decimal.Decimal, bool) {
	max := a.EffectiveMaxScore()
	if p.RawScore == nil || max <= 0 {
		return decimal.Zero, false
	}
	pct := decimal.NewFromInt(int64(*p.RawScore)).
		Div(decimal.NewFromInt(int64(max))).
		Mul(decimal.NewFromInt(100))
	return pct.Round(1), true
}

func roundScore(d decimal.Decimal) decimal.Decimal {
	return d.Round(ScorePlaces)
}

// weightOrDefault treats an unset (zero) weight as 1.
func weightOrDefault(w decimal.Decimal) decimal.Decimal {
	if w.IsZero() {
		return decimal.NewFromInt(1)
	}
	return w
}
