package assignment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/proft/portfolio/core"
)

const (
	MaxCustomMaxScore = 1000
	MaxCustomMinScore = 500
	MaxScoreNoteLen   = 500
)

var (
	MinMultiplier = decimal.RequireFromString("0.1")
	MaxMultiplier = decimal.NewFromInt(10)

	// custom validation tags & texts
	maxScoreRangeTag    = "maxscore_range"
	maxScoreRangeText   = "{0} must be between 1 and 1000"
	minScoreRangeTag    = "minscore_range"
	minScoreRangeText   = "{0} must be between 0 and 500"
	multiplierRangeTag  = "multiplier_range"
	multiplierRangeText = "{0} must be between 0.1 and 10.0"
	noteLenTag          = "note_len"
	noteLenText         = "{0} must be at most 500 characters"
	quantityTag         = "quantity"
	quantityText        = "{0} must be between 1 and 1000"
	priorityTag         = "priority"
	priorityText        = "{0} must be one of low, medium, high, urgent"
)

// InitValidators registers the assignment validations on validate.
// It expects core.InitValidators to have run on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(scorePolicyChangesValidation, ScorePolicyChanges{})
	validate.RegisterStructValidation(newAssignmentValidation, NewAssignment{})
	validate.RegisterStructValidation(updateAssignmentValidation, UpdateAssignment{})

	core.RegisterCustomTranslation(validate, translator, maxScoreRangeTag, maxScoreRangeText)
	core.RegisterCustomTranslation(validate, translator, minScoreRangeTag, minScoreRangeText)
	core.RegisterCustomTranslation(validate, translator, multiplierRangeTag, multiplierRangeText)
	core.RegisterCustomTranslation(validate, translator, noteLenTag, noteLenText)
	core.RegisterCustomTranslation(validate, translator, quantityTag, quantityText)
	core.RegisterCustomTranslation(validate, translator, priorityTag, priorityText)
}

func validMultiplier(m decimal.Decimal) bool {
	return m.GreaterThanOrEqual(MinMultiplier) && m.LessThanOrEqual(MaxMultiplier)
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func validateScoreOverrides(sl validator.StructLevel, max, min *int, mult *decimal.Decimal) {
	if max != nil && (*max < 1 || *max > MaxCustomMaxScore) {
		sl.ReportError(*max, "custom_max_score", "CustomMaxScore", maxScoreRangeTag, "")
	}
	if min != nil && (*min < 0 || *min > MaxCustomMinScore) {
		sl.ReportError(*min, "custom_min_score", "CustomMinScore", minScoreRangeTag, "")
	}
	if mult != nil && !validMultiplier(*mult) {
		sl.ReportError(mult.String(), "score_multiplier", "ScoreMultiplier", multiplierRangeTag, "")
	}
}

func scorePolicyChangesValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(ScorePolicyChanges)
	validateScoreOverrides(sl, c.CustomMaxScore, c.CustomMinScore, c.ScoreMultiplier)
	if c.ScoreNote != nil && len([]rune(*c.ScoreNote)) > MaxScoreNoteLen {
		sl.ReportError(*c.ScoreNote, "score_note", "ScoreNote", noteLenTag, "")
	}
}

func newAssignmentValidation(sl validator.StructLevel) {
	na := sl.Current().Interface().(NewAssignment)
	validateScoreOverrides(sl, na.CustomMaxScore, na.CustomMinScore, na.ScoreMultiplier)
}

func updateAssignmentValidation(sl validator.StructLevel) {
	ua := sl.Current().Interface().(UpdateAssignment)
	if ua.RequiredQuantity != nil && (*ua.RequiredQuantity < 1 || *ua.RequiredQuantity > 1000) {
		sl.ReportError(*ua.RequiredQuantity, "required_quantity", "RequiredQuantity", quantityTag, "")
	}
	if ua.Priority != nil && !validPriority(*ua.Priority) {
		sl.ReportError(string(*ua.Priority), "priority", "Priority", priorityTag, "")
	}
}
