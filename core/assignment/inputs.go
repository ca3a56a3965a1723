package assignment

import (
	"time"

	"github.com/shopspring/decimal"
)

type NewCategory struct {
	Name         string          `json:"name" validate:"required,notblank,max=100"`
	Description  string          `json:"description" validate:"max=2000"`
	DefaultScore int             `json:"default_score" validate:"min=1,max=1000"`
	MinScore     int             `json:"min_score" validate:"min=0,max=500"`
	ScoreWeight  decimal.Decimal `json:"score_weight" validate:"min=0.1,max=10"`
}

type CategoryScorePolicy struct {
	DefaultScore int             `json:"default_score" validate:"min=1,max=1000"`
	MinScore     int             `json:"min_score" validate:"min=0,max=500"`
	ScoreWeight  decimal.Decimal `json:"score_weight" validate:"min=0.1,max=10"`
}

type NewAssignment struct {
	TeacherID        string           `json:"teacher_id" validate:"required,uuid"`
	CategoryID       string           `json:"category_id" validate:"required,uuid"`
	Title            string           `json:"title" validate:"max=255"`
	Description      string           `json:"description" validate:"max=5000"`
	RequiredQuantity int              `json:"required_quantity" validate:"min=1,max=1000"`
	Deadline         time.Time        `json:"deadline" validate:"required"`
	Priority         Priority         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	UseCustomScore   bool             `json:"use_custom_score"`
	CustomMaxScore   *int             `json:"custom_max_score"`
	CustomMinScore   *int             `json:"custom_min_score"`
	ScoreMultiplier  *decimal.Decimal `json:"score_multiplier"`
	ScoreNote        string           `json:"score_note" validate:"max=500"`
}

// BulkNewAssignments assigns several quotas to one teacher; the items' own teacher_id is ignored.
type BulkNewAssignments struct {
	TeacherID   string          `json:"teacher_id" validate:"required,uuid"`
	Assignments []NewAssignment `json:"assignments" validate:"required,min=1,max=100"`
}

// BulkItemError reports why the item at Index was not created.
type BulkItemError struct {
	Index  int               `json:"index"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type BulkCreateResult struct {
	Created []Assignment    `json:"created"`
	Errors  []BulkItemError `json:"errors"`
}

// UpdateAssignment holds the non-score fields an administrator may edit; nil fields are left unchanged.
type UpdateAssignment struct {
	Title            *string    `json:"title" validate:"omitempty,max=255"`
	Description      *string    `json:"description" validate:"omitempty,max=5000"`
	Priority         *Priority  `json:"priority"`
	Deadline         *time.Time `json:"deadline"`
	RequiredQuantity *int       `json:"required_quantity"`
}

// ScorePolicyChanges is any subset of an assignment's score policy; nil fields are left unchanged.
type ScorePolicyChanges struct {
	UseCustomScore  *bool            `json:"use_custom_score"`
	CustomMaxScore  *int             `json:"custom_max_score"`
	CustomMinScore  *int             `json:"custom_min_score"`
	ScoreMultiplier *decimal.Decimal `json:"score_multiplier"`
	ScoreNote       *string          `json:"score_note"`
}

func (c ScorePolicyChanges) IsEmpty() bool {
	return c.UseCustomScore == nil && c.CustomMaxScore == nil && c.CustomMinScore == nil &&
		c.ScoreMultiplier == nil && c.ScoreNote == nil
}

type BulkScorePolicy struct {
	AssignmentIDs   []string        `json:"assignment_ids" validate:"required,min=1,dive,required"`
	CustomMaxScore  int             `json:"custom_max_score" validate:"min=1,max=1000"`
	ScoreMultiplier decimal.Decimal `json:"score_multiplier" validate:"min=0.1,max=10"`
	ScoreNote       string          `json:"score_note" validate:"max=500"`
}

type BulkResult struct {
	Updated  []string `json:"updated"`
	NotFound []string `json:"not_found"`
	Invalid  []string `json:"invalid"`
}

type NewProgress struct {
	PortfolioID *string `json:"portfolio_id" validate:"omitempty,uuid"`
	Note        string  `json:"note" validate:"max=2000"`
	Counted     *bool   `json:"counted"`
}

type GradeResult struct {
	Progress   Progress        `json:"progress"`
	FinalScore decimal.Decimal `json:"final_score"`
	Status     Status          `json:"status"`
}

type SweepResult struct {
	Checked     int          `json:"checked"`
	Transitions []Transition `json:"transitions"`
	Failed      []string     `json:"failed"`
}
