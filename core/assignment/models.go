package assignment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

var AllStatuses = []Status{StatusActive, StatusCompleted, StatusOverdue, StatusCancelled}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type HistoryAction string

const (
	ActionScoreSet            HistoryAction = "score_set"
	ActionScoreChanged        HistoryAction = "score_changed"
	ActionCustomScoreEnabled  HistoryAction = "custom_score_enabled"
	ActionCustomScoreDisabled HistoryAction = "custom_score_disabled"
	ActionMultiplierChanged   HistoryAction = "multiplier_changed"
	ActionGraded              HistoryAction = "graded"
	ActionBulkUpdated         HistoryAction = "bulk_updated"
	ActionCustomScoreUpdated  HistoryAction = "custom_score_updated"
)

var (
	DefaultScore       = 10
	DefaultScoreWeight = decimal.NewFromInt(1)
	DefaultMultiplier  = decimal.NewFromInt(1)
)

type Category struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	DefaultScore int             `json:"default_score"`
	MinScore     int             `json:"min_score"`
	ScoreWeight  decimal.Decimal `json:"score_weight"`
	IsActive     bool            `json:"is_active"`
	CreatedBy    string          `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Assignment struct {
	ID                string          `json:"id"`
	TeacherID         string          `json:"teacher_id"`
	CategoryID        string          `json:"category_id"`
	Category          Category        `json:"category"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	RequiredQuantity  int             `json:"required_quantity"`
	CompletedQuantity int             `json:"completed_quantity"`
	Deadline          time.Time       `json:"deadline"`
	Status            Status          `json:"status"`
	Priority          Priority        `json:"priority"`
	UseCustomScore    bool            `json:"use_custom_score"`
	CustomMaxScore    *int            `json:"custom_max_score"`
	CustomMinScore    *int            `json:"custom_min_score"`
	ScoreMultiplier   decimal.Decimal `json:"score_multiplier"`
	ScoreNote         string          `json:"score_note"`
	AssignedBy        string          `json:"assigned_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
}

// DisplayTitle falls back to the category name for untitled assignments.
func (a Assignment) DisplayTitle() string {
	if a.Title != "" {
		return a.Title
	}
	return a.Category.Name
}

func (a Assignment) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled
}

func (a Assignment) RemainingQuantity() int {
	if r := a.RequiredQuantity - a.CompletedQuantity; r > 0 {
		return r
	}
	return 0
}

// ProgressPercentage is the share of the quota completed, capped at 100.
func (a Assignment) ProgressPercentage() int {
	if a.RequiredQuantity <= 0 {
		return 0
	}
	pct := a.CompletedQuantity * 100 / a.RequiredQuantity
	if pct > 100 {
		return 100
	}
	return pct
}

func (a Assignment) IsOverdue(now time.Time) bool {
	return now.After(a.Deadline) && a.Status != StatusCompleted && a.Status != StatusCancelled
}

type Progress struct {
	ID           string              `json:"id"`
	AssignmentID string              `json:"assignment_id"`
	PortfolioID  *string             `json:"portfolio_id"`
	Note         string              `json:"note"`
	Counted      bool                `json:"counted"`
	RawScore     *int                `json:"raw_score"`
	FinalScore   decimal.NullDecimal `json:"final_score"`
	GradedBy     string              `json:"graded_by,omitempty"`
	GradedAt     *time.Time          `json:"graded_at"`
	GradeNote    string              `json:"grade_note"`
	CreatedAt    time.Time           `json:"created_at"`
}

func (p Progress) IsGraded() bool { return p.RawScore != nil }

// TriggersRecount reports whether saving the item recomputes the assignment's completed_quantity.
func (p Progress) TriggersRecount() bool {
	return p.Counted && p.PortfolioID != nil
}

type ScoreHistory struct {
	ID           string        `json:"id"`
	AssignmentID string        `json:"assignment_id"`
	ProgressID   *string       `json:"progress_id"`
	Action       HistoryAction `json:"action"`
	OldValue     string        `json:"old_value"`
	NewValue     string        `json:"new_value"`
	Note         string        `json:"note"`
	ChangedBy    string        `json:"changed_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
