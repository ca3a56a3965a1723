package assignment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/proft/portfolio/core"
)

type CategoryFilter struct {
	ActiveOnly bool
	Search     string
}

type QueryFilter struct {
	IDs            []string
	TeacherID      string
	CategoryID     string
	Statuses       []Status
	Priority       Priority
	DeadlineAfter  time.Time
	DeadlineBefore time.Time
	Search         string // case-insensitive match on the title
}

type Repository interface {
	// InTx runs fn inside a single transaction. The Repository passed to fn is bound to it;
	// fn's error rolls everything back.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	CreateCategory(ctx context.Context, cat Category) (Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	QueryCategories(ctx context.Context, filter CategoryFilter) ([]Category, error)
	UpdateCategory(ctx context.Context, cat Category) (Category, error)
	// DeleteCategory fails with ErrCategoryInUse while assignments reference the category.
	DeleteCategory(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	// LockAssignment loads an assignment and holds its row lock until the transaction ends.
	LockAssignment(ctx context.Context, id string) (Assignment, error)
	// LockAssignments locks the existing assignments among ids in id order; unknown ids are skipped.
	LockAssignments(ctx context.Context, ids []string) ([]Assignment, error)
	QueryAssignments(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Assignment, error)
	UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)

	CreateProgress(ctx context.Context, p Progress) (Progress, error)
	GetProgress(ctx context.Context, id string) (Progress, error)
	QueryProgress(ctx context.Context, assignmentID string) ([]Progress, error)
	UpdateProgress(ctx context.Context, p Progress) (Progress, error)
	// CountCountedProgress counts the items of an assignment that count toward its quota.
	CountCountedProgress(ctx context.Context, assignmentID string) (int, error)
	// AverageRawScore averages the graded raw scores of the given assignments.
	AverageRawScore(ctx context.Context, assignmentIDs []string) (decimal.NullDecimal, error)

	AppendHistory(ctx context.Context, h ScoreHistory) (ScoreHistory, error)
	QueryHistory(ctx context.Context, assignmentID string) ([]ScoreHistory, error)
}

// Orderable assignment fields.
var OrderingFields = map[string]bool{
	"deadline":   true,
	"created_at": true,
	"updated_at": true,
	"priority":   true,
	"status":     true,
	"title":      true,
}
