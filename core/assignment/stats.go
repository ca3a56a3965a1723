package assignment

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/proft/portfolio/core/user"
)

const (
	urgentWindow = 7 * 24 * time.Hour
	urgentLimit  = 10
)

type Summary struct {
	Total              int            `json:"total"`
	ByStatus           map[Status]int `json:"by_status"`
	TotalRequired      int            `json:"total_required"`
	TotalCompleted     int            `json:"total_completed"`
	ProgressPercentage int            `json:"progress_percentage"`
}

type CategorySummary struct {
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Overdue        int    `json:"overdue"`
	TotalRequired  int    `json:"total_required"`
	TotalCompleted int    `json:"total_completed"`
}

type Statistics struct {
	Summary
	CompletionRate  decimal.Decimal     `json:"completion_rate"`
	AverageRawScore decimal.NullDecimal `json:"average_raw_score"`
	ByCategory      []CategorySummary   `json:"by_category"`
}

type Dashboard struct {
	Summary
	Urgent     []Assignment      `json:"urgent"`
	ByCategory []CategorySummary `json:"by_category"`
}

func summarize(assignments []Assignment) (Summary, []CategorySummary) {
	sum := Summary{ByStatus: make(map[Status]int, len(AllStatuses))}
	for _, st := range AllStatuses {
		sum.ByStatus[st] = 0
	}
	byCat := make(map[string]*CategorySummary)
	for _, a := range assignments {
		sum.Total++
		sum.ByStatus[a.Status]++
		sum.TotalRequired += a.RequiredQuantity
		sum.TotalCompleted += a.CompletedQuantity

		cs, ok := byCat[a.CategoryID]
		if !ok {
			cs = &CategorySummary{CategoryID: a.CategoryID, CategoryName: a.Category.Name}
			byCat[a.CategoryID] = cs
		}
		cs.Total++
		cs.TotalRequired += a.RequiredQuantity
		cs.TotalCompleted += a.CompletedQuantity
		switch a.Status {
		case StatusCompleted:
			cs.Completed++
		case StatusOverdue:
			cs.Overdue++
		}
	}
	if sum.TotalRequired > 0 {
		sum.ProgressPercentage = sum.TotalCompleted * 100 / sum.TotalRequired
		if sum.ProgressPercentage > 100 {
			sum.ProgressPercentage = 100
		}
	}

	cats := make([]CategorySummary, 0, len(byCat))
	for _, cs := range byCat {
		cats = append(cats, *cs)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].CategoryName < cats[j].CategoryName })
	return sum, cats
}

// Statistics aggregates the assignments matching filter.
func (svc *Service) Statistics(ctx context.Context, filter QueryFilter, actor user.User) (Statistics, error) {
	if !CanViewStatistics(actor) {
		return Statistics{}, ErrForbidden
	}
	assignments, err := svc.repo.QueryAssignments(ctx, filter)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "querying assignments")
	}

	sum, cats := summarize(assignments)
	stats := Statistics{Summary: sum, CompletionRate: decimal.Zero, ByCategory: cats}
	if sum.Total > 0 {
		stats.CompletionRate = decimal.NewFromInt(int64(sum.ByStatus[StatusCompleted])).
			Div(decimal.NewFromInt(int64(sum.Total))).
			Mul(decimal.NewFromInt(100)).
			Round(1)

		ids := make([]string, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.ID)
		}
		if stats.AverageRawScore, err = svc.repo.AverageRawScore(ctx, ids); err != nil {
			return Statistics{}, errors.Wrap(err, "averaging raw scores")
		}
		if stats.AverageRawScore.Valid {
			stats.AverageRawScore.Decimal = stats.AverageRawScore.Decimal.Round(ScorePlaces)
		}
	}
	return stats, nil
}

// Dashboard summarizes the actor's own assignments, with the open ones due within a week first.
func (svc *Service) Dashboard(ctx context.Context, actor user.User, at time.Time) (Dashboard, error) {
	if !actor.IsActive {
		return Dashboard{}, ErrForbidden
	}
	assignments, err := svc.repo.QueryAssignments(ctx, QueryFilter{TeacherID: actor.ID})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying assignments")
	}

	sum, cats := summarize(assignments)
	urgent := make([]Assignment, 0)
	for _, a := range assignments {
		if a.Status == StatusActive && !a.Deadline.Before(at) && a.Deadline.Sub(at) <= urgentWindow {
			urgent = append(urgent, a)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool { return urgent[i].Deadline.Before(urgent[j].Deadline) })
	if len(urgent) > urgentLimit {
		urgent = urgent[:urgentLimit]
	}
	return Dashboard{Summary: sum, Urgent: urgent, ByCategory: cats}, nil
}
