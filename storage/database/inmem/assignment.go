package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
)

type assignmentRepository struct {
	db   *DB
	inTx bool
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) InTx(ctx context.Context, fn func(repo assignment.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	repo.db.txMu.Lock()
	defer repo.db.txMu.Unlock()

	snap := repo.db.snapshot()
	if err := fn(&assignmentRepository{db: repo.db, inTx: true}); err != nil {
		repo.db.restore(snap)
		return err
	}
	return nil
}

// Categories

func (repo *assignmentRepository) CreateCategory(_ context.Context, cat assignment.Category) (assignment.Category, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		for _, c := range repo.db.categories {
			if strings.EqualFold(c.Name, cat.Name) {
				err = assignment.ErrCategoryExists
				return
			}
		}
		cat.ID = uuid.New().String()
		repo.db.categories[cat.ID] = cat
	})
	if err != nil {
		return assignment.Category{}, err
	}
	return cat, nil
}

func (repo *assignmentRepository) GetCategory(_ context.Context, id string) (assignment.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if cat, ok := repo.db.categories[id]; ok {
		return cat, nil
	}
	return assignment.Category{}, assignment.ErrCategoryNotFound
}

func (repo *assignmentRepository) QueryCategories(_ context.Context, filter assignment.CategoryFilter) ([]assignment.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	cats := make([]assignment.Category, 0, len(repo.db.categories))
	for _, cat := range repo.db.categories {
		if filter.ActiveOnly && !cat.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(cat.Name), search) {
			continue
		}
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *assignmentRepository) UpdateCategory(_ context.Context, cat assignment.Category) (assignment.Category, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.categories[cat.ID]; !ok {
			err = assignment.ErrCategoryNotFound
			return
		}
		for _, c := range repo.db.categories {
			if c.ID != cat.ID && strings.EqualFold(c.Name, cat.Name) {
				err = assignment.ErrCategoryExists
				return
			}
		}
		repo.db.categories[cat.ID] = cat
	})
	if err != nil {
		return assignment.Category{}, err
	}
	return cat, nil
}

func (repo *assignmentRepository) DeleteCategory(_ context.Context, id string) error {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.categories[id]; !ok {
			err = assignment.ErrCategoryNotFound
			return
		}
		for _, a := range repo.db.assignments {
			if a.CategoryID == id {
				err = assignment.ErrCategoryInUse
				return
			}
		}
		delete(repo.db.categories, id)
	})
	return err
}

// Assignments

// withCategory joins the current category in; callers hold db.mu.
func (repo *assignmentRepository) withCategory(a assignment.Assignment) assignment.Assignment {
	a.Category = repo.db.categories[a.CategoryID]
	return a
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.categories[a.CategoryID]; !ok {
			err = assignment.ErrCategoryNotFound
			return
		}
		a.ID = uuid.New().String()
		a.Category = assignment.Category{}
		repo.db.assignments[a.ID] = a
		a = repo.withCategory(a)
	})
	if err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if a, ok := repo.db.assignments[id]; ok {
		return repo.withCategory(a), nil
	}
	return assignment.Assignment{}, assignment.ErrAssignmentNotFound
}

// LockAssignment is a plain read: transactions are already serialized.
func (repo *assignmentRepository) LockAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.GetAssignment(ctx, id)
}

func (repo *assignmentRepository) LockAssignments(_ context.Context, ids []string) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make([]assignment.Assignment, 0, len(sorted))
	for _, id := range sorted {
		if a, ok := repo.db.assignments[id]; ok {
			out = append(out, repo.withCategory(a))
		}
	}
	return out, nil
}

func matches(a assignment.Assignment, filter assignment.QueryFilter) bool {
	if len(filter.IDs) > 0 && !containsString(filter.IDs, a.ID) {
		return false
	}
	if filter.TeacherID != "" && a.TeacherID != filter.TeacherID {
		return false
	}
	if filter.CategoryID != "" && a.CategoryID != filter.CategoryID {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if a.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Priority != "" && a.Priority != filter.Priority {
		return false
	}
	if !filter.DeadlineAfter.IsZero() && a.Deadline.Before(filter.DeadlineAfter) {
		return false
	}
	if !filter.DeadlineBefore.IsZero() && !a.Deadline.Before(filter.DeadlineBefore) {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(filter.Search)) {
		return false
	}
	return true
}

var priorityRank = map[assignment.Priority]int{
	assignment.PriorityLow:    0,
	assignment.PriorityMedium: 1,
	assignment.PriorityHigh:   2,
	assignment.PriorityUrgent: 3,
}

// compare returns <0, 0, >0 for a vs b on field.
func compare(a, b assignment.Assignment, field string) int {
	switch field {
	case "deadline":
		return a.Deadline.Compare(b.Deadline)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "priority":
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "title":
		return strings.Compare(a.Title, b.Title)
	}
	return 0
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, filter assignment.QueryFilter, ordering ...core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if matches(a, filter) {
			out = append(out, repo.withCategory(a))
		}
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "deadline", Ascending: true}}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(out[i], out[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.assignments[a.ID]; !ok {
			err = assignment.ErrAssignmentNotFound
			return
		}
		a.Category = assignment.Category{}
		repo.db.assignments[a.ID] = a
		a = repo.withCategory(a)
	})
	if err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}

// Progress

func (repo *assignmentRepository) CreateProgress(_ context.Context, p assignment.Progress) (assignment.Progress, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.assignments[p.AssignmentID]; !ok {
			err = assignment.ErrAssignmentNotFound
			return
		}
		p.ID = uuid.New().String()
		repo.db.progress[p.ID] = p
	})
	if err != nil {
		return assignment.Progress{}, err
	}
	return p, nil
}

func (repo *assignmentRepository) GetProgress(_ context.Context, id string) (assignment.Progress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if p, ok := repo.db.progress[id]; ok {
		return p, nil
	}
	return assignment.Progress{}, assignment.ErrProgressNotFound
}

func (repo *assignmentRepository) QueryProgress(_ context.Context, assignmentID string) ([]assignment.Progress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]assignment.Progress, 0)
	for _, p := range repo.db.progress {
		if p.AssignmentID == assignmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (repo *assignmentRepository) UpdateProgress(_ context.Context, p assignment.Progress) (assignment.Progress, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.progress[p.ID]; !ok {
			err = assignment.ErrProgressNotFound
			return
		}
		repo.db.progress[p.ID] = p
	})
	if err != nil {
		return assignment.Progress{}, err
	}
	return p, nil
}

func (repo *assignmentRepository) CountCountedProgress(_ context.Context, assignmentID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, p := range repo.db.progress {
		if p.AssignmentID == assignmentID && p.Counted {
			n++
		}
	}
	return n, nil
}

func (repo *assignmentRepository) AverageRawScore(_ context.Context, assignmentIDs []string) (decimal.NullDecimal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var sum, n int64
	for _, p := range repo.db.progress {
		if p.RawScore != nil && containsString(assignmentIDs, p.AssignmentID) {
			sum += int64(*p.RawScore)
			n++
		}
	}
	if n == 0 {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(sum).Div(decimal.NewFromInt(n))), nil
}

// History

func (repo *assignmentRepository) AppendHistory(_ context.Context, h assignment.ScoreHistory) (assignment.ScoreHistory, error) {
	var err error
	repo.db.write(repo.inTx, func() {
		if _, ok := repo.db.assignments[h.AssignmentID]; !ok {
			err = assignment.ErrAssignmentNotFound
			return
		}
		h.ID = uuid.New().String()
		repo.db.history = append(repo.db.history, h)
	})
	if err != nil {
		return assignment.ScoreHistory{}, err
	}
	return h, nil
}

func (repo *assignmentRepository) QueryHistory(_ context.Context, assignmentID string) ([]assignment.ScoreHistory, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]assignment.ScoreHistory, 0)
	// newest first; history is append-only so walking backwards is enough
	for i := len(repo.db.history) - 1; i >= 0; i-- {
		if h := repo.db.history[i]; h.AssignmentID == assignmentID {
			out = append(out, h)
		}
	}
	return out, nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
