package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
)

type assignmentRepository struct {
	db   core.DB // nil once bound to a transaction
	exec core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db core.DB) assignment.Repository {
	return &assignmentRepository{db: db, exec: db}
}

func (repo *assignmentRepository) InTx(ctx context.Context, fn func(repo assignment.Repository) error) (err error) {
	if repo.db == nil {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return trapErr(err, nil, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&assignmentRepository{exec: tx}); err != nil {
		return err
	}
	return trapErr(tx.Commit(), nil, "committing transaction")
}

// Categories

const categoryColumns = `id, name, description, default_score, min_score, score_weight,
	is_active, created_by, created_at, updated_at`

type categoryRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Description  null.String     `db:"description"`
	DefaultScore int             `db:"default_score"`
	MinScore     int             `db:"min_score"`
	ScoreWeight  decimal.Decimal `db:"score_weight"`
	IsActive     bool            `db:"is_active"`
	CreatedBy    null.String     `db:"created_by"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func toCategoryRow(cat assignment.Category) categoryRow {
	return categoryRow{
		ID:           cat.ID,
		Name:         cat.Name,
		Description:  null.NewString(cat.Description, cat.Description != ""),
		DefaultScore: cat.DefaultScore,
		MinScore:     cat.MinScore,
		ScoreWeight:  cat.ScoreWeight,
		IsActive:     cat.IsActive,
		CreatedBy:    null.NewString(cat.CreatedBy, cat.CreatedBy != ""),
		CreatedAt:    cat.CreatedAt.UTC(),
		UpdatedAt:    cat.UpdatedAt.UTC(),
	}
}

func (r categoryRow) category() assignment.Category {
	return assignment.Category{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description.String,
		DefaultScore: r.DefaultScore,
		MinScore:     r.MinScore,
		ScoreWeight:  r.ScoreWeight,
		IsActive:     r.IsActive,
		CreatedBy:    r.CreatedBy.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo *assignmentRepository) CreateCategory(ctx context.Context, cat assignment.Category) (assignment.Category, error) {
	cat.ID = uuid.New().String()
	q := `INSERT INTO categories (` + categoryColumns + `)
		VALUES (:id, :name, :description, :default_score, :min_score, :score_weight,
			:is_active, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toCategoryRow(cat)); err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return assignment.Category{}, assignment.ErrCategoryExists
		}
		return assignment.Category{}, trapErr(err, nil, "inserting category")
	}
	return cat, nil
}

func (repo *assignmentRepository) GetCategory(ctx context.Context, id string) (assignment.Category, error) {
	if !isUUID(id) {
		return assignment.Category{}, assignment.ErrCategoryNotFound
	}
	var row categoryRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id); err != nil {
		return assignment.Category{}, trapErr(err, assignment.ErrCategoryNotFound, "getting category")
	}
	return row.category(), nil
}

func (repo *assignmentRepository) QueryCategories(ctx context.Context, filter assignment.CategoryFilter) ([]assignment.Category, error) {
	var conds []string
	var args []interface{}
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	q := `SELECT ` + categoryColumns + ` FROM categories`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY name"

	var rows []categoryRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]assignment.Category, 0, len(rows))
	for _, r := range rows {
		cats = append(cats, r.category())
	}
	return cats, nil
}

func (repo *assignmentRepository) UpdateCategory(ctx context.Context, cat assignment.Category) (assignment.Category, error) {
	q := `UPDATE categories SET name = :name, description = :description, default_score = :default_score,
		min_score = :min_score, score_weight = :score_weight, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toCategoryRow(cat))
	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return assignment.Category{}, assignment.ErrCategoryExists
		}
		return assignment.Category{}, trapErr(err, nil, "updating category")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Category{}, assignment.ErrCategoryNotFound
	}
	return cat, nil
}

func (repo *assignmentRepository) DeleteCategory(ctx context.Context, id string) error {
	if !isUUID(id) {
		return assignment.ErrCategoryNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return assignment.ErrCategoryInUse
		}
		return trapErr(err, nil, "deleting category")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.ErrCategoryNotFound
	}
	return nil
}

// Assignments

const assignmentSelect = `SELECT a.id, a.teacher_id, a.category_id, a.title, a.description,
	a.required_quantity, a.completed_quantity, a.deadline, a.status, a.priority,
	a.use_custom_score, a.custom_max_score, a.custom_min_score, a.score_multiplier, a.score_note,
	a.assigned_by, a.created_at, a.updated_at, a.completed_at,
	c.id AS "category.id", c.name AS "category.name", c.description AS "category.description",
	c.default_score AS "category.default_score", c.min_score AS "category.min_score",
	c.score_weight AS "category.score_weight", c.is_active AS "category.is_active",
	c.created_by AS "category.created_by", c.created_at AS "category.created_at",
	c.updated_at AS "category.updated_at"
	FROM assignments a JOIN categories c ON c.id = a.category_id`

type assignmentRow struct {
	ID                string          `db:"id"`
	TeacherID         string          `db:"teacher_id"`
	CategoryID        string          `db:"category_id"`
	Category          categoryRow     `db:"category"`
	Title             null.String     `db:"title"`
	Description       null.String     `db:"description"`
	RequiredQuantity  int             `db:"required_quantity"`
	CompletedQuantity int             `db:"completed_quantity"`
	Deadline          time.Time       `db:"deadline"`
	Status            string          `db:"status"`
	Priority          string          `db:"priority"`
	UseCustomScore    bool            `db:"use_custom_score"`
	CustomMaxScore    null.Int        `db:"custom_max_score"`
	CustomMinScore    null.Int        `db:"custom_min_score"`
	ScoreMultiplier   decimal.Decimal `db:"score_multiplier"`
	ScoreNote         null.String     `db:"score_note"`
	AssignedBy        null.String     `db:"assigned_by"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	CompletedAt       null.Time       `db:"completed_at"`
}

func toAssignmentRow(a assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:                a.ID,
		TeacherID:         a.TeacherID,
		CategoryID:        a.CategoryID,
		Title:             null.NewString(a.Title, a.Title != ""),
		Description:       null.NewString(a.Description, a.Description != ""),
		RequiredQuantity:  a.RequiredQuantity,
		CompletedQuantity: a.CompletedQuantity,
		Deadline:          a.Deadline.UTC(),
		Status:            string(a.Status),
		Priority:          string(a.Priority),
		UseCustomScore:    a.UseCustomScore,
		CustomMaxScore:    null.IntFromPtr(a.CustomMaxScore),
		CustomMinScore:    null.IntFromPtr(a.CustomMinScore),
		ScoreMultiplier:   a.ScoreMultiplier,
		ScoreNote:         null.NewString(a.ScoreNote, a.ScoreNote != ""),
		AssignedBy:        null.NewString(a.AssignedBy, a.AssignedBy != ""),
		CreatedAt:         a.CreatedAt.UTC(),
		UpdatedAt:         a.UpdatedAt.UTC(),
		CompletedAt:       null.TimeFromPtr(a.CompletedAt),
	}
}

func (r assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:                r.ID,
		TeacherID:         r.TeacherID,
		CategoryID:        r.CategoryID,
		Category:          r.Category.category(),
		Title:             r.Title.String,
		Description:       r.Description.String,
		RequiredQuantity:  r.RequiredQuantity,
		CompletedQuantity: r.CompletedQuantity,
		Deadline:          r.Deadline,
		Status:            assignment.Status(r.Status),
		Priority:          assignment.Priority(r.Priority),
		UseCustomScore:    r.UseCustomScore,
		CustomMaxScore:    r.CustomMaxScore.Ptr(),
		CustomMinScore:    r.CustomMinScore.Ptr(),
		ScoreMultiplier:   r.ScoreMultiplier,
		ScoreNote:         r.ScoreNote.String,
		AssignedBy:        r.AssignedBy.String,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		CompletedAt:       r.CompletedAt.Ptr(),
	}
}

func assignmentsOf(rows []assignmentRow) []assignment.Assignment {
	out := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.assignment())
	}
	return out
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	q := `INSERT INTO assignments (id, teacher_id, category_id, title, description, required_quantity,
			completed_quantity, deadline, status, priority, use_custom_score, custom_max_score, custom_min_score,
			score_multiplier, score_note, assigned_by, created_at, updated_at, completed_at)
		VALUES (:id, :teacher_id, :category_id, :title, :description, :required_quantity,
			:completed_quantity, :deadline, :status, :priority, :use_custom_score, :custom_max_score, :custom_min_score,
			:score_multiplier, :score_note, :assigned_by, :created_at, :updated_at, :completed_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toAssignmentRow(a)); err != nil {
		return assignment.Assignment{}, trapErr(err, nil, "inserting assignment")
	}
	return repo.GetAssignment(ctx, a.ID)
}

func (repo *assignmentRepository) getAssignment(ctx context.Context, id, suffix string) (assignment.Assignment, error) {
	if !isUUID(id) {
		return assignment.Assignment{}, assignment.ErrAssignmentNotFound
	}
	var row assignmentRow
	if err := repo.exec.GetContext(ctx, &row, assignmentSelect+` WHERE a.id = $1`+suffix, id); err != nil {
		return assignment.Assignment{}, trapErr(err, assignment.ErrAssignmentNotFound, "getting assignment")
	}
	return row.assignment(), nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.getAssignment(ctx, id, "")
}

func (repo *assignmentRepository) LockAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.getAssignment(ctx, id, " FOR UPDATE OF a")
}

func (repo *assignmentRepository) LockAssignments(ctx context.Context, ids []string) ([]assignment.Assignment, error) {
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return []assignment.Assignment{}, nil
	}
	var rows []assignmentRow
	q := assignmentSelect + ` WHERE a.id = ANY($1::uuid[]) ORDER BY a.id FOR UPDATE OF a`
	if err := repo.exec.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return nil, trapErr(err, nil, "locking assignments")
	}
	return assignmentsOf(rows), nil
}

var orderingColumns = map[string]string{
	"deadline":   "a.deadline",
	"created_at": "a.created_at",
	"updated_at": "a.updated_at",
	"priority":   "CASE a.priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END",
	"status":     "a.status",
	"title":      "a.title",
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter assignment.QueryFilter, ordering ...core.DBOrdering) ([]assignment.Assignment, error) {
	var conds []string
	var args []interface{}
	where := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if len(filter.IDs) > 0 {
		where("a.id = ANY(?::uuid[])", pq.Array(validUUIDs(filter.IDs)))
	}
	if filter.TeacherID != "" {
		if !isUUID(filter.TeacherID) {
			return []assignment.Assignment{}, nil
		}
		where("a.teacher_id = ?", filter.TeacherID)
	}
	if filter.CategoryID != "" {
		if !isUUID(filter.CategoryID) {
			return []assignment.Assignment{}, nil
		}
		where("a.category_id = ?", filter.CategoryID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		where("a.status = ANY(?)", pq.Array(statuses))
	}
	if filter.Priority != "" {
		where("a.priority = ?", string(filter.Priority))
	}
	if !filter.DeadlineAfter.IsZero() {
		where("a.deadline >= ?", filter.DeadlineAfter.UTC())
	}
	if !filter.DeadlineBefore.IsZero() {
		where("a.deadline < ?", filter.DeadlineBefore.UTC())
	}
	if filter.Search != "" {
		where("a.title ILIKE ?", "%"+filter.Search+"%")
	}

	q := assignmentSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := orderingColumns[ord.Field]
		if !ok {
			return nil, errors.Errorf("cannot order assignments by %q", ord.Field)
		}
		orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(orderList) == 0 {
		orderList = append(orderList, "a.deadline ASC")
	}
	q += " ORDER BY " + strings.Join(append(orderList, "a.id"), ", ")

	var rows []assignmentRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignmentsOf(rows), nil
}

func (repo *assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	q := `UPDATE assignments SET title = :title, description = :description,
			required_quantity = :required_quantity, completed_quantity = :completed_quantity,
			deadline = :deadline, status = :status, priority = :priority, use_custom_score = :use_custom_score,
			custom_max_score = :custom_max_score, custom_min_score = :custom_min_score,
			score_multiplier = :score_multiplier, score_note = :score_note,
			updated_at = :updated_at, completed_at = :completed_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toAssignmentRow(a))
	if err != nil {
		return assignment.Assignment{}, trapErr(err, nil, "updating assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Assignment{}, assignment.ErrAssignmentNotFound
	}
	return a, nil
}
