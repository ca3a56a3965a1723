package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/proft/portfolio/core/assignment"
)

// Progress

const progressColumns = `id, assignment_id, portfolio_id, note, counted, raw_score, final_score,
	graded_by, graded_at, grade_note, created_at`

type progressRow struct {
	ID           string              `db:"id"`
	AssignmentID string              `db:"assignment_id"`
	PortfolioID  null.String         `db:"portfolio_id"`
	Note         null.String         `db:"note"`
	Counted      bool                `db:"counted"`
	RawScore     null.Int            `db:"raw_score"`
	FinalScore   decimal.NullDecimal `db:"final_score"`
	GradedBy     null.String         `db:"graded_by"`
	GradedAt     null.Time           `db:"graded_at"`
	GradeNote    null.String         `db:"grade_note"`
	CreatedAt    time.Time           `db:"created_at"`
}

func toProgressRow(p assignment.Progress) progressRow {
	return progressRow{
		ID:           p.ID,
		AssignmentID: p.AssignmentID,
		PortfolioID:  null.StringFromPtr(p.PortfolioID),
		Note:         null.NewString(p.Note, p.Note != ""),
		Counted:      p.Counted,
		RawScore:     null.IntFromPtr(p.RawScore),
		FinalScore:   p.FinalScore,
		GradedBy:     null.NewString(p.GradedBy, p.GradedBy != ""),
		GradedAt:     null.TimeFromPtr(p.GradedAt),
		GradeNote:    null.NewString(p.GradeNote, p.GradeNote != ""),
		CreatedAt:    p.CreatedAt.UTC(),
	}
}

func (r progressRow) progress() assignment.Progress {
	return assignment.Progress{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		PortfolioID:  r.PortfolioID.Ptr(),
		Note:         r.Note.String,
		Counted:      r.Counted,
		RawScore:     r.RawScore.Ptr(),
		FinalScore:   r.FinalScore,
		GradedBy:     r.GradedBy.String,
		GradedAt:     r.GradedAt.Ptr(),
		GradeNote:    r.GradeNote.String,
		CreatedAt:    r.CreatedAt,
	}
}

func (repo *assignmentRepository) CreateProgress(ctx context.Context, p assignment.Progress) (assignment.Progress, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO assignment_progress (` + progressColumns + `)
		VALUES (:id, :assignment_id, :portfolio_id, :note, :counted, :raw_score, :final_score,
			:graded_by, :graded_at, :grade_note, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, toProgressRow(p)); err != nil {
		return assignment.Progress{}, trapErr(err, nil, "inserting progress")
	}
	return p, nil
}

func (repo *assignmentRepository) GetProgress(ctx context.Context, id string) (assignment.Progress, error) {
	if !isUUID(id) {
		return assignment.Progress{}, assignment.ErrProgressNotFound
	}
	var row progressRow
	q := `SELECT ` + progressColumns + ` FROM assignment_progress WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		return assignment.Progress{}, trapErr(err, assignment.ErrProgressNotFound, "getting progress")
	}
	return row.progress(), nil
}

func (repo *assignmentRepository) QueryProgress(ctx context.Context, assignmentID string) ([]assignment.Progress, error) {
	if !isUUID(assignmentID) {
		return []assignment.Progress{}, nil
	}
	var rows []progressRow
	q := `SELECT ` + progressColumns + ` FROM assignment_progress WHERE assignment_id = $1 ORDER BY created_at, id`
	if err := repo.exec.SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	items := make([]assignment.Progress, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.progress())
	}
	return items, nil
}

func (repo *assignmentRepository) UpdateProgress(ctx context.Context, p assignment.Progress) (assignment.Progress, error) {
	q := `UPDATE assignment_progress SET portfolio_id = :portfolio_id, note = :note, counted = :counted,
			raw_score = :raw_score, final_score = :final_score, graded_by = :graded_by,
			graded_at = :graded_at, grade_note = :grade_note
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, toProgressRow(p))
	if err != nil {
		return assignment.Progress{}, trapErr(err, nil, "updating progress")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Progress{}, assignment.ErrProgressNotFound
	}
	return p, nil
}

func (repo *assignmentRepository) CountCountedProgress(ctx context.Context, assignmentID string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM assignment_progress WHERE assignment_id = $1 AND counted`
	if err := repo.exec.GetContext(ctx, &n, q, assignmentID); err != nil {
		return 0, trapErr(err, nil, "counting progress")
	}
	return n, nil
}

func (repo *assignmentRepository) AverageRawScore(ctx context.Context, assignmentIDs []string) (decimal.NullDecimal, error) {
	var avg decimal.NullDecimal
	ids := validUUIDs(assignmentIDs)
	if len(ids) == 0 {
		return avg, nil
	}
	q := `SELECT AVG(raw_score) FROM assignment_progress WHERE assignment_id = ANY($1::uuid[]) AND raw_score IS NOT NULL`
	if err := repo.exec.GetContext(ctx, &avg, q, pq.Array(ids)); err != nil {
		return decimal.NullDecimal{}, errors.Wrap(err, "averaging raw scores")
	}
	return avg, nil
}

// History

const historyColumns = `id, assignment_id, progress_id, action, old_value, new_value, note, changed_by, created_at`

type historyRow struct {
	ID           string      `db:"id"`
	AssignmentID string      `db:"assignment_id"`
	ProgressID   null.String `db:"progress_id"`
	Action       string      `db:"action"`
	OldValue     null.String `db:"old_value"`
	NewValue     null.String `db:"new_value"`
	Note         null.String `db:"note"`
	ChangedBy    null.String `db:"changed_by"`
	CreatedAt    time.Time   `db:"created_at"`
}

func (repo *assignmentRepository) AppendHistory(ctx context.Context, h assignment.ScoreHistory) (assignment.ScoreHistory, error) {
	h.ID = uuid.New().String()
	row := historyRow{
		ID:           h.ID,
		AssignmentID: h.AssignmentID,
		ProgressID:   null.StringFromPtr(h.ProgressID),
		Action:       string(h.Action),
		OldValue:     null.NewString(h.OldValue, h.OldValue != ""),
		NewValue:     null.NewString(h.NewValue, h.NewValue != ""),
		Note:         null.NewString(h.Note, h.Note != ""),
		ChangedBy:    null.NewString(h.ChangedBy, h.ChangedBy != ""),
		CreatedAt:    h.CreatedAt.UTC(),
	}
	q := `INSERT INTO score_history (` + historyColumns + `)
		VALUES (:id, :assignment_id, :progress_id, :action, :old_value, :new_value, :note, :changed_by, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, row); err != nil {
		return assignment.ScoreHistory{}, trapErr(err, nil, "inserting score history")
	}
	return h, nil
}

func (repo *assignmentRepository) QueryHistory(ctx context.Context, assignmentID string) ([]assignment.ScoreHistory, error) {
	if !isUUID(assignmentID) {
		return []assignment.ScoreHistory{}, nil
	}
	var rows []historyRow
	q := `SELECT ` + historyColumns + ` FROM score_history WHERE assignment_id = $1 ORDER BY created_at DESC`
	if err := repo.exec.SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "querying score history")
	}
	out := make([]assignment.ScoreHistory, 0, len(rows))
	for _, r := range rows {
		out = append(out, assignment.ScoreHistory{
			ID:           r.ID,
			AssignmentID: r.AssignmentID,
			ProgressID:   r.ProgressID.Ptr(),
			Action:       assignment.HistoryAction(r.Action),
			OldValue:     r.OldValue.String,
			NewValue:     r.NewValue.String,
			Note:         r.Note.String,
			ChangedBy:    r.ChangedBy.String,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, nil
}
