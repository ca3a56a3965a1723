package assignment

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
)

// SubmitProgress records a new item of work from the assignment's teacher.
func (svc *Service) SubmitProgress(ctx context.Context, assignmentID string, np NewProgress, actor user.User) (Progress, error) {
	if err := svc.validate.Struct(np); err != nil {
		return Progress{}, err
	}

	var p Progress
	err := svc.inTx(ctx, func(repo Repository, emit func(...Event)) error {
		a, err := repo.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if !CanSubmitProgress(actor, a) {
			return ErrForbidden
		}
		if a.IsTerminal() {
			return core.NewValidationError(ErrAssignmentClosed, core.FieldError{
				Field: "status",
				Error: "cannot submit to a " + string(a.Status) + " assignment",
			})
		}

		at := now()
		p = Progress{
			AssignmentID: a.ID,
			PortfolioID:  np.PortfolioID,
			Note:         np.Note,
			Counted:      np.Counted == nil || *np.Counted,
			CreatedAt:    at,
		}
		if p, err = repo.CreateProgress(ctx, p); err != nil {
			return errors.Wrap(err, "creating progress")
		}

		if p.TriggersRecount() {
			tr, changed, err := recount(ctx, repo, &a, at)
			if err != nil {
				return err
			}
			a.UpdatedAt = at
			if a, err = repo.UpdateAssignment(ctx, a); err != nil {
				return errors.Wrap(err, "updating assignment")
			}
			if changed {
				emit(statusChangedEvent(a, tr, actor.ID))
			}
		}
		progress := p
		emit(Event{Kind: EventProgressSubmitted, Assignment: a, Progress: &progress, ActorID: actor.ID, OccurredAt: at})
		return nil
	})
	if err != nil {
		return Progress{}, err
	}
	return p, nil
}

// QueryProgress lists the items submitted for an assignment.
func (svc *Service) QueryProgress(ctx context.Context, assignmentID string, actor user.User) ([]Progress, error) {
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if !CanViewAssignment(actor, a) {
		return nil, ErrForbidden
	}
	return svc.repo.QueryProgress(ctx, assignmentID)
}

// Grade sets the raw score of a progress item, computes its weighted final score with the
// assignment's current weight and updates the assignment's completed quantity and status.
// Raw scores outside the assignment's range are clamped.
func (svc *Service) Grade(ctx context.Context, progressID string, rawScore int, grader user.User, note string) (GradeResult, error) {
	if !CanGrade(grader) {
		return GradeResult{}, ErrForbidden
	}
	if rawScore < 0 {
		return GradeResult{}, core.NewValidationError(ErrOutOfBoundsScore, core.FieldError{
			Field: "raw_score",
			Error: "score must be a non-negative integer",
		})
	}

	var res GradeResult
	err := svc.inTx(ctx, func(repo Repository, emit func(...Event)) error {
		p, err := repo.GetProgress(ctx, progressID)
		if err != nil {
			return err
		}
		// lock the parent first, then re-read the item under the lock
		a, err := repo.LockAssignment(ctx, p.AssignmentID)
		if err != nil {
			return err
		}
		if p, err = repo.GetProgress(ctx, progressID); err != nil {
			return err
		}

		at := now()
		oldValue := gradeSnapshotOf(p)
		final := a.CalculateFinalScore(rawScore)
		raw := rawScore
		p.RawScore = &raw
		p.FinalScore = decimal.NullDecimal{Decimal: final, Valid: true}
		p.GradedBy = grader.ID
		p.GradedAt = &at
		if note != "" {
			p.GradeNote = note
		}
		if p, err = repo.UpdateProgress(ctx, p); err != nil {
			return errors.Wrap(err, "updating progress")
		}
		if _, err = appendHistory(ctx, repo, a, &p.ID, ActionGraded, oldValue, gradeSnapshotOf(p), note, grader.ID); err != nil {
			return err
		}

		if p.TriggersRecount() {
			tr, changed, err := recount(ctx, repo, &a, at)
			if err != nil {
				return err
			}
			a.UpdatedAt = at
			if a, err = repo.UpdateAssignment(ctx, a); err != nil {
				return errors.Wrap(err, "updating assignment")
			}
			if changed {
				emit(statusChangedEvent(a, tr, grader.ID))
			}
		}

		graded := p
		emit(Event{Kind: EventProgressGraded, Assignment: a, Progress: &graded, ActorID: grader.ID, OccurredAt: at})
		res = GradeResult{Progress: p, FinalScore: final, Status: a.Status}
		return nil
	})
	if err != nil {
		return GradeResult{}, err
	}
	return res, nil
}
