package assignment

import (
	"context"
	"errors"
	"sort"

	pkgerrors "github.com/pkg/errors"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
)

var errNoChanges = errors.New("no score policy changes given")

// applyScoreChanges applies c to a. Setting a custom max score turns the override on.
func applyScoreChanges(a *Assignment, c ScorePolicyChanges) {
	if c.UseCustomScore != nil {
		a.UseCustomScore = *c.UseCustomScore
	}
	if c.CustomMinScore != nil {
		v := *c.CustomMinScore
		a.CustomMinScore = &v
	}
	if c.ScoreMultiplier != nil {
		a.ScoreMultiplier = c.ScoreMultiplier.Round(ScorePlaces)
	}
	if c.ScoreNote != nil {
		a.ScoreNote = core.CleanString(*c.ScoreNote)
	}
	if c.CustomMaxScore != nil {
		v := *c.CustomMaxScore
		a.CustomMaxScore = &v
		a.UseCustomScore = true
	}
}

// rangeField names the field to blame when c breaks the score range.
func (c ScorePolicyChanges) rangeField() string {
	switch {
	case c.CustomMinScore != nil:
		return "custom_min_score"
	case c.CustomMaxScore != nil:
		return "custom_max_score"
	default:
		return "use_custom_score"
	}
}

// UpdateAssignmentScorePolicy changes the score policy of an assignment.
// The change is applied entirely or not at all, and recorded in the score history.
func (svc *Service) UpdateAssignmentScorePolicy(ctx context.Context, id string, changes ScorePolicyChanges, actor user.User, reason string) (Assignment, error) {
	if !CanManageScores(actor) {
		return Assignment{}, ErrForbidden
	}
	if changes.IsEmpty() {
		return Assignment{}, core.NewValidationError(errNoChanges)
	}
	if err := svc.validate.Struct(changes); err != nil {
		return Assignment{}, err
	}

	var a Assignment
	err := svc.inTx(ctx, func(repo Repository, _ func(...Event)) error {
		var err error
		if a, err = repo.LockAssignment(ctx, id); err != nil {
			return err
		}
		oldValue := policySnapshotOf(a)
		applyScoreChanges(&a, changes)
		if err = checkScoreRange(a, changes.rangeField()); err != nil {
			return err
		}

		a.UpdatedAt = now()
		if a, err = repo.UpdateAssignment(ctx, a); err != nil {
			return pkgerrors.Wrap(err, "updating assignment")
		}
		note := reason
		if note == "" {
			note = a.ScoreNote
		}
		_, err = appendHistory(ctx, repo, a, nil, ActionCustomScoreUpdated, oldValue, policySnapshotOf(a), note, actor.ID)
		return err
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// BulkUpdateScorePolicy applies the same custom max score, multiplier and note to many assignments in one
// transaction. Unknown ids are reported in NotFound; assignments whose own custom min score would not stay
// below the new max are left untouched and reported in Invalid.
func (svc *Service) BulkUpdateScorePolicy(ctx context.Context, bp BulkScorePolicy, actor user.User) (BulkResult, error) {
	if !CanManageScores(actor) {
		return BulkResult{}, ErrForbidden
	}
	if bp.ScoreMultiplier.IsZero() {
		bp.ScoreMultiplier = DefaultMultiplier
	}
	if err := svc.validate.Struct(bp); err != nil {
		return BulkResult{}, err
	}
	ids := uniqueIDs(bp.AssignmentIDs)

	var res BulkResult
	err := svc.inTx(ctx, func(repo Repository, _ func(...Event)) error {
		res = BulkResult{Updated: []string{}, NotFound: []string{}, Invalid: []string{}}

		locked, err := repo.LockAssignments(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(err, "locking assignments")
		}
		found := make(map[string]bool, len(locked))
		for _, a := range locked {
			found[a.ID] = true

			oldValue := policySnapshotOf(a)
			max, note := bp.CustomMaxScore, bp.ScoreNote
			applyScoreChanges(&a, ScorePolicyChanges{
				CustomMaxScore:  &max,
				ScoreMultiplier: &bp.ScoreMultiplier,
				ScoreNote:       &note,
			})
			if checkScoreRange(a, "custom_max_score") != nil {
				res.Invalid = append(res.Invalid, a.ID)
				continue
			}

			a.UpdatedAt = now()
			if a, err = repo.UpdateAssignment(ctx, a); err != nil {
				return pkgerrors.Wrap(err, "updating assignment")
			}
			if _, err = appendHistory(ctx, repo, a, nil, ActionBulkUpdated, oldValue, policySnapshotOf(a), bp.ScoreNote, actor.ID); err != nil {
				return err
			}
			res.Updated = append(res.Updated, a.ID)
		}
		for _, id := range ids {
			if !found[id] {
				res.NotFound = append(res.NotFound, id)
			}
		}
		return nil
	})
	if err != nil {
		return BulkResult{}, err
	}
	if len(res.Invalid) > 0 {
		svc.logger.Warn("bulk score update skipped assignments with an invalid score range",
			map[string]interface{}{"invalid": res.Invalid}, actor)
	}
	return res, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = core.CleanString(id, true /* lower */)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
