package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// SweepOverdue re-evaluates every active or overdue assignment against `at`.
// Each assignment is checked in its own transaction under its row lock, so a failure only skips that one.
func (svc *Service) SweepOverdue(ctx context.Context, at time.Time) (SweepResult, error) {
	res := SweepResult{Transitions: []Transition{}, Failed: []string{}}

	pending, err := svc.repo.QueryAssignments(ctx, QueryFilter{Statuses: []Status{StatusActive, StatusOverdue}})
	if err != nil {
		return res, errors.Wrap(err, "querying assignments to sweep")
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		var made *Transition
		err := svc.inTx(ctx, func(repo Repository, emit func(...Event)) error {
			a, err := repo.LockAssignment(ctx, p.ID)
			if err != nil {
				return err
			}
			made = nil
			tr, changed := CheckAndUpdateStatus(&a, at)
			if !changed {
				return nil
			}
			a.UpdatedAt = at
			if a, err = repo.UpdateAssignment(ctx, a); err != nil {
				return errors.Wrap(err, "updating assignment")
			}
			made = &tr
			emit(statusChangedEvent(a, tr, ""))
			return nil
		})
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			res.Failed = append(res.Failed, p.ID)
			svc.logger.Error(fmt.Sprintf("sweeping assignment %s: %v", p.ID, err), err)
			continue
		}
		if made != nil {
			res.Transitions = append(res.Transitions, *made)
		}
	}
	return res, nil
}

// SendDeadlineReminders emits a reminder for every active assignment due in [at+from, at+to).
func (svc *Service) SendDeadlineReminders(ctx context.Context, at time.Time, from, to time.Duration) (int, error) {
	due, err := svc.repo.QueryAssignments(ctx, QueryFilter{
		Statuses:       []Status{StatusActive},
		DeadlineAfter:  at.Add(from),
		DeadlineBefore: at.Add(to),
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying assignments due soon")
	}
	if len(due) == 0 {
		return 0, nil
	}

	events := make([]Event, 0, len(due))
	for _, a := range due {
		events = append(events, Event{Kind: EventDeadlineReminder, Assignment: a, NewStatus: a.Status, OccurredAt: at})
	}
	svc.publisher.Publish(events...)
	return len(events), nil
}
