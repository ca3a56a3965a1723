package assignment

import "time"

// Transition is one status change of an assignment.
type Transition struct {
	From Status
	To   Status
	At   time.Time
}

// setStatus moves a to status `to`, stamping completed_at on entering completed.
// Every status change goes through here.
func setStatus(a *Assignment, to Status, now time.Time) (Transition, bool) {
	if a.Status == to {
		return Transition{}, false
	}
	tr := Transition{From: a.Status, To: to, At: now}
	a.Status = to
	if to == StatusCompleted {
		if a.CompletedAt == nil {
			at := now
			a.CompletedAt = &at
		}
	} else {
		a.CompletedAt = nil
	}
	return tr, true
}

// CheckAndUpdateStatus applies the automatic lifecycle rules to a:
//   1. cancelled never changes automatically
//   2. a filled quota completes the assignment, even past the deadline
//   3. a passed deadline makes it overdue
//   4. an overdue assignment whose deadline moved back into the future becomes active again
//
// It returns the transition made, if any.
func CheckAndUpdateStatus(a *Assignment, now time.Time) (Transition, bool) {
	switch {
	case a.Status == StatusCancelled:
		return Transition{}, false
	case a.CompletedQuantity >= a.RequiredQuantity:
		return setStatus(a, StatusCompleted, now)
	case now.After(a.Deadline):
		return setStatus(a, StatusOverdue, now)
	case a.Status == StatusOverdue:
		// deadline extended
		return setStatus(a, StatusActive, now)
	default:
		return Transition{}, false
	}
}

// MarkCompleted completes a regardless of its quota.
func MarkCompleted(a *Assignment, now time.Time) (Transition, bool, error) {
	if a.Status == StatusCancelled {
		return Transition{}, false, ErrInvalidTransition
	}
	tr, changed := setStatus(a, StatusCompleted, now)
	return tr, changed, nil
}

// IncrementCompleted adds count to the completed quantity and re-checks the status.
func IncrementCompleted(a *Assignment, count int, now time.Time) (Transition, bool) {
	a.CompletedQuantity += count
	if a.CompletedQuantity < 0 {
		a.CompletedQuantity = 0
	}
	return CheckAndUpdateStatus(a, now)
}

// SetCompletedQuantity stores a recomputed quantity and re-checks the status.
func SetCompletedQuantity(a *Assignment, count int, now time.Time) (Transition, bool) {
	return IncrementCompleted(a, count-a.CompletedQuantity, now)
}

// Cancel stops all automatic transitions of a until it is restored.
func Cancel(a *Assignment, now time.Time) (Transition, bool) {
	return setStatus(a, StatusCancelled, now)
}

// Restore revives a cancelled assignment and re-evaluates it.
func Restore(a *Assignment, now time.Time) (Transition, bool, error) {
	if a.Status != StatusCancelled {
		return Transition{}, false, ErrInvalidTransition
	}
	a.Status = StatusActive
	CheckAndUpdateStatus(a, now)
	return Transition{From: StatusCancelled, To: a.Status, At: now}, true, nil
}
