package assignment

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventAssignmentCreated EventKind = "assignment_created"
	EventStatusChanged     EventKind = "assignment_status_changed"
	EventProgressSubmitted EventKind = "progress_submitted"
	EventProgressGraded    EventKind = "progress_graded"
	EventDeadlineReminder  EventKind = "assignment_deadline_reminder"
)

// Event is emitted by a committed mutation for the notification dispatcher.
type Event struct {
	Kind       EventKind
	Assignment Assignment
	Progress   *Progress
	OldStatus  Status
	NewStatus  Status
	ActorID    string
	OccurredAt time.Time
}

// FinalScore is the graded item's weighted score, if any.
func (e Event) FinalScore() decimal.NullDecimal {
	if e.Progress == nil {
		return decimal.NullDecimal{}
	}
	return e.Progress.FinalScore
}

// Publisher hands events over to asynchronous consumers.
// Publish must not block on delivery.
type Publisher interface {
	Publish(events ...Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(...Event) {}

// NopPublisher drops all events.
var NopPublisher Publisher = nopPublisher{}

func statusChangedEvent(a Assignment, tr Transition, actorID string) Event {
	return Event{
		Kind:       EventStatusChanged,
		Assignment: a,
		OldStatus:  tr.From,
		NewStatus:  tr.To,
		ActorID:    actorID,
		OccurredAt: tr.At,
	}
}
