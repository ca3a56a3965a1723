package notify

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
)

const (
	deadlineLayout = "Mon, 02 Jan 2006 15:04 MST"
	lookupTimeout  = 10 * time.Second
)

var subjects = map[assignment.EventKind]string{
	assignment.EventAssignmentCreated: "New assignment",
	assignment.EventStatusChanged:     "Assignment status changed",
	assignment.EventProgressSubmitted: "New work to grade",
	assignment.EventProgressGraded:    "Your work was graded",
	assignment.EventDeadlineReminder:  "Assignment deadline approaching",
}

// MessageData is the data available to the notification email templates.
type MessageData struct {
	RecipientName     string
	AssignmentID      string
	Title             string
	CategoryName      string
	RequiredQuantity  int
	CompletedQuantity int
	Deadline          string
	OldStatus         string
	NewStatus         string
	RawScore          int
	FinalScore        string
	Note              string
	HoursLeft         int
}

// Dispatcher turns assignment events into emails.
type Dispatcher struct {
	users  user.Repository
	email  core.EmailService
	logger core.Logger
	wg     sync.WaitGroup
}

var _ assignment.Publisher = (*Dispatcher)(nil)

func NewDispatcher(users user.Repository, email core.EmailService, logger core.Logger) *Dispatcher {
	return &Dispatcher{users: users, email: email, logger: logger}
}

// Publish dispatches events in the background; failures are only logged.
func (d *Dispatcher) Publish(events ...assignment.Event) {
	if len(events) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		d.Dispatch(ctx, events...)
	}()
}

// Wait blocks until every published event has been handed to the email service.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch builds and sends the emails for events.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...assignment.Event) {
	messages := make([]*core.EmailMessage, 0, len(events))
	for _, evt := range events {
		msg, err := d.message(ctx, evt)
		if err != nil {
			d.logger.Error(fmt.Sprintf("notifying %s for assignment %s: %v", evt.Kind, evt.Assignment.ID, err), err)
			continue
		}
		if msg != nil {
			messages = append(messages, msg)
		}
	}
	if len(messages) > 0 {
		d.email.SendMessages(messages...)
	}
}

// recipientID is who hears about evt: the assigner for new work, the teacher otherwise.
func recipientID(evt assignment.Event) string {
	if evt.Kind == assignment.EventProgressSubmitted {
		return evt.Assignment.AssignedBy
	}
	return evt.Assignment.TeacherID
}

func (d *Dispatcher) message(ctx context.Context, evt assignment.Event) (*core.EmailMessage, error) {
	subject, ok := subjects[evt.Kind]
	if !ok {
		return nil, errors.Errorf("unknown event kind %q", evt.Kind)
	}
	// nobody is told about their own action
	id := recipientID(evt)
	if id == "" || id == evt.ActorID {
		return nil, nil
	}
	rcpt, err := d.users.GetUser(ctx, user.GetFilter{ID: id})
	if err != nil {
		return nil, errors.Wrap(err, "getting recipient")
	}
	if !rcpt.IsActive || rcpt.Email == "" {
		return nil, nil
	}

	return &core.EmailMessage{
		To:           []mail.Address{rcpt.Address()},
		Subject:      subject,
		TemplateName: string(evt.Kind),
		TemplateData: dataOf(evt, rcpt),
	}, nil
}

func dataOf(evt assignment.Event, rcpt user.User) MessageData {
	a := evt.Assignment
	data := MessageData{
		RecipientName:     rcpt.DisplayName(),
		AssignmentID:      a.ID,
		Title:             a.DisplayTitle(),
		CategoryName:      a.Category.Name,
		RequiredQuantity:  a.RequiredQuantity,
		CompletedQuantity: a.CompletedQuantity,
		Deadline:          a.Deadline.Format(deadlineLayout),
		OldStatus:         string(evt.OldStatus),
		NewStatus:         string(evt.NewStatus),
		HoursLeft:         int(math.Round(a.Deadline.Sub(evt.OccurredAt).Hours())),
	}
	if p := evt.Progress; p != nil {
		if p.RawScore != nil {
			data.RawScore = *p.RawScore
		}
		if fs := evt.FinalScore(); fs.Valid {
			data.FinalScore = fs.Decimal.StringFixed(assignment.ScorePlaces)
		}
		data.Note = p.GradeNote
		if evt.Kind == assignment.EventProgressSubmitted {
			data.Note = p.Note
		}
	}
	return data
}
