package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
	emailsvc "github.com/proft/portfolio/services/email"
	"github.com/proft/portfolio/services/notify"
	inmemdb "github.com/proft/portfolio/storage/database/inmem"
	testutil "github.com/proft/portfolio/tests"
)

func setup(t *testing.T) (*notify.Dispatcher, user.User, user.User, assignment.Assignment) {
	t.Helper()
	conf := core.NewTestConfig()
	users := inmemdb.NewUserRepository(inmemdb.New())
	admin := testutil.CreateUser(t, users, "Ada Admin", "ada", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, users, "Tom Teacher", "tom", user.RoleTeacher, true)

	emailsvc.ResetSentMessages()
	d := notify.NewDispatcher(users, emailsvc.NewConsoleServiceMock(conf), testutil.NewLogger(conf))

	a := assignment.Assignment{
		ID:                "7d3c1a52-6f0e-4c59-9a53-0c5b1f3a8e21",
		TeacherID:         teacher.ID,
		AssignedBy:        admin.ID,
		Category:          assignment.Category{Name: "Journal article"},
		Title:             "Publish two articles",
		RequiredQuantity:  2,
		CompletedQuantity: 1,
		Deadline:          time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:            assignment.StatusActive,
	}
	return d, admin, teacher, a
}

func TestDispatcher_Dispatch(t *testing.T) {
	raw := 8
	graded := &assignment.Progress{
		RawScore:   &raw,
		FinalScore: decimal.NewNullDecimal(decimal.RequireFromString("12")),
		GradeNote:  "solid",
	}

	tests := []struct {
		name         string
		event        func(admin user.User, a assignment.Assignment) assignment.Event
		wantTo       string
		wantSubject  string
		wantContains []string
	}{
		{
			name: "created",
			event: func(admin user.User, a assignment.Assignment) assignment.Event {
				return assignment.Event{Kind: assignment.EventAssignmentCreated, Assignment: a, ActorID: admin.ID}
			},
			wantTo:       "tom@test.cd",
			wantSubject:  "New assignment",
			wantContains: []string{"Hello Tom Teacher", `"Publish two articles" (Journal article)`, "Required items: 2"},
		},
		{
			name: "status changed by the sweep",
			event: func(_ user.User, a assignment.Assignment) assignment.Event {
				return assignment.Event{
					Kind:       assignment.EventStatusChanged,
					Assignment: a,
					OldStatus:  assignment.StatusActive,
					NewStatus:  assignment.StatusOverdue,
				}
			},
			wantTo:       "tom@test.cd",
			wantSubject:  "Assignment status changed",
			wantContains: []string{"from active to overdue", "Progress: 1/2"},
		},
		{
			name: "graded",
			event: func(admin user.User, a assignment.Assignment) assignment.Event {
				return assignment.Event{Kind: assignment.EventProgressGraded, Assignment: a, Progress: graded, ActorID: admin.ID}
			},
			wantTo:       "tom@test.cd",
			wantSubject:  "Your work was graded",
			wantContains: []string{"Score: 8 (weighted: 12.00)", "Note: solid"},
		},
		{
			name: "submitted goes to the assigner",
			event: func(_ user.User, a assignment.Assignment) assignment.Event {
				return assignment.Event{
					Kind:       assignment.EventProgressSubmitted,
					Assignment: a,
					Progress:   &assignment.Progress{Note: "chapter one"},
					ActorID:    a.TeacherID,
				}
			},
			wantTo:       "ada@test.cd",
			wantSubject:  "New work to grade",
			wantContains: []string{"Hello Ada Admin", "waiting for a grade"},
		},
		{
			name: "deadline reminder",
			event: func(_ user.User, a assignment.Assignment) assignment.Event {
				return assignment.Event{
					Kind:       assignment.EventDeadlineReminder,
					Assignment: a,
					OccurredAt: a.Deadline.Add(-24 * time.Hour),
				}
			},
			wantTo:       "tom@test.cd",
			wantSubject:  "Assignment deadline approaching",
			wantContains: []string{"in about 24 hours", "/assignments/7d3c1a52-6f0e-4c59-9a53-0c5b1f3a8e21"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, admin, _, a := setup(t)

			d.Dispatch(context.Background(), tt.event(admin, a))

			sent := emailsvc.GetSentMessages()
			require.Len(t, sent, 1)
			msg := sent[0]
			require.Len(t, msg.To, 1)
			assert.Equal(t, tt.wantTo, msg.To[0].Address)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			for _, s := range tt.wantContains {
				assert.Contains(t, msg.TextContent, s)
			}
		})
	}
}

func TestDispatcher_Dispatch_skipped(t *testing.T) {
	d, admin, teacher, a := setup(t)

	d.Dispatch(context.Background(),
		// own action
		assignment.Event{Kind: assignment.EventProgressSubmitted, Assignment: a, ActorID: admin.ID},
		// unknown recipient
		assignment.Event{Kind: assignment.EventAssignmentCreated, Assignment: assignment.Assignment{TeacherID: "nobody"}},
		// unknown kind
		assignment.Event{Kind: "archived", Assignment: a},
		// no assigner
		assignment.Event{Kind: assignment.EventProgressSubmitted, Assignment: assignment.Assignment{TeacherID: teacher.ID}},
	)

	assert.Empty(t, emailsvc.GetSentMessages())
}

func TestDispatcher_Publish(t *testing.T) {
	d, admin, _, a := setup(t)

	d.Publish(
		assignment.Event{Kind: assignment.EventAssignmentCreated, Assignment: a, ActorID: admin.ID},
		assignment.Event{Kind: assignment.EventDeadlineReminder, Assignment: a, OccurredAt: a.Deadline.Add(-20 * time.Hour)},
	)
	d.Wait()

	assert.Len(t, emailsvc.GetSentMessages(), 2)
}
