package testutil

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
	logsvc "github.com/proft/portfolio/services/logger"
)

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every app validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

func CreateUser(t *testing.T, repo user.Repository, name, uname, role string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Username:  uname,
		Email:     uname + "@test.cd",
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCategory(t *testing.T, repo assignment.Repository, name string, defaultScore, minScore int, weight string) assignment.Category {
	t.Helper()
	now := time.Now().UTC()
	cat, err := repo.CreateCategory(context.Background(), assignment.Category{
		Name:         name,
		DefaultScore: defaultScore,
		MinScore:     minScore,
		ScoreWeight:  decimal.RequireFromString(weight),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	return cat
}

// CreateAssignment stores an active assignment; opts may adjust it before it is saved.
func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	teacher user.User,
	cat assignment.Category,
	required int,
	deadline time.Time,
	opts ...func(*assignment.Assignment),
) assignment.Assignment {
	t.Helper()
	now := time.Now().UTC()
	a := assignment.Assignment{
		TeacherID:        teacher.ID,
		CategoryID:       cat.ID,
		Title:            cat.Name + " for " + teacher.Username,
		RequiredQuantity: required,
		Deadline:         deadline.UTC(),
		Status:           assignment.StatusActive,
		Priority:         assignment.PriorityMedium,
		ScoreMultiplier:  assignment.DefaultMultiplier,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, opt := range opts {
		opt(&a)
	}
	a, err := repo.CreateAssignment(context.Background(), a)
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

// CreateProgress stores an ungraded item; withPortfolio attaches a portfolio reference.
func CreateProgress(t *testing.T, repo assignment.Repository, a assignment.Assignment, counted, withPortfolio bool) assignment.Progress {
	t.Helper()
	p := assignment.Progress{
		AssignmentID: a.ID,
		Counted:      counted,
		CreatedAt:    time.Now().UTC(),
	}
	if withPortfolio {
		portfolioID := uuid.New().String()
		p.PortfolioID = &portfolioID
	}
	p, err := repo.CreateProgress(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProgress() failed: %v", err)
	}
	return p
}

func IntPtr(i int) *int { return &i }

func StrPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }

func DecPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []assignment.Event
}

var _ assignment.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(events ...assignment.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *Publisher) Events() []assignment.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]assignment.Event(nil), p.events...)
}

func (p *Publisher) Kinds() []assignment.EventKind {
	kinds := make([]assignment.EventKind, 0)
	for _, e := range p.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
