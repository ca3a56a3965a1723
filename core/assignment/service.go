package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
)

var NowFunc = time.Now // mockable

type Service struct {
	repo      Repository
	publisher Publisher
	validate  *validator.Validate
	logger    core.Logger
}

func NewService(repo Repository, publisher Publisher, validate *validator.Validate, logger core.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		validate:  validate,
		logger:    logger,
	}
}

func now() time.Time {
	return NowFunc().UTC()
}

// inTx runs fn in a transaction, retrying once on ErrConflict.
// Events emitted by fn are published only once the transaction is committed.
func (svc *Service) inTx(ctx context.Context, fn func(repo Repository, emit func(...Event)) error) error {
	var events []Event
	emit := func(evts ...Event) { events = append(events, evts...) }
	run := func() error {
		events = events[:0]
		return svc.repo.InTx(ctx, func(repo Repository) error {
			return fn(repo, emit)
		})
	}

	err := run()
	if IsConflict(err) {
		svc.logger.Warn("transaction conflict, retrying once", err)
		err = run()
	}
	if err != nil {
		return err
	}
	if len(events) > 0 {
		svc.publisher.Publish(events...)
	}
	return nil
}

// checkScoreRange enforces effective min < effective max, reporting the violation on field.
func checkScoreRange(a Assignment, field string) error {
	if min, max := a.EffectiveMinScore(), a.EffectiveMaxScore(); min >= max {
		return newScoreRangeError(field, min, max)
	}
	return nil
}

// recount recomputes completed_quantity from the counted items and re-checks the status.
func recount(ctx context.Context, repo Repository, a *Assignment, at time.Time) (Transition, bool, error) {
	n, err := repo.CountCountedProgress(ctx, a.ID)
	if err != nil {
		return Transition{}, false, errors.Wrap(err, "counting progress")
	}
	tr, changed := SetCompletedQuantity(a, n, at)
	return tr, changed, nil
}

// Categories

func (svc *Service) CreateCategory(ctx context.Context, nc NewCategory, actor user.User) (Category, error) {
	if !CanManageCategories(actor) {
		return Category{}, ErrForbidden
	}
	nc.Name = core.CleanString(nc.Name)
	if nc.DefaultScore == 0 {
		nc.DefaultScore = DefaultScore
	}
	if nc.ScoreWeight.IsZero() {
		nc.ScoreWeight = DefaultScoreWeight
	}
	if err := svc.validate.Struct(nc); err != nil {
		return Category{}, err
	}
	if nc.MinScore >= nc.DefaultScore {
		return Category{}, newScoreRangeError("min_score", nc.MinScore, nc.DefaultScore)
	}

	at := now()
	cat, err := svc.repo.CreateCategory(ctx, Category{
		Name:         nc.Name,
		Description:  nc.Description,
		DefaultScore: nc.DefaultScore,
		MinScore:     nc.MinScore,
		ScoreWeight:  nc.ScoreWeight.Round(ScorePlaces),
		IsActive:     true,
		CreatedBy:    actor.ID,
		CreatedAt:    at,
		UpdatedAt:    at,
	})
	if err != nil {
		if errors.Cause(err) == ErrCategoryExists {
			return Category{}, core.NewValidationError(ErrCategoryExists, core.FieldError{Field: "name", Error: ErrCategoryExists.Error()})
		}
		return Category{}, errors.Wrap(err, "creating category")
	}
	return cat, nil
}

func (svc *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

// QueryCategories lists categories; non-admins only see active ones.
func (svc *Service) QueryCategories(ctx context.Context, filter CategoryFilter, actor user.User) ([]Category, error) {
	if !CanManageCategories(actor) {
		filter.ActiveOnly = true
	}
	return svc.repo.QueryCategories(ctx, filter)
}

// UpdateCategoryScorePolicy replaces the score range and weight of a category.
// Assignments already graded keep their final scores.
func (svc *Service) UpdateCategoryScorePolicy(ctx context.Context, id string, policy CategoryScorePolicy, actor user.User) (Category, error) {
	if !CanManageCategories(actor) {
		return Category{}, ErrForbidden
	}
	if err := svc.validate.Struct(policy); err != nil {
		return Category{}, err
	}
	if policy.MinScore >= policy.DefaultScore {
		return Category{}, newScoreRangeError("min_score", policy.MinScore, policy.DefaultScore)
	}

	var cat Category
	err := svc.inTx(ctx, func(repo Repository, _ func(...Event)) error {
		var err error
		if cat, err = repo.GetCategory(ctx, id); err != nil {
			return err
		}
		cat.DefaultScore = policy.DefaultScore
		cat.MinScore = policy.MinScore
		cat.ScoreWeight = policy.ScoreWeight.Round(ScorePlaces)
		cat.UpdatedAt = now()

		// assignments relying on the category defaults must keep a valid range
		assignments, err := repo.QueryAssignments(ctx, QueryFilter{CategoryID: id})
		if err != nil {
			return errors.Wrap(err, "querying category assignments")
		}
		for _, a := range assignments {
			a.Category = cat
			if err := checkScoreRange(a, "default_score"); err != nil {
				return err
			}
		}

		cat, err = repo.UpdateCategory(ctx, cat)
		return errors.Wrap(err, "updating category")
	})
	if err != nil {
		return Category{}, err
	}
	svc.logger.Info(fmt.Sprintf("category %s score policy updated", cat.ID), actor)
	return cat, nil
}

// SetCategoryActive soft-(de)activates a category; inactive categories accept no new assignments.
func (svc *Service) SetCategoryActive(ctx context.Context, id string, active bool, actor user.User) (Category, error) {
	if !CanManageCategories(actor) {
		return Category{}, ErrForbidden
	}
	var cat Category
	err := svc.inTx(ctx, func(repo Repository, _ func(...Event)) error {
		var err error
		if cat, err = repo.GetCategory(ctx, id); err != nil {
			return err
		}
		cat.IsActive = active
		cat.UpdatedAt = now()
		cat, err = repo.UpdateCategory(ctx, cat)
		return errors.Wrap(err, "updating category")
	})
	return cat, err
}

// DeleteCategory removes a category no assignment refers to; used categories can only be deactivated.
func (svc *Service) DeleteCategory(ctx context.Context, id string, actor user.User) error {
	if !CanManageCategories(actor) {
		return ErrForbidden
	}
	var cat Category
	err := svc.inTx(ctx, func(repo Repository, _ func(...Event)) error {
		var err error
		if cat, err = repo.GetCategory(ctx, id); err != nil {
			return err
		}
		used, err := repo.QueryAssignments(ctx, QueryFilter{CategoryID: cat.ID})
		if err != nil {
			return errors.Wrap(err, "querying category assignments")
		}
		if len(used) > 0 {
			return ErrCategoryInUse
		}
		return repo.DeleteCategory(ctx, cat.ID)
	})
	if err != nil {
		return err
	}
	svc.logger.Info(fmt.Sprintf("category %q deleted", cat.Name), actor)
	return nil
}

// Assignments

func (svc *Service) CreateAssignment(ctx context.Context, na NewAssignment, actor user.User) (Assignment, error) {
	if !CanManageAssignments(actor) {
		return Assignment{}, ErrForbidden
	}
	if na.RequiredQuantity == 0 {
		na.RequiredQuantity = 1
	}
	if na.Priority == "" {
		na.Priority = PriorityMedium
	}
	na.Title = core.CleanString(na.Title)
	if err := svc.validate.Struct(na); err != nil {
		return Assignment{}, err
	}

	var a Assignment
	err := svc.inTx(ctx, func(repo Repository, emit func(...Event)) error {
		cat, err := repo.GetCategory(ctx, na.CategoryID)
		if err != nil {
			return err
		}
		if !cat.IsActive {
			return core.NewValidationError(ErrCategoryInactive, core.FieldError{Field: "category_id", Error: ErrCategoryInactive.Error()})
		}

		at := now()
		a = Assignment{
			TeacherID:        na.TeacherID,
			CategoryID:       cat.ID,
			Category:         cat,
			Title:            na.Title,
			Description:      na.Description,
			RequiredQuantity: na.RequiredQuantity,
			Deadline:         na.Deadline.UTC(),
			Status:           StatusActive,
			Priority:         na.Priority,
			UseCustomScore:   na.UseCustomScore || na.CustomMaxScore != nil,
			CustomMaxScore:   na.CustomMaxScore,
			CustomMinScore:   na.CustomMinScore,
			ScoreMultiplier:  DefaultMultiplier,
			ScoreNote:        na.ScoreNote,
			AssignedBy:       actor.ID,
			CreatedAt:        at,
			UpdatedAt:        at,
		}
		if na.ScoreMultiplier != nil {
			a.ScoreMultiplier = na.ScoreMultiplier.Round(ScorePlaces)
		}
		field := "custom_max_score"
		if na.CustomMinScore != nil {
			field = "custom_min_score"
		}
		if err := checkScoreRange(a, field); err != nil {
			return err
		}
		CheckAndUpdateStatus(&a, at)

		if a, err = repo.CreateAssignment(ctx, a); err != nil {
			return errors.Wrap(err, "creating assignment")
		}
		if a.UseCustomScore || a.CustomMinScore != nil || !a.ScoreMultiplier.Equal(DefaultMultiplier) {
			if _, err := appendHistory(ctx, repo, a, nil, ActionScoreSet, "", policySnapshotOf(a), na.ScoreNote, actor.ID); err != nil {
				return err
			}
		}
		emit(Event{Kind: EventAssignmentCreated, Assignment: a, NewStatus: a.Status, ActorID: actor.ID, OccurredAt: at})
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) GetAssignment(ctx context.Context, id string, actor user.User) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if !CanViewAssignment(actor, a) {
		return Assignment{}, ErrForbidden
	}
	return a, nil
}

// QueryAssignments lists assignments; teachers only see their own.
func (svc *Service) QueryAssignments(ctx context.Context, filter QueryFilter, actor user.User, ordering ...core.DBOrdering) ([]Assignment, error) {
	if !actor.IsActive {
		return nil, ErrForbidden
	}
	if !actor.IsAdmin() {
		filter.TeacherID = actor.ID
	}
	for _, ord := range ordering {
		if !OrderingFields[ord.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: fmt.Sprintf("cannot order by %q", ord.Field),
			})
		}
	}
	return svc.repo.QueryAssignments(ctx, filter, ordering...)
}

// UpdateAssignment edits the non-score fields of an assignment and re-evaluates its status.
func (svc *Service) UpdateAssignment(ctx context.Context, id string, ua UpdateAssignment, actor user.User) (Assignment, error) {
	if !CanManageAssignments(actor) {
		return Assignment{}, ErrForbidden
	}
	if err := svc.validate.Struct(ua); err != nil {
		return Assignment{}, err
	}

	var a Assignment
	err := svc.inTx(ctx, func(repo Repository, emit func(...Event)) error {
		var err error
		if a, err = repo.LockAssignment(ctx, id); err != nil {
			return err
		}
		if ua.Title != nil {
			a.Title = core.CleanString(*ua.Title)
		}
		if ua.Description != nil {
			a.Description = *ua.Description
		}
		if ua.Priority != nil {
			a.Priority = *ua.Priority
		}
		if ua.Deadline != nil {
			a.Deadline = ua.Deadline.UTC()
		}
		if ua.RequiredQuantity != nil {
			a.RequiredQuantity = *ua.RequiredQuantity
		}

		at := now()
		a.UpdatedAt = at
		tr, changed := CheckAndUpdateStatus(&a, at)
		if a, err = repo.UpdateAssignment(ctx, a); err != nil {
			return errors.Wrap(err, "updating assignment")
		}
		if changed {
			emit(statusChangedEvent(a, tr, actor.ID))
		}
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

type statusEdit func(a *Assignment, at time.Time) (Transition, bool, error)

func (svc *Service) editStatus(ctx context.Context, id string, actor user.User, edit statusEdit) (Assignment, error) {
	if !CanManageAssignments(actor) {
		return Assignment{}, ErrForbidden
	}
	var a Assignment
	err := svc.inTx(ctx, func(repo Repository, emit func(...Event)) error {
		var err error
		if a, err = repo.LockAssignment(ctx, id); err != nil {
			return err
		}
		at := now()
		tr, changed, err := edit(&a, at)
		if err != nil || !changed {
			return err
		}
		a.UpdatedAt = at
		if a, err = repo.UpdateAssignment(ctx, a); err != nil {
			return errors.Wrap(err, "updating assignment")
		}
		emit(statusChangedEvent(a, tr, actor.ID))
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (svc *Service) CancelAssignment(ctx context.Context, id string, actor user.User) (Assignment, error) {
	return svc.editStatus(ctx, id, actor, func(a *Assignment, at time.Time) (Transition, bool, error) {
		tr, changed := Cancel(a, at)
		return tr, changed, nil
	})
}

func (svc *Service) RestoreAssignment(ctx context.Context, id string, actor user.User) (Assignment, error) {
	return svc.editStatus(ctx, id, actor, Restore)
}

func (svc *Service) MarkCompleted(ctx context.Context, id string, actor user.User) (Assignment, error) {
	return svc.editStatus(ctx, id, actor, MarkCompleted)
}
