package assignment

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/proft/portfolio/core"
)

var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrProgressNotFound   = errors.New("progress not found")

	ErrCategoryExists    = errors.New("a category with this name already exists")
	ErrInvalidScoreRange = errors.New("invalid score range")
	ErrOutOfBoundsScore  = errors.New("score out of bounds")
	ErrForbidden         = errors.New("permission denied")
	ErrConflict          = errors.New("concurrent update conflict, try again")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAssignmentClosed  = errors.New("assignment is closed")
	ErrCategoryInactive  = errors.New("category is inactive")
	ErrCategoryInUse     = errors.New("cannot delete a category with existing assignments, deactivate it instead")
)

// IsNotFound reports whether err is caused by a missing category, assignment or progress item.
func IsNotFound(err error) bool {
	switch pkgerrors.Cause(err) {
	case ErrCategoryNotFound, ErrAssignmentNotFound, ErrProgressNotFound:
		return true
	}
	return false
}

func IsConflict(err error) bool {
	return pkgerrors.Cause(err) == ErrConflict
}

// newScoreRangeError reports the min >= max violation on the offending field.
func newScoreRangeError(field string, min, max int) error {
	return core.NewValidationError(ErrInvalidScoreRange, core.FieldError{
		Field: field,
		Error: fmt.Sprintf("minimum score (%d) must be less than maximum score (%d)", min, max),
	})
}
