package assignment

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
)

// BulkCreateAssignments creates every item of bn for bn.TeacherID, each in its own transaction.
// Items failing validation, or naming an unknown or inactive category, are reported by index
// and do not stop the others.
func (svc *Service) BulkCreateAssignments(ctx context.Context, bn BulkNewAssignments, actor user.User) (BulkCreateResult, error) {
	if !CanManageAssignments(actor) {
		return BulkCreateResult{}, ErrForbidden
	}
	if err := svc.validate.Struct(bn); err != nil {
		return BulkCreateResult{}, err
	}

	res := BulkCreateResult{Created: []Assignment{}, Errors: []BulkItemError{}}
	for i, na := range bn.Assignments {
		na.TeacherID = bn.TeacherID
		a, err := svc.CreateAssignment(ctx, na, actor)
		if err != nil {
			itemErr, ok := bulkItemError(i, err)
			if !ok {
				return res, errors.Wrapf(err, "creating assignment %d", i)
			}
			res.Errors = append(res.Errors, itemErr)
			continue
		}
		res.Created = append(res.Created, a)
	}

	svc.logger.Info(fmt.Sprintf("bulk assignment: %d created, %d rejected", len(res.Created), len(res.Errors)), actor)
	return res, nil
}

// bulkItemError turns the caller-correctable errors of one item into a report; ok is false otherwise.
func bulkItemError(index int, err error) (BulkItemError, bool) {
	item := BulkItemError{Index: index, Error: errors.Cause(err).Error()}

	var vErrs validator.ValidationErrors
	var vErr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		item.Error = "validation failed"
		item.Fields = make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			item.Fields[fe.Field()] = "invalid value (" + rule + ")"
		}
	case errors.As(err, &vErr):
		item.Fields = make(map[string]string, len(vErr.Fields))
		for _, f := range vErr.Fields {
			item.Fields[f.Field] = f.Error
		}
	case IsNotFound(err):
	default:
		return BulkItemError{}, false
	}
	return item, true
}
