package echoapi

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
)

var orderingParam = "ordering"

// requestValidator plugs the app validator into echo.Context.Validate.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=a,-b`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// AssignmentQuery binds the assignment list filters.
type AssignmentQuery struct {
	TeacherID      string `query:"teacher_id"`
	CategoryID     string `query:"category_id"`
	Status         string `query:"status"` // comma separated
	Priority       string `query:"priority"`
	DeadlineAfter  string `query:"deadline_after"`
	DeadlineBefore string `query:"deadline_before"`
	Search         string `query:"search"`
}

func (q AssignmentQuery) Filter() (assignment.QueryFilter, error) {
	filter := assignment.QueryFilter{
		TeacherID:  core.CleanString(q.TeacherID),
		CategoryID: core.CleanString(q.CategoryID),
		Priority:   assignment.Priority(core.CleanString(q.Priority, true /* lower */)),
		Search:     core.CleanString(q.Search),
	}
	for _, s := range strings.Split(q.Status, ",") {
		if s = core.CleanString(s, true /* lower */); s != "" {
			filter.Statuses = append(filter.Statuses, assignment.Status(s))
		}
	}

	var fldErrs []core.FieldError
	parseTime := func(field, val string) time.Time {
		if val == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			fldErrs = append(fldErrs, core.FieldError{Field: field, Error: "must be an RFC 3339 timestamp"})
		}
		return t
	}
	filter.DeadlineAfter = parseTime("deadline_after", q.DeadlineAfter)
	filter.DeadlineBefore = parseTime("deadline_before", q.DeadlineBefore)
	if fldErrs != nil {
		return assignment.QueryFilter{}, core.NewValidationError(nil, fldErrs...)
	}
	return filter, nil
}
