package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
)

type assignmentApi struct {
	svc  *assignment.Service
	auth *authenticator
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *assignment.Service) {
	api := assignmentApi{svc: svc, auth: auth}

	ag := g.Group("/assignments", jwt, userMiddleware(auth))
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.POST("/bulk", api.bulkCreate)
	ag.GET("/stats", api.statistics)
	ag.GET("/dashboard", api.dashboard)
	ag.POST("/score-policy/bulk", api.bulkUpdateScorePolicy)

	// detail endpoints
	ag.GET("/:id", api.retrieve)
	ag.PATCH("/:id", api.update)
	ag.POST("/:id/cancel", api.editStatus(api.svc.CancelAssignment))
	ag.POST("/:id/restore", api.editStatus(api.svc.RestoreAssignment))
	ag.POST("/:id/complete", api.editStatus(api.svc.MarkCompleted))
	ag.PUT("/:id/score-policy", api.updateScorePolicy)
	ag.GET("/:id/history", api.history)
	ag.GET("/:id/progress", api.queryProgress)
	ag.POST("/:id/progress", api.submitProgress)
}

// ScorePolicyRequest is a partial score policy update with the reason recorded in the history.
type ScorePolicyRequest struct {
	assignment.ScorePolicyChanges
	Reason string `json:"reason"`
}

func (api *assignmentApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var q AssignmentQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to AssignmentQuery")
	}
	filter, err := q.Filter()
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	assignments, err := api.svc.QueryAssignments(ctx.Request().Context(), filter, usr, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	a, err := api.svc.CreateAssignment(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) bulkCreate(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.BulkNewAssignments
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkNewAssignments")
	}

	res, err := api.svc.BulkCreateAssignments(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "bulk creating assignments")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	a, err := api.svc.GetAssignment(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), ctx.Param("id"), data, usr)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

type statusEditFunc func(ctx context.Context, id string, actor user.User) (assignment.Assignment, error)

func (api *assignmentApi) editStatus(edit statusEditFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := api.auth.contextUser(ctx)
		if err != nil {
			return err
		}

		a, err := edit(ctx.Request().Context(), ctx.Param("id"), usr)
		if err != nil {
			return errors.Wrap(err, "editing assignment status")
		}
		return ctx.JSON(http.StatusOK, a)
	}
}

func (api *assignmentApi) updateScorePolicy(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data ScorePolicyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScorePolicyRequest")
	}

	a, err := api.svc.UpdateAssignmentScorePolicy(ctx.Request().Context(), ctx.Param("id"), data.ScorePolicyChanges, usr, data.Reason)
	if err != nil {
		return errors.Wrap(err, "updating assignment score policy")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) bulkUpdateScorePolicy(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.BulkScorePolicy
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkScorePolicy")
	}

	res, err := api.svc.BulkUpdateScorePolicy(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "bulk updating score policies")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *assignmentApi) history(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	hist, err := api.svc.History(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "querying score history")
	}
	if hist == nil {
		hist = []assignment.ScoreHistory{}
	}
	return ctx.JSON(http.StatusOK, hist)
}

func (api *assignmentApi) queryProgress(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	items, err := api.svc.QueryProgress(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	if items == nil {
		items = []assignment.Progress{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *assignmentApi) submitProgress(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.NewProgress
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgress")
	}

	p, err := api.svc.SubmitProgress(ctx.Request().Context(), ctx.Param("id"), data, usr)
	if err != nil {
		return errors.Wrap(err, "submitting progress")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *assignmentApi) statistics(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var q AssignmentQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to AssignmentQuery")
	}
	filter, err := q.Filter()
	if err != nil {
		return err
	}

	stats, err := api.svc.Statistics(ctx.Request().Context(), filter, usr)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *assignmentApi) dashboard(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	dash, err := api.svc.Dashboard(ctx.Request().Context(), usr, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
