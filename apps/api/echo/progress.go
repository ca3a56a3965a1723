package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/proft/portfolio/core/assignment"
)

type progressApi struct {
	svc  *assignment.Service
	auth *authenticator
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *assignment.Service) {
	api := progressApi{svc: svc, auth: auth}

	pg := g.Group("/progress", jwt, userMiddleware(auth))
	pg.POST("/:id/grade", api.grade)
}

type GradeRequest struct {
	RawScore *int   `json:"raw_score" validate:"required"`
	Note     string `json:"note" validate:"max=2000"`
}

func (api *progressApi) grade(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data GradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}

	res, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"), *data.RawScore, usr, data.Note)
	if err != nil {
		return errors.Wrap(err, "grading progress")
	}
	return ctx.JSON(http.StatusOK, res)
}
