package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
)

type categoryApi struct {
	svc  *assignment.Service
	auth *authenticator
}

func registerCategoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *assignment.Service) {
	api := categoryApi{svc: svc, auth: auth}

	cg := g.Group("/categories", jwt, userMiddleware(auth))
	cg.GET("", api.query)
	cg.POST("", api.create)
	cg.GET("/:id", api.retrieve)
	cg.DELETE("/:id", api.delete)
	cg.PUT("/:id/score-policy", api.updateScorePolicy)
	cg.POST("/:id/activate", api.setActive(true))
	cg.POST("/:id/deactivate", api.setActive(false))
}

type CategoryQuery struct {
	Search string `query:"search"`
	Active string `query:"active_only"`
}

func (api *categoryApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var q CategoryQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to CategoryQuery")
	}
	filter := assignment.CategoryFilter{Search: core.CleanString(q.Search)}
	if q.Active != "" {
		if filter.ActiveOnly, err = strconv.ParseBool(q.Active); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "active_only", Error: "must be a boolean"})
		}
	}

	cats, err := api.svc.QueryCategories(ctx.Request().Context(), filter, usr)
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []assignment.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *categoryApi) create(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}

	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *categoryApi) retrieve(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	cat, err := api.svc.GetCategory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding category by ID")
	}
	if !cat.IsActive && !assignment.CanManageCategories(usr) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) delete(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteCategory(ctx.Request().Context(), ctx.Param("id"), usr); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *categoryApi) updateScorePolicy(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	var data assignment.CategoryScorePolicy
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CategoryScorePolicy")
	}

	cat, err := api.svc.UpdateCategoryScorePolicy(ctx.Request().Context(), ctx.Param("id"), data, usr)
	if err != nil {
		return errors.Wrap(err, "updating category score policy")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *categoryApi) setActive(active bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := api.auth.contextUser(ctx)
		if err != nil {
			return err
		}

		cat, err := api.svc.SetCategoryActive(ctx.Request().Context(), ctx.Param("id"), active, usr)
		if err != nil {
			return errors.Wrap(err, "setting category activity")
		}
		return ctx.JSON(http.StatusOK, cat)
	}
}
