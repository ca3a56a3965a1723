package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
)

type userApi struct {
	svc  *user.Service
	auth *authenticator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *user.Service) {
	api := userApi{svc: svc, auth: auth}

	ug := g.Group("/users", jwt, userMiddleware(auth))
	ug.POST("/token-refresh", api.refreshToken)
	ug.GET("/me", api.me)

	ug.POST("", api.create, adminMiddleware())
	ug.GET("", api.query, adminMiddleware())
	ug.GET("/roles", api.queryRoles, adminMiddleware())
	ug.GET("/:id", api.retrieve, adminMiddleware())
	ug.POST("/:id/activate", api.setActive(true), adminMiddleware())
	ug.POST("/:id/deactivate", api.setActive(false), adminMiddleware())
}

type (
	TokenResponse struct {
		Token string `json:"token"`
	}

	UserQuery struct {
		Role   string `query:"role"`
		Active string `query:"is_active"`
	}
)

func (q UserQuery) Filter() (user.QueryFilter, error) {
	var filter user.QueryFilter
	if role := core.CleanString(q.Role, true /* lower */); role != "" {
		filter.Roles = []string{role}
	}
	if q.Active != "" {
		active, err := strconv.ParseBool(q.Active)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "must be a boolean"})
		}
		filter.IsActive = &active
	}
	return filter, nil
}

// Handlers

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	// only a superadmin may create superadmins
	ctxUsr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	if data.Role == user.RoleSuperAdmin && !ctxUsr.IsSuperAdmin() {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "not enough rights to set this role"})
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	var q UserQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to UserQuery")
	}
	filter, err := q.Filter()
	if err != nil {
		return err
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setActive(active bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		// Say No to Suicide! ctxUser cannot deactivate themselves
		ctxUsr, err := api.auth.contextUser(ctx)
		if err != nil {
			return err
		}
		if !active && ctx.Param("id") == ctxUsr.ID {
			return errHttpForbidden
		}

		usr, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), active)
		if err != nil {
			return errors.Wrap(err, "setting user activity")
		}
		return ctx.JSON(http.StatusOK, usr)
	}
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.AllRoles)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}
