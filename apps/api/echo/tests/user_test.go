package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/proft/portfolio/apps/api/echo"
	"github.com/proft/portfolio/core/user"
	"github.com/proft/portfolio/tests"
)

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)
	naughty := testutil.CreateUser(t, app.usrRepo, "N Dog", "ndog", user.RoleTeacher, false)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Bad token", token: "not.a.token", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Deactivated", token: app.token(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Me", token: app.token(t, teacher), wantCode: http.StatusOK, wantData: marchallObj(t, teacher)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/v1/users/me", tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)
	naughty := testutil.CreateUser(t, app.usrRepo, "N Dog", "ndog", user.RoleTeacher, false)
	adminToken := app.token(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: app.token(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, teacher, naughty)},
		{name: "role=teacher", path: "/v1/users?role=teacher", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, teacher, naughty)},
		{name: "role (unknown)", path: "/v1/users?role=student", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "is_active=false", path: "/v1/users?is_active=false", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, naughty)},
		{
			name: "is_active (invalid)", path: "/v1/users?is_active=maybe", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"is_active": "must be a boolean"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", user.RoleAdmin, true)
	testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)
	adminToken := app.token(t, admin)

	tests := []httpTest{
		{
			name:     "Missing fields",
			body:     marchallObj(t, user.NewUser{Role: user.RoleTeacher}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "email": "this field is required"}),
		},
		{
			name:     "Duplicate username",
			body:     marchallObj(t, user.NewUser{Username: "TEACHER", Email: "new@test.cd", Role: user.RoleTeacher}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name:     "Superadmin by an admin",
			body:     marchallObj(t, user.NewUser{Username: "boss", Email: "boss@test.cd", Role: user.RoleSuperAdmin}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "not enough rights to set this role"}),
		},
		{
			name:     "Created",
			body:     marchallObj(t, user.NewUser{Name: "Jane", Username: "jane", Email: "Jane@test.cd", Role: user.RoleTeacher}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/v1/users", adminToken, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	var created user.User
	rec := app.do(http.MethodGet, "/v1/users?role=teacher", adminToken)
	var teachers []user.User
	decode(t, rec, &teachers)
	for _, usr := range teachers {
		if usr.Username == "jane" {
			created = usr
		}
	}
	assert.Equal(t, "jane@test.cd", created.Email)
	assert.True(t, created.IsActive)
}

func Test_userApi_setActive(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)
	adminToken := app.token(t, admin)
	teacherToken := app.token(t, teacher)

	rec := app.do(http.MethodPost, "/v1/users/"+admin.ID+"/deactivate", adminToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/v1/users/"+teacher.ID+"/deactivate", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	var usr user.User
	decode(t, rec, &usr)
	assert.False(t, usr.IsActive)

	// the token outlives the account
	rec = app.do(http.MethodGet, "/v1/users/me", teacherToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/v1/users/"+teacher.ID+"/activate", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = app.do(http.MethodGet, "/v1/users/me", teacherToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, "/v1/users/00000000-0000-0000-0000-000000000000/activate", adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)

	rec := app.do(http.MethodPost, "/v1/users/token-refresh", app.token(t, teacher))
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.TokenResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// refresh window elapsed
	old := echoapi.GetUserClaims(app.conf, teacher, 1)
	token, err := echoapi.GenerateToken(app.conf, old)
	assert.NoError(t, err)
	rec = app.do(http.MethodPost, "/v1/users/token-refresh", token)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}, rec)
}
