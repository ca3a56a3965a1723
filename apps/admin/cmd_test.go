package main

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/proft/portfolio/apps/api/echo"
	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
	"github.com/proft/portfolio/services/scheduler"
	"github.com/proft/portfolio/storage/database/inmem"
	"github.com/proft/portfolio/tests"
)

type fixture struct {
	cli     *commandLine
	usrRepo user.Repository
	repo    assignment.Repository
	pub     *testutil.Publisher
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	validate, _ := testutil.NewValidator()

	// set up DB & repos
	db := inmemdb.New()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewAssignmentRepository(db)

	// set up services
	pub := new(testutil.Publisher)
	jobs, err := scheduler.New(assignment.NewService(repo, pub, validate, logger), conf, logger)
	require.NoError(t, err)

	// start CLI
	return fixture{
		cli: &commandLine{
			conf:    conf,
			usrRepo: usrRepo,
			usrSvc:  user.NewService(usrRepo, validate),
			jobs:    jobs,
		},
		usrRepo: usrRepo,
		repo:    repo,
		pub:     pub,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_run(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "grades", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "jane"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "jane", "-email", "jane@test.cd", "-role", "student"}, wantErrStr: `unknown role "student"`},
		{name: "create", args: []string{"adduser", "-username", "Jane", "-email", "jane@test.cd", "-name", "Jane"}},
		{name: "promote", args: []string{"adduser", "-username", "jane", "-email", "jane@test.cd", "-role", user.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usr, err := f.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{"jane"}})
	require.NoError(t, err)
	assert.Equal(t, "Jane", usr.Name)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)

	users, err := f.usrRepo.QueryUsers(ctx, user.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func Test_commandLine_token(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)
	testutil.CreateUser(t, f.usrRepo, "N Dog", "ndog", user.RoleTeacher, false)

	tests := []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"token", "-username", "lol"}, wantErr: user.ErrNotFound},
		{name: "deactivated", args: []string{"token", "-username", "ndog"}, wantErrStr: "account deactivated"},
		{name: "issued", args: []string{"token", "-username", "teacher@test.cd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	token, err := f.cli.token(context.Background(), usr.Username)
	require.NoError(t, err)
	claims := new(echoapi.Claims)
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(f.cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, claims.Subject)
	assert.Equal(t, user.RoleTeacher, claims.Role)
}

func Test_commandLine_jobs(t *testing.T) {
	f := setup(t)
	teacher := testutil.CreateUser(t, f.usrRepo, "Teacher", "teacher", user.RoleTeacher, true)
	cat := testutil.CreateCategory(t, f.repo, "Lectures", 10, 0, "1")
	late := testutil.CreateAssignment(t, f.repo, teacher, cat, 2, time.Now().Add(-time.Hour))
	testutil.CreateAssignment(t, f.repo, teacher, cat, 2, time.Now().Add(24*time.Hour))

	require.NoError(t, f.cli.run([]string{"admin", "sweep"}))
	got, err := f.repo.GetAssignment(context.Background(), late.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusOverdue, got.Status)
	assert.Equal(t, []assignment.EventKind{assignment.EventStatusChanged}, f.pub.Kinds())

	f.pub.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "remind"}))
	assert.Equal(t, []assignment.EventKind{assignment.EventDeadlineReminder}, f.pub.Kinds())
}
