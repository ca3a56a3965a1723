package main

import (
	"context"

	"github.com/pkg/errors"

	echoapi "github.com/proft/portfolio/apps/api/echo"
	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
)

// addUser updates or creates a user.User and (re)activates it.
func (cli *commandLine) addUser(ctx context.Context, uname, email, name, role string) error {
	if !user.IsValidRole(role) {
		return errors.Errorf("unknown role %q", role)
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{Name: name, Username: uname, Email: email, Role: role})
		return err
	}

	if name != "" {
		usr.Name = core.CleanString(name)
	}
	usr.Email = core.CleanString(email, true /* lower */)
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = user.NowFunc().UTC()
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}

// token issues an access token for an active user.
func (cli *commandLine) token(ctx context.Context, uname string) (string, error) {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return "", err
	}
	if !usr.IsActive {
		return "", errors.New("account deactivated")
	}
	return echoapi.GenerateToken(cli.conf, echoapi.GetUserClaims(cli.conf, usr))
}
