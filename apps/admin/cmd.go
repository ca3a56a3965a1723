package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/user"
	"github.com/proft/portfolio/services/scheduler"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf    *core.Config
	db      *sqlx.DB
	usrRepo user.Repository
	usrSvc  *user.Service
	jobs    *scheduler.Scheduler
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                                       - run a goose migration command (up, down, status, ...)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-role ROLE] - add or update a user")
	fmt.Println("  token -username USERNAME|EMAIL                               - print an access token for a user")
	fmt.Println("  sweep                                                        - mark overdue assignments now")
	fmt.Println("  remind                                                       - send the deadline reminders now")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", user.RoleTeacher, "One of superadmin, admin, teacher.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenUname := tokenCmd.String("username", "", "The user's username or email.")

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserUname, *addUserEmail, *addUserName, *addUserRole)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUname == "" {
			tokenCmd.Usage()
			return errHelp
		}
		token, err := cli.token(ctx, *tokenUname)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	case "sweep":
		return cli.jobs.Sweep(ctx)
	case "remind":
		return cli.jobs.Remind(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}
