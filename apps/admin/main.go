package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
	emailsvc "github.com/proft/portfolio/services/email"
	logsvc "github.com/proft/portfolio/services/logger"
	"github.com/proft/portfolio/services/notify"
	"github.com/proft/portfolio/services/scheduler"
	"github.com/proft/portfolio/storage/database"
	sqlxrepos "github.com/proft/portfolio/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	usrRepo := sqlxrepos.NewUserRepository(db)
	dispatcher := notify.NewDispatcher(usrRepo, emailsvc.NewService(conf, logger), logger)
	asgSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db), dispatcher, validate, logger)
	jobs, err := scheduler.New(asgSvc, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up jobs: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, validate),
		jobs:    jobs,
	}
	err = cli.run(os.Args)
	dispatcher.Wait()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
