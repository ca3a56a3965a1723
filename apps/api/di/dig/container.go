package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/proft/portfolio/apps/api/echo"
	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
	emailsvc "github.com/proft/portfolio/services/email"
	logsvc "github.com/proft/portfolio/services/logger"
	"github.com/proft/portfolio/services/notify"
	"github.com/proft/portfolio/services/scheduler"
	"github.com/proft/portfolio/storage/database"
	"github.com/proft/portfolio/storage/database/inmem"
	sqlxrepos "github.com/proft/portfolio/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type CronLoggerParam struct {
	dig.In
	Logger core.Logger `name:"cronLogger"`
}

// Storage holds the repositories of the configured database engine.
type Storage struct {
	Users       user.Repository
	Assignments assignment.Repository
	Close       func() error
}

func newStdLogger(conf *core.Config, prefix string) core.Logger {
	stdLogger := log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newStdLogger(conf, "API : ")
}

func newDBLogger(conf *core.Config) core.Logger {
	return newStdLogger(conf, "DB : ")
}

func newCronLogger(conf *core.Config) core.Logger {
	return newStdLogger(conf, "CRON : ")
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) (*Storage, error) {
	if conf.Database.Engine == "memory" {
		loggerParam.Logger.Warn("using the in-memory database, data will not survive a restart")
		db := inmemdb.New()
		return &Storage{
			Users:       inmemdb.NewUserRepository(db),
			Assignments: inmemdb.NewAssignmentRepository(db),
			Close:       func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	loggerParam.Logger.Info(fmt.Sprintf("connected to %s/%s", conf.Database.Address(), conf.Database.Name))

	return &Storage{
		Users:       sqlxrepos.NewUserRepository(db),
		Assignments: sqlxrepos.NewAssignmentRepository(db),
		Close:       db.Close,
	}, nil
}

func newUserRepository(s *Storage) user.Repository { return s.Users }

func newAssignmentRepository(s *Storage) assignment.Repository { return s.Assignments }

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newPublisher(d *notify.Dispatcher) assignment.Publisher { return d }

func newScheduler(svc *assignment.Service, conf *core.Config, loggerParam CronLoggerParam) (*scheduler.Scheduler, error) {
	return scheduler.New(svc, conf, loggerParam.Logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	usrSvc *user.Service,
	asgSvc *assignment.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		AssignmentSvc: asgSvc,
		Validate:      validate,
		Translator:    translator,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig defaults to core.NewConfig.
func New(newConfig ...func() *core.Config) *dig.Container {
	c := dig.New()

	confFunc := core.NewConfig
	if len(newConfig) > 0 {
		confFunc = newConfig[0]
	}

	must(c.Provide(confFunc))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newCronLogger, dig.Name("cronLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newUserRepository))
	must(c.Provide(newAssignmentRepository))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(notify.NewDispatcher))
	must(c.Provide(newPublisher))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(assignment.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
