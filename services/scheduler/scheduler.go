package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/proft/portfolio/core"
	"github.com/proft/portfolio/core/assignment"
)

const jobTimeout = 10 * time.Minute

var NowFunc = time.Now // mockable

// Jobs are the periodic assignment operations.
type Jobs interface {
	SweepOverdue(ctx context.Context, at time.Time) (assignment.SweepResult, error)
	SendDeadlineReminders(ctx context.Context, at time.Time, from, to time.Duration) (int, error)
}

var _ Jobs = (*assignment.Service)(nil)

type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	conf   core.SchedulerConfig
	logger core.Logger
}

// New registers the overdue sweep and the deadline reminders; nothing runs until Start.
func New(jobs Jobs, conf *core.Config, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		jobs:   jobs,
		conf:   conf.Scheduler,
		logger: logger,
	}
	cl := cronLogger{logger: logger, debug: conf.Debug}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := s.cron.AddFunc(s.conf.SweepSpec, func() { _ = s.Sweep(context.Background()) }); err != nil {
		return nil, errors.Wrapf(err, "scheduling sweep %q", s.conf.SweepSpec)
	}
	if _, err := s.cron.AddFunc(s.conf.ReminderSpec, func() { _ = s.Remind(context.Background()) }); err != nil {
		return nil, errors.Wrapf(err, "scheduling reminders %q", s.conf.ReminderSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Sweep runs the overdue sweep once.
func (s *Scheduler) Sweep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	res, err := s.jobs.SweepOverdue(ctx, NowFunc().UTC())
	if err != nil {
		s.logger.Error(fmt.Sprintf("overdue sweep: %v", err), err)
		return err
	}
	s.logger.Info(fmt.Sprintf("overdue sweep: %d checked, %d changed, %d failed",
		res.Checked, len(res.Transitions), len(res.Failed)))
	return nil
}

// Remind sends the deadline reminders once.
func (s *Scheduler) Remind(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := s.jobs.SendDeadlineReminders(ctx, NowFunc().UTC(), s.conf.ReminderWindow[0], s.conf.ReminderWindow[1])
	if err != nil {
		s.logger.Error(fmt.Sprintf("deadline reminders: %v", err), err)
		return err
	}
	s.logger.Info(fmt.Sprintf("deadline reminders: %d sent", n))
	return nil
}

// cronLogger routes cron's own logs to the app logger.
type cronLogger struct {
	logger core.Logger
	debug  bool
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if l.debug {
		l.logger.Debug("cron: "+msg, keysAndValues...)
	}
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), append([]interface{}{err}, keysAndValues...)...)
}
