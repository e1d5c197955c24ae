package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domrepo "CashPilot/internal/domain/repository"
	"CashPilot/pkg/logger"
	"CashPilot/pkg/util"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig configures the periodic refresh.
type SchedulerConfig struct {
	Spec           string
	LookbackMonths int
	Location       *time.Location
}

// RefreshScheduler enqueues a refresh for every recently active user on a cron schedule.
type RefreshScheduler struct {
	cron     *cron.Cron
	users    domrepo.UserDirectory
	jobs     domrepo.JobEnqueuer
	log      *logger.Logger
	spec     string
	lookback int
	loc      *time.Location
	now      func() time.Time
}

func NewRefreshScheduler(users domrepo.UserDirectory, jobs domrepo.JobEnqueuer, log *logger.Logger, cfg SchedulerConfig) *RefreshScheduler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = 3
	}
	cl := cronLogger{log}
	return &RefreshScheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		users:    users,
		jobs:     jobs,
		log:      log,
		spec:     cfg.Spec,
		lookback: cfg.LookbackMonths,
		loc:      cfg.Location,
		now:      time.Now,
	}
}

// Start registers the cron entry and starts the scheduler goroutine.
func (s *RefreshScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		n, err := s.RunOnce(context.Background())
		if err != nil {
			s.log.Error("scheduled refresh incomplete", logger.Int("enqueued", n), logger.Error(err))
			return
		}
		s.log.Info("scheduled refresh enqueued", logger.Int("users", n))
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info("refresh scheduler started", logger.String("spec", s.spec), logger.Int("lookback_months", s.lookback))
	return nil
}

// Stop waits for a running tick to finish or ctx to expire.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunOnce enqueues a refresh for each user active since the start of the lookback window.
// It keeps going past individual failures and returns how many were enqueued.
func (s *RefreshScheduler) RunOnce(ctx context.Context) (int, error) {
	since := util.AddMonths(util.MonthStart(s.now(), s.loc), -(s.lookback - 1))
	users, err := s.users.ActiveUsers(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}

	var (
		enqueued int
		errs     []error
	)
	for _, u := range users {
		if err := s.jobs.EnqueueRefresh(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		enqueued++
	}
	return enqueued, errors.Join(errs...)
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
