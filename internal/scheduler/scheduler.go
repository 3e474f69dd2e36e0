package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"announcement_syncer/internal/domain"
)

// Syncer defines the interface for sync operations.
type Syncer interface {
	SyncAll(ctx context.Context) (*domain.SweepResult, error)
}

type Config struct {
	// Schedule is a standard five-field cron spec or a descriptor such as "@every 1h".
	Schedule   string
	RunOnStart bool
	Timeout    time.Duration
	Location   *time.Location
}

type Scheduler struct {
	syncer   Syncer
	cfg      Config
	schedule cron.Schedule
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Scheduler{
		syncer:   syncer,
		cfg:      cfg,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start blocks until ctx is done, running a sweep on every schedule tick.
// A tick that fires while the previous sweep is still running is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runSync(ctx) }))

	s.logger.Info("scheduler started",
		"schedule", s.cfg.Schedule,
		"run_on_start", s.cfg.RunOnStart,
		"next_run", s.schedule.Next(time.Now().In(s.cfg.Location)),
	)

	if s.cfg.RunOnStart {
		s.runSync(ctx)
	}

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	syncCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		syncCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	sweep, err := s.syncer.SyncAll(syncCtx)
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		return
	}

	failed := 0
	for _, d := range sweep.Departments {
		if d.Error != "" {
			failed++
		}
	}
	s.logger.Info("scheduled sync finished",
		"total_saved", sweep.TotalSaved,
		"departments", len(sweep.Departments),
		"failed_departments", failed,
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
