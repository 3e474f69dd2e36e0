package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"announcement_syncer/internal/config"
	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
)

// ErrSyncInProgress is returned when another process holds the department lock.
var ErrSyncInProgress = errors.New("sync already in progress")

type SyncService struct {
	source        Source
	registry      *department.Registry
	announcements AnnouncementStore
	syncState     SyncStateStore
	publisher     Publisher
	locker        Locker
	logger        *slog.Logger
	config        config.SyncConfig
	location      *time.Location
	now           func() time.Time
	group         singleflight.Group
}

// NewSyncService wires the orchestrator. publisher and locker are optional
// and may be nil.
func NewSyncService(
	source Source,
	registry *department.Registry,
	announcements AnnouncementStore,
	syncState SyncStateStore,
	publisher Publisher,
	locker Locker,
	logger *slog.Logger,
	cfg config.SyncConfig,
) *SyncService {
	return &SyncService{
		source:        source,
		registry:      registry,
		announcements: announcements,
		syncState:     syncState,
		publisher:     publisher,
		locker:        locker,
		logger:        logger.With("source", source.ID()),
		config:        cfg,
		location:      cfg.Location(),
		now:           time.Now,
	}
}

// Sync fetches and upserts every day from the start date through today for
// one department. Without startDate it resumes the day after the newest
// stored regDate. Per-day fetch failures are logged and recorded in
// FailedDates; the call itself only fails for an unknown department, a
// held lock or a watermark query error.
//
// The run is detached from ctx: a canceled caller stops waiting and gets
// ctx.Err(), while the run goes on for whoever else joined it. Only
// sync.timeout bounds the run; when it fires the partial result is
// returned together with context.DeadlineExceeded.
func (s *SyncService) Sync(ctx context.Context, departmentKey string, startDate *time.Time) (*domain.SyncResult, error) {
	dept, ok := s.registry.Lookup(departmentKey)
	if !ok {
		return nil, &domain.InvalidDepartmentError{Key: departmentKey}
	}

	key := dept.Key
	if startDate != nil {
		key += "@" + startDate.Format(domain.DateLayout)
	}

	done := s.group.DoChan(key, func() (any, error) {
		runCtx, cancel := s.runContext(ctx)
		defer cancel()
		return s.syncLocked(runCtx, dept, startDate)
	})

	select {
	case res := <-done:
		if res.Shared {
			s.logger.Debug("joined in-flight sync", "department", dept.Key)
		}
		result, _ := res.Val.(*domain.SyncResult)
		return result, res.Err
	case <-ctx.Done():
		s.logger.Warn("caller stopped waiting, sync continues", "department", dept.Key, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

// runContext keeps the values of ctx but not its cancellation.
func (s *SyncService) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.config.Timeout > 0 {
		return context.WithTimeout(detached, s.config.Timeout)
	}
	return context.WithCancel(detached)
}

func (s *SyncService) syncLocked(ctx context.Context, dept department.Department, startDate *time.Time) (*domain.SyncResult, error) {
	if s.locker == nil {
		return s.sync(ctx, dept, startDate)
	}

	release, ok, err := s.locker.TryLock(ctx, "sync:"+dept.Key)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release sync lock", "department", dept.Key, "error", err)
		}
	}()

	return s.sync(ctx, dept, startDate)
}

func (s *SyncService) sync(ctx context.Context, dept department.Department, startDate *time.Time) (*domain.SyncResult, error) {
	started := s.now()
	logger := s.logger.With("department", dept.Key)

	current, err := s.resolveStart(ctx, dept.Key, startDate)
	if err != nil {
		return nil, fmt.Errorf("resolve start date: %w", err)
	}
	end := s.today()

	logger.Info("starting sync",
		"department_name", dept.FullName,
		"start_date", current.Format(domain.DateLayout),
		"end_date", end.Format(domain.DateLayout),
	)

	result := &domain.SyncResult{
		DepartmentKey:  dept.Key,
		ProcessedDates: []string{},
		FailedDates:    []string{},
	}
	var lastProcessed *time.Time

	for ; !current.After(end); current = current.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, logger, result, lastProcessed, started)
			return result, err
		}

		day := current.Format(domain.DateLayout)

		records, err := s.source.Fetch(ctx, current, dept)
		if err != nil {
			logger.Error("fetch failed", "date", day, "error", err)
			result.FailedDates = append(result.FailedDates, day)
			continue
		}

		stats := s.saveDay(ctx, logger, records, current, dept.Key)
		result.New += stats.created
		result.Updated += stats.updated
		result.Skipped += stats.skipped
		result.Errors += stats.failed
		result.Published += stats.published
		result.TotalSaved += stats.created + stats.updated
		result.ProcessedDates = append(result.ProcessedDates, day)

		processed := current
		lastProcessed = &processed

		logger.Debug("day processed",
			"date", day,
			"fetched", len(records),
			"saved", stats.created+stats.updated,
		)
	}

	s.finish(ctx, logger, result, lastProcessed, started)
	return result, nil
}

func (s *SyncService) finish(ctx context.Context, logger *slog.Logger, result *domain.SyncResult, lastProcessed *time.Time, started time.Time) {
	result.Finalize()
	result.Duration = s.now().Sub(started)

	if err := s.updateSyncState(context.WithoutCancel(ctx), result, lastProcessed); err != nil {
		logger.Warn("failed to update sync state", "error", err)
	}

	logger.Info("sync completed",
		"total_saved", result.TotalSaved,
		"new", result.New,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"published", result.Published,
		"processed_days", len(result.ProcessedDates),
		"failed_days", len(result.FailedDates),
		"duration", result.Duration,
	)
}

type dayStats struct {
	created   int
	updated   int
	skipped   int
	failed    int
	published int
}

// saveDay upserts one day's records with bounded concurrency. Record level
// failures are counted, never returned.
func (s *SyncService) saveDay(ctx context.Context, logger *slog.Logger, records []domain.RawRecord, regDate time.Time, departmentKey string) dayStats {
	var (
		mu      sync.Mutex
		stats   dayStats
		skipped int
		g       errgroup.Group
	)
	g.SetLimit(s.upsertConcurrency())

	for _, raw := range records {
		announcement := MapRecord(raw, regDate, departmentKey)
		if announcement == nil {
			skipped++
			logger.Warn("skipping record without itemId", "date", regDate.Format(domain.DateLayout))
			continue
		}

		g.Go(func() error {
			created, err := s.announcements.Upsert(ctx, announcement)
			if err != nil {
				logger.Error("upsert failed", "item_id", announcement.ItemID, "error", err)
				mu.Lock()
				stats.failed++
				mu.Unlock()
				return nil
			}

			published := false
			if s.publisher != nil {
				if err := s.publisher.Publish(ctx, announcement, created); err != nil {
					logger.Warn("failed to publish event", "item_id", announcement.ItemID, "error", err)
				} else {
					published = true
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if created {
				stats.created++
			} else {
				stats.updated++
			}
			if published {
				stats.published++
			}
			return nil
		})
	}

	_ = g.Wait()
	stats.skipped = skipped
	return stats
}

// SyncAll runs Sync for every registered department in order. A failing
// department is reported in its entry and does not stop the sweep.
func (s *SyncService) SyncAll(ctx context.Context) (*domain.SweepResult, error) {
	sweep := &domain.SweepResult{Departments: []domain.DepartmentSweep{}}

	for _, dept := range s.registry.All() {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}

		result, err := s.Sync(ctx, dept.Key, nil)
		entry := domain.DepartmentSweep{DepartmentKey: dept.Key, Result: result}
		if result != nil {
			sweep.TotalSaved += result.TotalSaved
		}
		if err != nil {
			s.logger.Error("department sync failed", "department", dept.Key, "error", err)
			entry.Error = err.Error()
		}
		sweep.Departments = append(sweep.Departments, entry)
	}

	s.logger.Info("sweep completed",
		"departments", len(sweep.Departments),
		"total_saved", sweep.TotalSaved,
	)
	return sweep, nil
}

// State returns the recorded sync bookkeeping for a department.
func (s *SyncService) State(ctx context.Context, departmentKey string) (*domain.SyncState, error) {
	if !s.registry.IsValid(departmentKey) {
		return nil, &domain.InvalidDepartmentError{Key: departmentKey}
	}

	state, err := s.syncState.Get(ctx, departmentKey)
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	return state, nil
}

func (s *SyncService) resolveStart(ctx context.Context, departmentKey string, explicit *time.Time) (time.Time, error) {
	if explicit != nil {
		return s.dayOf(*explicit), nil
	}

	scope := ""
	if s.config.PerDepartmentWatermark {
		scope = departmentKey
	}

	latest, err := s.announcements.LatestRegDate(ctx, scope)
	if err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Date(s.today().Year(), time.April, 1, 0, 0, 0, 0, s.location), nil
	}
	return s.dayOf(*latest).AddDate(0, 0, 1), nil
}

// dayOf keeps the calendar date of t and drops its clock and zone.
func (s *SyncService) dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.location)
}

func (s *SyncService) today() time.Time {
	return s.dayOf(s.now().In(s.location))
}

func (s *SyncService) upsertConcurrency() int {
	if s.config.UpsertConcurrency > 0 {
		return s.config.UpsertConcurrency
	}
	return 1
}

func (s *SyncService) updateSyncState(ctx context.Context, result *domain.SyncResult, lastProcessed *time.Time) error {
	state, err := s.syncState.Get(ctx, result.DepartmentKey)
	if err != nil {
		return err
	}

	state.DepartmentKey = result.DepartmentKey
	state.LastSyncedAt = s.now()
	state.TotalSynced += int64(result.TotalSaved)
	if lastProcessed != nil {
		state.LastProcessedDate = lastProcessed
	}
	state.FailedDates = result.FailedDates

	return s.syncState.Update(ctx, state)
}
