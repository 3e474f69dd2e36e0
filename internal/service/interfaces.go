package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
)

type AnnouncementStore interface {
	Upsert(ctx context.Context, announcement *domain.Announcement) (bool, error)
	LatestRegDate(ctx context.Context, departmentKey string) (*time.Time, error)
	List(ctx context.Context, filter domain.AnnouncementFilter) ([]domain.Announcement, int, error)
}

type SyncStateStore interface {
	Get(ctx context.Context, departmentKey string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type Source interface {
	ID() string
	Name() string
	Fetch(ctx context.Context, date time.Time, dept department.Department) ([]domain.RawRecord, error)
}

type Publisher interface {
	Publish(ctx context.Context, announcement *domain.Announcement, isNew bool) error
	Close() error
}

// Locker guards a sync across processes. ok is false when another holder
// owns key; release must be called once the guarded work is done.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(context.Context) error, ok bool, err error)
}
