package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"announcement_syncer/internal/domain"
)

type syncStateRow struct {
	ID                int64          `db:"id"`
	DepartmentKey     string         `db:"department_key"`
	LastSyncedAt      time.Time      `db:"last_synced_at"`
	LastProcessedDate sql.NullTime   `db:"last_processed_date"`
	TotalSynced       int64          `db:"total_synced"`
	FailedDates       pq.StringArray `db:"failed_dates"`
}

type SyncStateStore struct {
	db *sqlx.DB
}

func NewSyncStateStore(db *sqlx.DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

func (s *SyncStateStore) Get(ctx context.Context, departmentKey string) (*domain.SyncState, error) {
	var row syncStateRow
	query := `
		SELECT id, department_key, last_synced_at, last_processed_date, total_synced, failed_dates
		FROM sync_state
		WHERE department_key = $1`

	err := s.db.GetContext(ctx, &row, query, departmentKey)
	if errors.Is(err, sql.ErrNoRows) {
		// Return empty state for departments never synced
		return &domain.SyncState{
			DepartmentKey: departmentKey,
			FailedDates:   []string{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	state := &domain.SyncState{
		ID:            row.ID,
		DepartmentKey: row.DepartmentKey,
		LastSyncedAt:  row.LastSyncedAt,
		TotalSynced:   row.TotalSynced,
		FailedDates:   nonNil(row.FailedDates),
	}
	if row.LastProcessedDate.Valid {
		d := row.LastProcessedDate.Time
		state.LastProcessedDate = &d
	}
	return state, nil
}

func (s *SyncStateStore) Update(ctx context.Context, state *domain.SyncState) error {
	query := `
		INSERT INTO sync_state (department_key, last_synced_at, last_processed_date, total_synced, failed_dates)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (department_key) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_processed_date = COALESCE(EXCLUDED.last_processed_date, sync_state.last_processed_date),
			total_synced = EXCLUDED.total_synced,
			failed_dates = EXCLUDED.failed_dates`

	var processed any
	if state.LastProcessedDate != nil {
		processed = state.LastProcessedDate.Format(domain.DateLayout)
	}

	_, err := s.db.ExecContext(ctx, query,
		state.DepartmentKey,
		state.LastSyncedAt,
		processed,
		state.TotalSynced,
		pq.Array(nonNil(state.FailedDates)),
	)
	return err
}
