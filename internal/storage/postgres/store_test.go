package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"announcement_syncer/internal/domain"
	"announcement_syncer/internal/testutil"
)

type StoreTestSuite struct {
	suite.Suite
	ctx  context.Context
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()

	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	s.Require().NoError(err)

	s.db = sqlx.NewDb(raw, "postgres")
	s.mock = mock
}

func (s *StoreTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestAnnouncementUpsert_Inserted() {
	store := NewAnnouncementStore(s.db)
	created := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

	a := &domain.Announcement{
		ItemID:        "1421000_42",
		DepartmentKey: "1421000",
		Title:         "A",
		ViewURL:       testutil.Ptr("https://example.test/42"),
		FileNames:     []string{"doc.pdf"},
		FileURLs:      []string{"https://example.test/doc.pdf"},
		RegDate:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}

	s.mock.ExpectQuery(`INSERT INTO announcements .* ON CONFLICT \(item_id\) DO UPDATE SET .* updated_at = NOW\(\) RETURNING id, created_at, updated_at, \(xmax = 0\) AS inserted`).
		WithArgs(
			"1421000_42", "1421000", "A",
			nil, nil, nil, nil, nil, nil, nil,
			"https://example.test/42",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			"2024-01-05",
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
			AddRow(int64(7), created, created, true))

	inserted, err := store.Upsert(s.ctx, a)
	s.NoError(err)
	s.True(inserted)
	s.Equal(int64(7), a.ID)
	s.Equal(created, a.CreatedAt)
}

func (s *StoreTestSuite) TestAnnouncementUpsert_Updated() {
	store := NewAnnouncementStore(s.db)
	now := time.Now()

	s.mock.ExpectQuery(`INSERT INTO announcements`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
			AddRow(int64(7), now.Add(-time.Hour), now, false))

	inserted, err := store.Upsert(s.ctx, &domain.Announcement{ItemID: "1421000_42", DepartmentKey: "1421000"})
	s.NoError(err)
	s.False(inserted)
}

func (s *StoreTestSuite) TestAnnouncementUpsert_Error() {
	store := NewAnnouncementStore(s.db)

	s.mock.ExpectQuery(`INSERT INTO announcements`).WillReturnError(errors.New("connection reset"))

	_, err := store.Upsert(s.ctx, &domain.Announcement{ItemID: "1421000_42"})
	s.ErrorContains(err, "upsert announcement 1421000_42")
}

func (s *StoreTestSuite) TestLatestRegDate_Empty() {
	store := NewAnnouncementStore(s.db)

	s.mock.ExpectQuery(`SELECT MAX\(reg_date\) FROM announcements$`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	latest, err := store.LatestRegDate(s.ctx, "")
	s.NoError(err)
	s.Nil(latest)
}

func (s *StoreTestSuite) TestLatestRegDate_PerDepartment() {
	store := NewAnnouncementStore(s.db)
	want := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(`SELECT MAX\(reg_date\) FROM announcements WHERE department_key = \$1`).
		WithArgs("1421000").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(want))

	latest, err := store.LatestRegDate(s.ctx, "1421000")
	s.NoError(err)
	s.Require().NotNil(latest)
	s.Equal(want, *latest)
}

func (s *StoreTestSuite) TestList_NoFilter() {
	store := NewAnnouncementStore(s.db)
	reg := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM announcements$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	s.mock.ExpectQuery(`SELECT .* FROM announcements ORDER BY reg_date DESC, id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(30, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "item_id", "department_key", "title", "data_contents",
			"application_start_date", "application_end_date", "writer_name", "writer_position",
			"writer_phone", "writer_email", "view_url", "file_names", "file_urls", "reg_date",
			"created_at", "updated_at",
		}).AddRow(
			int64(1), "1421000_42", "1421000", "A", "body",
			nil, nil, nil, nil,
			nil, nil, nil, []byte(`{doc.pdf}`), []byte(`{}`), reg,
			reg, reg,
		))

	items, total, err := store.List(s.ctx, domain.AnnouncementFilter{Limit: 30})
	s.NoError(err)
	s.Equal(1, total)
	s.Require().Len(items, 1)
	s.Equal("1421000_42", items[0].ItemID)
	s.Equal("body", *items[0].DataContents)
	s.Nil(items[0].WriterName)
	s.Equal([]string{"doc.pdf"}, items[0].FileNames)
	s.Equal([]string{}, items[0].FileURLs)
}

func (s *StoreTestSuite) TestList_AllFilters() {
	store := NewAnnouncementStore(s.db)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	where := `WHERE \(title ILIKE \$1 OR data_contents ILIKE \$1\) AND reg_date >= \$2 AND reg_date <= \$3 AND department_key = \$4`

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM announcements ` + where).
		WithArgs(`%100\%%`, "2024-01-01", "2024-01-31", "1421000").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	s.mock.ExpectQuery(`FROM announcements ` + where + ` ORDER BY reg_date DESC, id DESC LIMIT \$5 OFFSET \$6`).
		WithArgs(`%100\%%`, "2024-01-01", "2024-01-31", "1421000", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, total, err := store.List(s.ctx, domain.AnnouncementFilter{
		Search:        "  100%  ",
		StartDate:     &start,
		EndDate:       &end,
		DepartmentKey: "1421000",
		Limit:         10,
		Offset:        20,
	})
	s.NoError(err)
	s.Equal(0, total)
	s.Empty(items)
}

func (s *StoreTestSuite) TestSyncStateGet_NotFound() {
	store := NewSyncStateStore(s.db)

	s.mock.ExpectQuery(`FROM sync_state WHERE department_key = \$1`).
		WithArgs("1421000").
		WillReturnError(sql.ErrNoRows)

	state, err := store.Get(s.ctx, "1421000")
	s.NoError(err)
	s.Equal("1421000", state.DepartmentKey)
	s.True(state.LastSyncedAt.IsZero())
	s.Nil(state.LastProcessedDate)
	s.Empty(state.FailedDates)
}

func (s *StoreTestSuite) TestSyncStateGet_Found() {
	store := NewSyncStateStore(s.db)
	synced := time.Date(2024, 6, 11, 6, 0, 0, 0, time.UTC)
	processed := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectQuery(`FROM sync_state`).
		WithArgs("1421000").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "department_key", "last_synced_at", "last_processed_date", "total_synced", "failed_dates",
		}).AddRow(int64(1), "1421000", synced, processed, int64(12), []byte(`{2024-06-08}`)))

	state, err := store.Get(s.ctx, "1421000")
	s.NoError(err)
	s.Equal(int64(12), state.TotalSynced)
	s.Require().NotNil(state.LastProcessedDate)
	s.Equal(processed, *state.LastProcessedDate)
	s.Equal([]string{"2024-06-08"}, state.FailedDates)
}

func (s *StoreTestSuite) TestSyncStateUpdate() {
	store := NewSyncStateStore(s.db)
	synced := time.Date(2024, 6, 11, 6, 0, 0, 0, time.UTC)
	processed := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectExec(`INSERT INTO sync_state .* ON CONFLICT \(department_key\) DO UPDATE SET`).
		WithArgs("1421000", synced, "2024-06-10", int64(3), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Update(s.ctx, &domain.SyncState{
		DepartmentKey:     "1421000",
		LastSyncedAt:      synced,
		LastProcessedDate: &processed,
		TotalSynced:       3,
	})
	s.NoError(err)
}

func (s *StoreTestSuite) TestCredentialGet() {
	store := NewCredentialStore(s.db)

	s.mock.ExpectQuery(`FROM accounts WHERE user_id = \$1 AND provider = \$2`).
		WithArgs("u1", "naver").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "provider", "access_token", "expires_at"}).
			AddRow("u1", "naver", "tok", nil))

	cred, err := store.Get(s.ctx, "u1", "naver")
	s.NoError(err)
	s.Require().NotNil(cred)
	s.Equal("tok", cred.AccessToken)
	s.Zero(cred.ExpiresAt)
}

func (s *StoreTestSuite) TestCredentialGet_Missing() {
	store := NewCredentialStore(s.db)

	s.mock.ExpectQuery(`FROM accounts`).
		WithArgs("u1", "naver").
		WillReturnError(sql.ErrNoRows)

	cred, err := store.Get(s.ctx, "u1", "naver")
	s.NoError(err)
	s.Nil(cred)
}

func (s *StoreTestSuite) TestEscapeLike() {
	s.Equal(`50\% off\_now \\ ok`, escapeLike(`50% off_now \ ok`))
}
