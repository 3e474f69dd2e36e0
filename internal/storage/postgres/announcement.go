package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"announcement_syncer/internal/domain"
)

const announcementColumns = `id, item_id, department_key, title, data_contents,
	application_start_date, application_end_date, writer_name, writer_position,
	writer_phone, writer_email, view_url, file_names, file_urls, reg_date,
	created_at, updated_at`

type announcementRow struct {
	ID                   int64          `db:"id"`
	ItemID               string         `db:"item_id"`
	DepartmentKey        string         `db:"department_key"`
	Title                string         `db:"title"`
	DataContents         *string        `db:"data_contents"`
	ApplicationStartDate *string        `db:"application_start_date"`
	ApplicationEndDate   *string        `db:"application_end_date"`
	WriterName           *string        `db:"writer_name"`
	WriterPosition       *string        `db:"writer_position"`
	WriterPhone          *string        `db:"writer_phone"`
	WriterEmail          *string        `db:"writer_email"`
	ViewURL              *string        `db:"view_url"`
	FileNames            pq.StringArray `db:"file_names"`
	FileURLs             pq.StringArray `db:"file_urls"`
	RegDate              time.Time      `db:"reg_date"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func (r announcementRow) toDomain() domain.Announcement {
	return domain.Announcement{
		ID:                   r.ID,
		ItemID:               r.ItemID,
		DepartmentKey:        r.DepartmentKey,
		Title:                r.Title,
		DataContents:         r.DataContents,
		ApplicationStartDate: r.ApplicationStartDate,
		ApplicationEndDate:   r.ApplicationEndDate,
		WriterName:           r.WriterName,
		WriterPosition:       r.WriterPosition,
		WriterPhone:          r.WriterPhone,
		WriterEmail:          r.WriterEmail,
		ViewURL:              r.ViewURL,
		FileNames:            nonNil(r.FileNames),
		FileURLs:             nonNil(r.FileURLs),
		RegDate:              r.RegDate,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type AnnouncementStore struct {
	db *sqlx.DB
}

func NewAnnouncementStore(db *sqlx.DB) *AnnouncementStore {
	return &AnnouncementStore{db: db}
}

// Upsert inserts or fully overwrites the row keyed by ItemID and reports
// whether a new row was created. ID and timestamps are written back.
func (s *AnnouncementStore) Upsert(ctx context.Context, a *domain.Announcement) (bool, error) {
	query := `
		INSERT INTO announcements (
			item_id, department_key, title, data_contents,
			application_start_date, application_end_date,
			writer_name, writer_position, writer_phone, writer_email,
			view_url, file_names, file_urls, reg_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (item_id) DO UPDATE SET
			department_key = EXCLUDED.department_key,
			title = EXCLUDED.title,
			data_contents = EXCLUDED.data_contents,
			application_start_date = EXCLUDED.application_start_date,
			application_end_date = EXCLUDED.application_end_date,
			writer_name = EXCLUDED.writer_name,
			writer_position = EXCLUDED.writer_position,
			writer_phone = EXCLUDED.writer_phone,
			writer_email = EXCLUDED.writer_email,
			view_url = EXCLUDED.view_url,
			file_names = EXCLUDED.file_names,
			file_urls = EXCLUDED.file_urls,
			reg_date = EXCLUDED.reg_date,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	var inserted bool
	err := s.db.QueryRowContext(ctx, query,
		a.ItemID,
		a.DepartmentKey,
		a.Title,
		a.DataContents,
		a.ApplicationStartDate,
		a.ApplicationEndDate,
		a.WriterName,
		a.WriterPosition,
		a.WriterPhone,
		a.WriterEmail,
		a.ViewURL,
		pq.Array(nonNil(a.FileNames)),
		pq.Array(nonNil(a.FileURLs)),
		a.RegDate.Format(domain.DateLayout),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert announcement %s: %w", a.ItemID, err)
	}

	return inserted, nil
}

// LatestRegDate returns the sync watermark, nil when nothing is stored. An
// empty departmentKey spans all departments.
func (s *AnnouncementStore) LatestRegDate(ctx context.Context, departmentKey string) (*time.Time, error) {
	query := `SELECT MAX(reg_date) FROM announcements`
	var args []any
	if departmentKey != "" {
		query += ` WHERE department_key = $1`
		args = append(args, departmentKey)
	}

	var latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&latest); err != nil {
		return nil, fmt.Errorf("query latest reg date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// List returns one page of announcements, newest regDate first, and the
// total number of matches.
func (s *AnnouncementStore) List(ctx context.Context, f domain.AnnouncementFilter) ([]domain.Announcement, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM announcements"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}

	query := "SELECT " + announcementColumns + " FROM announcements" + where +
		" ORDER BY reg_date DESC, id DESC" +
		" LIMIT $" + strconv.Itoa(len(args)+1) +
		" OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	var rows []announcementRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("select announcements: %w", err)
	}

	out := make([]domain.Announcement, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, total, nil
}

func buildWhere(f domain.AnnouncementFilter) (string, []any) {
	var conds []string
	var args []any

	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		p := next("%" + escapeLike(search) + "%")
		conds = append(conds, "(title ILIKE "+p+" OR data_contents ILIKE "+p+")")
	}
	if f.StartDate != nil {
		conds = append(conds, "reg_date >= "+next(f.StartDate.Format(domain.DateLayout)))
	}
	if f.EndDate != nil {
		conds = append(conds, "reg_date <= "+next(f.EndDate.Format(domain.DateLayout)))
	}
	if f.DepartmentKey != "" {
		conds = append(conds, "department_key = "+next(f.DepartmentKey))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
