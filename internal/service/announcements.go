package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
)

const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

var ErrInvalidQuery = errors.New("invalid query")

// ListQuery is the caller-facing form of a listing request. Dates are
// YYYY-MM-DD strings; empty fields do not filter.
type ListQuery struct {
	Page          int
	Limit         int
	Search        string
	StartDate     string
	EndDate       string
	DepartmentKey string
}

type AnnouncementService struct {
	announcements AnnouncementStore
	registry      *department.Registry
}

func NewAnnouncementService(announcements AnnouncementStore, registry *department.Registry) *AnnouncementService {
	return &AnnouncementService{
		announcements: announcements,
		registry:      registry,
	}
}

func (s *AnnouncementService) List(ctx context.Context, q ListQuery) (*domain.AnnouncementPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page > math.MaxInt/limit {
		return nil, fmt.Errorf("%w: page %d out of range", ErrInvalidQuery, page)
	}

	filter := domain.AnnouncementFilter{
		Search:        strings.TrimSpace(q.Search),
		DepartmentKey: q.DepartmentKey,
		Limit:         limit,
		Offset:        (page - 1) * limit,
	}

	if filter.DepartmentKey != "" && !s.registry.IsValid(filter.DepartmentKey) {
		return nil, &domain.InvalidDepartmentError{Key: filter.DepartmentKey}
	}

	var err error
	if filter.StartDate, err = parseDate("startDate", q.StartDate); err != nil {
		return nil, err
	}
	if filter.EndDate, err = parseDate("endDate", q.EndDate); err != nil {
		return nil, err
	}

	items, total, err := s.announcements.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	for i := range items {
		items[i].DepartmentName = s.registry.Name(items[i].DepartmentKey)
	}
	if items == nil {
		items = []domain.Announcement{}
	}

	return &domain.AnnouncementPage{
		Data:       items,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

func parseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidQuery, field)
	}
	return &t, nil
}
