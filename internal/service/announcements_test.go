package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
	"announcement_syncer/internal/service/mocks"
)

type AnnouncementServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	store   *mocks.MockAnnouncementStore
	service *AnnouncementService
}

func (s *AnnouncementServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockAnnouncementStore(s.ctrl)
	s.service = NewAnnouncementService(s.store, department.Default())
}

func (s *AnnouncementServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAnnouncementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AnnouncementServiceTestSuite))
}

func (s *AnnouncementServiceTestSuite) TestList_Defaults() {
	ctx := context.Background()

	s.store.EXPECT().List(ctx, domain.AnnouncementFilter{Limit: 30, Offset: 0}).
		Return([]domain.Announcement{{ItemID: "1421000_1", DepartmentKey: "1421000"}}, 31, nil)

	page, err := s.service.List(ctx, ListQuery{})

	s.Require().NoError(err)
	s.Require().Len(page.Data, 1)
	s.Equal("중기부", page.Data[0].DepartmentName)
	s.Equal(domain.Pagination{Page: 1, Limit: 30, Total: 31, TotalPages: 2, HasNextPage: true}, page.Pagination)
}

func (s *AnnouncementServiceTestSuite) TestList_Filters() {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	s.store.EXPECT().List(ctx, domain.AnnouncementFilter{
		Search:        "지원",
		StartDate:     &start,
		EndDate:       &end,
		DepartmentKey: "1421000",
		Limit:         10,
		Offset:        20,
	}).Return(nil, 0, nil)

	page, err := s.service.List(ctx, ListQuery{
		Page:          3,
		Limit:         10,
		Search:        "  지원 ",
		StartDate:     "2024-01-01",
		EndDate:       "2024-01-31",
		DepartmentKey: "1421000",
	})

	s.Require().NoError(err)
	s.NotNil(page.Data)
	s.Empty(page.Data)
	s.Equal(0, page.Pagination.TotalPages)
	s.False(page.Pagination.HasNextPage)
}

func (s *AnnouncementServiceTestSuite) TestList_ClampsLimit() {
	ctx := context.Background()

	s.store.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, f domain.AnnouncementFilter) ([]domain.Announcement, int, error) {
			s.Equal(MaxPageSize, f.Limit)
			return nil, 0, nil
		},
	)

	_, err := s.service.List(ctx, ListQuery{Limit: 1000})
	s.NoError(err)
}

func (s *AnnouncementServiceTestSuite) TestList_PageOutOfRange() {
	ctx := context.Background()

	for _, q := range []ListQuery{
		{Page: math.MaxInt},
		{Page: math.MaxInt / MaxPageSize * 2, Limit: MaxPageSize},
		{Page: math.MaxInt/DefaultPageSize + 1},
	} {
		_, err := s.service.List(ctx, q)
		s.ErrorIs(err, ErrInvalidQuery, "page %d limit %d", q.Page, q.Limit)
	}

	largest := math.MaxInt / DefaultPageSize
	s.store.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, f domain.AnnouncementFilter) ([]domain.Announcement, int, error) {
			s.Positive(f.Offset)
			return nil, 0, nil
		},
	)
	_, err := s.service.List(ctx, ListQuery{Page: largest})
	s.NoError(err)
}

func (s *AnnouncementServiceTestSuite) TestList_InvalidDate() {
	_, err := s.service.List(context.Background(), ListQuery{StartDate: "01/02/2024"})

	s.ErrorIs(err, ErrInvalidQuery)
	s.ErrorContains(err, "startDate")
}

func (s *AnnouncementServiceTestSuite) TestList_InvalidDepartment() {
	_, err := s.service.List(context.Background(), ListQuery{DepartmentKey: "0"})

	var invalid *domain.InvalidDepartmentError
	s.ErrorAs(err, &invalid)
}

func (s *AnnouncementServiceTestSuite) TestList_StoreError() {
	ctx := context.Background()
	s.store.EXPECT().List(ctx, gomock.Any()).Return(nil, 0, errors.New("db down"))

	_, err := s.service.List(ctx, ListQuery{})
	s.ErrorContains(err, "list announcements")
}
