package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"announcement_syncer/internal/config"
	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
	"announcement_syncer/internal/logging"
	"announcement_syncer/internal/service"
)

func TestSyncHandler_Sync_PartialResultOnTimeout(t *testing.T) {
	f := newFixture("u1")
	start, end := "2024-01-01", "2024-01-01"
	f.syncs.result = &domain.SyncResult{
		DepartmentKey:  "1421000",
		TotalSaved:     2,
		New:            2,
		ProcessedDates: []string{start},
		FailedDates:    []string{"2024-01-02"},
		DateRange:      domain.DateRange{Start: &start, End: &end},
	}
	f.syncs.err = context.DeadlineExceeded

	w := f.do(http.MethodPost, "/sync", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["totalSaved"])
	assert.Equal(t, []any{"2024-01-02"}, body["failedDates"])
	assert.Contains(t, body["message"], "stopped early")
}

func TestSyncHandler_Sync_CallerGoneWhileWaiting(t *testing.T) {
	f := newFixture("u1")
	f.syncs.err = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sync", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])
}

// dailySource returns one record per day and lets a test intervene on the
// nth fetch.
type dailySource struct {
	mu      sync.Mutex
	fetches int
	onFetch func(n int)
}

func (s *dailySource) ID() string   { return "daily" }
func (s *dailySource) Name() string { return "Daily" }

func (s *dailySource) Fetch(_ context.Context, date time.Time, _ department.Department) ([]domain.RawRecord, error) {
	s.mu.Lock()
	s.fetches++
	n := s.fetches
	s.mu.Unlock()

	if s.onFetch != nil {
		s.onFetch(n)
	}
	return []domain.RawRecord{{"itemId": date.Format("20060102"), "title": "notice"}}, nil
}

func (s *dailySource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

type countingStore struct {
	mu    sync.Mutex
	saved int
}

func (s *countingStore) Upsert(context.Context, *domain.Announcement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return true, nil
}

func (s *countingStore) LatestRegDate(context.Context, string) (*time.Time, error) {
	return nil, nil
}

func (s *countingStore) List(context.Context, domain.AnnouncementFilter) ([]domain.Announcement, int, error) {
	return nil, 0, nil
}

func (s *countingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

type recordingState struct {
	updated chan *domain.SyncState
}

func (s *recordingState) Get(_ context.Context, key string) (*domain.SyncState, error) {
	return &domain.SyncState{DepartmentKey: key}, nil
}

func (s *recordingState) Update(_ context.Context, state *domain.SyncState) error {
	s.updated <- state
	return nil
}

func TestSyncHandler_Sync_RunsToCompletionAfterClientLeaves(t *testing.T) {
	syncCfg := config.SyncConfig{Timezone: "Asia/Seoul", UpsertConcurrency: 2}
	today := time.Now().In(syncCfg.Location())
	startDate := today.AddDate(0, 0, -5).Format(domain.DateLayout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})

	source := &dailySource{onFetch: func(n int) {
		switch n {
		case 2:
			cancel()
		case 3:
			<-release
		}
	}}
	store := &countingStore{}
	state := &recordingState{updated: make(chan *domain.SyncState, 1)}

	registry := department.Default()
	syncs := service.NewSyncService(source, registry, store, state, nil, nil, logging.Discard(), syncCfg)
	h := New(registry, &fakeAnnouncementService{}, syncs, &fakePublisher{}, &fakeCredentials{}, nil)

	r := gin.New()
	r.POST("/sync", h.Sync.Sync)

	body := fmt.Sprintf(`{"departmentKey":"1421000","startDate":%q}`, startDate)
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	close(release)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var final *domain.SyncState
	select {
	case final = <-state.updated:
	case <-time.After(5 * time.Second):
		t.Fatal("sync stopped after the client left")
	}

	require.NotNil(t, final.LastProcessedDate)
	assert.Equal(t, today.Format(domain.DateLayout), final.LastProcessedDate.Format(domain.DateLayout))
	assert.GreaterOrEqual(t, source.count(), 6)
	assert.Equal(t, source.count(), store.count())
	assert.Equal(t, int64(store.count()), final.TotalSynced)
}
