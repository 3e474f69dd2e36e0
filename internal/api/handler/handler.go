// Package handler implements the HTTP endpoints over the sync, query,
// publish and upload services.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
	"announcement_syncer/internal/service"
)

type SyncService interface {
	Sync(ctx context.Context, departmentKey string, startDate *time.Time) (*domain.SyncResult, error)
	SyncAll(ctx context.Context) (*domain.SweepResult, error)
	State(ctx context.Context, departmentKey string) (*domain.SyncState, error)
}

type AnnouncementService interface {
	List(ctx context.Context, q service.ListQuery) (*domain.AnnouncementPage, error)
}

type PostPublisher interface {
	Publish(ctx context.Context, userID string, post domain.Post) (json.RawMessage, error)
}

type CredentialSaver interface {
	Save(ctx context.Context, credential *domain.Credential) error
}

type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (string, error)
}

// Handler groups every endpoint handler. Upload is nil when object storage
// is not configured.
type Handler struct {
	Announcement *AnnouncementHandler
	Department   *DepartmentHandler
	Sync         *SyncHandler
	Post         *PostHandler
	Credential   *CredentialHandler
	Upload       *UploadHandler
}

func New(
	registry *department.Registry,
	announcements AnnouncementService,
	syncs SyncService,
	publisher PostPublisher,
	credentials CredentialSaver,
	uploader Uploader,
) *Handler {
	h := &Handler{
		Announcement: NewAnnouncementHandler(announcements),
		Department:   NewDepartmentHandler(registry),
		Sync:         NewSyncHandler(syncs, registry),
		Post:         NewPostHandler(publisher),
		Credential:   NewCredentialHandler(credentials),
	}
	if uploader != nil {
		h.Upload = NewUploadHandler(uploader)
	}
	return h
}
