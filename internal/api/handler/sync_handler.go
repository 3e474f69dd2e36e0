package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
)

type SyncHandler struct {
	syncs    SyncService
	registry *department.Registry
}

func NewSyncHandler(syncs SyncService, registry *department.Registry) *SyncHandler {
	return &SyncHandler{syncs: syncs, registry: registry}
}

type syncRequest struct {
	DepartmentKey string `json:"departmentKey"`
	StartDate     string `json:"startDate"`
}

// Sync handles POST /api/v1/sync. An empty body syncs the default
// department from its watermark.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	key := req.DepartmentKey
	if key == "" {
		key = h.registry.DefaultKey()
	}

	var startDate *time.Time
	if req.StartDate != "" {
		t, err := time.Parse(domain.DateLayout, req.StartDate)
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("startDate must be %s", domain.DateLayout))
			return
		}
		startDate = &t
	}

	result, err := h.syncs.Sync(c.Request.Context(), key, startDate)
	if result == nil {
		if reqErr := c.Request.Context().Err(); reqErr != nil && errors.Is(err, reqErr) {
			_ = c.Error(err)
			c.JSON(http.StatusAccepted, gin.H{
				"success":       true,
				"message":       "sync continues in the background",
				"departmentKey": key,
			})
			return
		}
		writeError(c, err)
		return
	}

	// A run cut short by sync.timeout still reports what it saved.
	message := fmt.Sprintf("%d announcements synced", result.TotalSaved)
	if err != nil {
		_ = c.Error(err)
		message += ", stopped early: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        message,
		"departmentKey":  result.DepartmentKey,
		"totalSaved":     result.TotalSaved,
		"new":            result.New,
		"updated":        result.Updated,
		"processedDates": result.ProcessedDates,
		"failedDates":    result.FailedDates,
		"dateRange":      result.DateRange,
	})
}

// SyncAll handles POST /api/v1/sync/all.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	sweep, err := h.syncs.SyncAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, sweep)
}

// State handles GET /api/v1/sync/state/:departmentKey.
func (h *SyncHandler) State(c *gin.Context) {
	state, err := h.syncs.State(c.Request.Context(), c.Param("departmentKey"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, state)
}
