package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/service"
)

type AnnouncementHandler struct {
	announcements AnnouncementService
}

func NewAnnouncementHandler(announcements AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

type listAnnouncementsRequest struct {
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
	Search        string `form:"search"`
	StartDate     string `form:"startDate"`
	EndDate       string `form:"endDate"`
	DepartmentKey string `form:"departmentKey"`
}

// List handles GET /api/v1/announcements.
func (h *AnnouncementHandler) List(c *gin.Context) {
	var req listAnnouncementsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	page, err := h.announcements.List(c.Request.Context(), service.ListQuery{
		Page:          req.Page,
		Limit:         req.Limit,
		Search:        req.Search,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		DepartmentKey: req.DepartmentKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       page.Data,
		"pagination": page.Pagination,
	})
}
