package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/middleware"
	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/domain"
)

type PostHandler struct {
	publisher PostPublisher
}

func NewPostHandler(publisher PostPublisher) *PostHandler {
	return &PostHandler{publisher: publisher}
}

type createPostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
	ViewURL string `json:"viewUrl"`
}

// Create handles POST /api/v1/posts and relays the platform's response.
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := mustGetUserID(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		response.BadRequest(c, "title is required")
		return
	}

	body, err := h.publisher.Publish(c.Request.Context(), userID, domain.Post{
		Title:   req.Title,
		Content: req.Content,
		ViewURL: req.ViewURL,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Raw(c, body)
}

func mustGetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	if id == "" {
		response.Unauthorized(c, "not authenticated")
		return "", false
	}
	return id, true
}
