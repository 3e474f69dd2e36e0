package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/cafe"
	"announcement_syncer/internal/domain"
)

type CredentialHandler struct {
	credentials CredentialSaver
}

func NewCredentialHandler(credentials CredentialSaver) *CredentialHandler {
	return &CredentialHandler{credentials: credentials}
}

type saveCredentialRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
	// ExpiresAt is epoch seconds; omit when unknown.
	ExpiresAt int64 `json:"expiresAt"`
}

// SaveNaver handles PUT /api/v1/credentials/naver, storing the caller's
// Naver OAuth access token for later publishing.
func (h *CredentialHandler) SaveNaver(c *gin.Context) {
	userID, ok := mustGetUserID(c)
	if !ok {
		return
	}

	var req saveCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.AccessToken) == "" {
		response.BadRequest(c, "accessToken is required")
		return
	}

	err := h.credentials.Save(c.Request.Context(), &domain.Credential{
		UserID:      userID,
		Provider:    cafe.Provider,
		AccessToken: req.AccessToken,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
