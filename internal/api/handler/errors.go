package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/cafe"
	"announcement_syncer/internal/domain"
	"announcement_syncer/internal/service"
)

// writeError maps err onto a status code and records it for the access log.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		invalidDept *domain.InvalidDepartmentError
		credErr     *cafe.AuthCredentialError
		maxBytes    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &invalidDept), errors.Is(err, service.ErrInvalidQuery):
		response.BadRequest(c, err.Error())
	case errors.As(err, &maxBytes):
		response.Error(c, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.As(err, &credErr), errors.Is(err, cafe.ErrUnauthorized):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, cafe.ErrForbidden):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, cafe.ErrNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, cafe.ErrPlatform), errors.Is(err, cafe.ErrPublishFailed):
		response.Error(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrSyncInProgress):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, "request timed out")
	default:
		response.InternalError(c)
	}
}
