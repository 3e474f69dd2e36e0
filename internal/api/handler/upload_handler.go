package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
)

type UploadHandler struct {
	uploader Uploader
}

func NewUploadHandler(uploader Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// Upload handles POST /api/v1/upload with a multipart "file" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(c, err)
			return
		}
		response.BadRequest(c, "no file uploaded")
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileURL, err := h.uploader.Upload(c.Request.Context(), header.Filename, contentType, header.Size, file)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fileUrl": fileURL})
}
