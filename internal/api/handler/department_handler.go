package handler

import (
	"github.com/gin-gonic/gin"

	"announcement_syncer/internal/api/response"
	"announcement_syncer/internal/department"
)

type DepartmentHandler struct {
	registry *department.Registry
}

func NewDepartmentHandler(registry *department.Registry) *DepartmentHandler {
	return &DepartmentHandler{registry: registry}
}

// List handles GET /api/v1/departments.
func (h *DepartmentHandler) List(c *gin.Context) {
	response.OK(c, h.registry.All())
}
