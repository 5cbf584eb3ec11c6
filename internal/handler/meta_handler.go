package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hexacorn/hexacorn-api/internal/middleware"
	"github.com/hexacorn/hexacorn-api/internal/service"
	"github.com/hexacorn/hexacorn-api/pkg/response"
)

// MetaHandler serves the public, unauthenticated metadata endpoints used by
// clients before login: branding, maintenance state and the scope directory.
type MetaHandler struct {
	settings  *service.SettingsService
	directory *service.DirectoryService
}

// NewMetaHandler creates a new handler.
func NewMetaHandler(settings *service.SettingsService, directory *service.DirectoryService) *MetaHandler {
	return &MetaHandler{settings: settings, directory: directory}
}

// System godoc
// @Summary Public system snapshot
// @Description Branding, announcement, maintenance state and upload rules
// @Tags Meta
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /meta/system [get]
func (h *MetaHandler) System(c *gin.Context) {
	view, err := h.settings.PublicView(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// Departments godoc
// @Summary List departments
// @Tags Meta
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /meta/departments [get]
func (h *MetaHandler) Departments(c *gin.Context) {
	departments, err := h.directory.Departments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, departments, nil)
}

// Divisions godoc
// @Summary List divisions
// @Tags Meta
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /meta/divisions [get]
func (h *MetaHandler) Divisions(c *gin.Context) {
	divisions, err := h.directory.Divisions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, divisions, nil)
}
