package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	"github.com/hexacorn/hexacorn-api/internal/service"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/response"
)

type logoStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// AdminHandler groups the admin-only endpoints: user oversight, the CR
// review workflow, system settings and exports.
type AdminHandler struct {
	users    *service.UserService
	settings *service.SettingsService
	exports  *service.ExportService
	logos    logoStore
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(users *service.UserService, settings *service.SettingsService, exports *service.ExportService, logos logoStore) *AdminHandler {
	return &AdminHandler{users: users, settings: settings, exports: exports, logos: logos}
}

// ListUsers godoc
// @Summary List users
// @Tags Admin
// @Produce json
// @Param role query string false "Role filter"
// @Param department_id query string false "Department filter"
// @Param division_id query string false "Division filter"
// @Param search query string false "Name or contact search"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{
		DepartmentID: c.Query("department_id"),
		DivisionID:   c.Query("division_id"),
		Search:       c.Query("search"),
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		parsed, err := strconv.ParseBool(active)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
			return
		}
		filter.Active = &parsed
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		filter.PageSize = size
	}

	users, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, nil)
}

// CreateCR godoc
// @Summary Create class representative
// @Description Provision a verified CR with a temporary password
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.CreateCRRequest true "CR payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/cr [post]
func (h *AdminHandler) CreateCR(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cr payload"))
		return
	}

	user, err := h.users.CreateCR(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// PendingApplications godoc
// @Summary List pending CR applications
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/cr-applications [get]
func (h *AdminHandler) PendingApplications(c *gin.Context) {
	apps, err := h.users.PendingApplications(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, apps, nil)
}

// ApproveApplication godoc
// @Summary Approve CR application
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/cr-applications/{id}/approve [post]
func (h *AdminHandler) ApproveApplication(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewCRRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	if err := h.users.ApproveApplication(c.Request.Context(), claims.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RejectApplication godoc
// @Summary Reject CR application
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Success 204 {object} response.Envelope
// @Router /admin/cr-applications/{id}/reject [post]
func (h *AdminHandler) RejectApplication(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewCRRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	if err := h.users.RejectApplication(c.Request.Context(), claims.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UpdateUserStatus godoc
// @Summary Activate or deactivate a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserStatusRequest true "Status payload"
// @Success 204 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/users/{id}/status [patch]
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	if err := h.users.SetActive(c.Request.Context(), claims.UserID, c.Param("id"), req.Active); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Stats godoc
// @Summary Platform stats
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.users.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// GetSettings godoc
// @Summary Get system settings
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update system settings
// @Description Partial update of the singleton settings row
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.UpdateSettingsRequest true "Settings patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings [patch]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}

// UploadLogo godoc
// @Summary Upload college logo
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param logo formData file true "Logo image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/settings/logo [post]
func (h *AdminHandler) UploadLogo(c *gin.Context) {
	header, err := c.FormFile("logo")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "logo file required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".svg", ".webp":
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidFileType, "logo must be an image"))
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read logo"))
		return
	}
	defer src.Close() //nolint:errcheck

	relPath, err := h.logos.SaveStream(filepath.Join("branding", "logo"+ext), src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store logo"))
		return
	}

	settings, err := h.settings.SetLogoPath(c.Request.Context(), relPath)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}

// Export godoc
// @Summary Export content inventory
// @Description Generate a CSV or PDF inventory and stream it back
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}

	result, err := h.exports.Generate(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
