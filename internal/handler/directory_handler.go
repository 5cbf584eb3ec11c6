package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/service"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/response"
)

// DirectoryHandler manages the department and division directory.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler creates a new handler.
func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body dto.CreateDepartmentRequest true "Department"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/departments [post]
func (h *DirectoryHandler) CreateDepartment(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload"))
		return
	}

	department, err := h.service.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, department)
}

// RenameDepartment godoc
// @Summary Rename department
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Success 204 {object} response.Envelope
// @Router /admin/departments/{id} [patch]
func (h *DirectoryHandler) RenameDepartment(c *gin.Context) {
	var req dto.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload"))
		return
	}

	if err := h.service.RenameDepartment(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteDepartment godoc
// @Summary Delete department
// @Description Fails while the department still has content
// @Tags Directory
// @Produce json
// @Param id path string true "Department ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/departments/{id} [delete]
func (h *DirectoryHandler) DeleteDepartment(c *gin.Context) {
	if err := h.service.DeleteDepartment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// CreateDivision godoc
// @Summary Create division
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body dto.CreateDivisionRequest true "Division"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/divisions [post]
func (h *DirectoryHandler) CreateDivision(c *gin.Context) {
	var req dto.CreateDivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid division payload"))
		return
	}

	division, err := h.service.CreateDivision(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, division)
}

// RenameDivision godoc
// @Summary Rename division
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "Division ID"
// @Success 204 {object} response.Envelope
// @Router /admin/divisions/{id} [patch]
func (h *DirectoryHandler) RenameDivision(c *gin.Context) {
	var req dto.UpdateDivisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid division payload"))
		return
	}

	if err := h.service.RenameDivision(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteDivision godoc
// @Summary Delete division
// @Description Fails while the division still has content
// @Tags Directory
// @Produce json
// @Param id path string true "Division ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/divisions/{id} [delete]
func (h *DirectoryHandler) DeleteDivision(c *gin.Context) {
	if err := h.service.DeleteDivision(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
