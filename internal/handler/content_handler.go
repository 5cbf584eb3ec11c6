package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/service"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/response"
)

// ContentHandler wires HTTP endpoints to the content service.
type ContentHandler struct {
	service *service.ContentService
}

// NewContentHandler creates a new handler.
func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// Upload godoc
// @Summary Upload content
// @Description Create a content item with an optional file attachment
// @Tags Content
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param category formData string true "Category"
// @Param file formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /contents [post]
func (h *ContentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateContentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid content payload"))
		return
	}

	file, closeFile, err := fileFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if closeFile != nil {
		defer closeFile()
	}

	item, err := h.service.Upload(c.Request.Context(), service.ViewerFromClaims(claims), req, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, item)
}

// Update godoc
// @Summary Update content
// @Description Partially update a content item; replacing the file archives the previous version
// @Tags Content
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Content ID"
// @Param file formData file false "Replacement attachment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id} [patch]
func (h *ContentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateContentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid content payload"))
		return
	}

	file, closeFile, err := fileFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if closeFile != nil {
		defer closeFile()
	}

	item, err := h.service.Update(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id"), req, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete content
// @Description Remove a content item along with its archived versions and files
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Get godoc
// @Summary Get content
// @Description Fetch a single content item the viewer is allowed to see
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Get(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Feed godoc
// @Summary Content feed
// @Description Active content in the viewer's scope, pinned notices first
// @Tags Content
// @Produce json
// @Param category query string false "Category filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /contents [get]
func (h *ContentHandler) Feed(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.Feed(c.Request.Context(), service.ViewerFromClaims(claims), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Archive godoc
// @Summary Content archive
// @Description Expired content in the viewer's scope, most recently expired first
// @Tags Content
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {object} response.Envelope
// @Router /contents/archive [get]
func (h *ContentHandler) Archive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.Archive(c.Request.Context(), service.ViewerFromClaims(claims), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Mine godoc
// @Summary My uploads
// @Description Content created by the current user, newest first
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /contents/mine [get]
func (h *ContentHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.service.Mine(c.Request.Context(), service.ViewerFromClaims(claims), listQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Pin godoc
// @Summary Pin a notice
// @Description Pin a notice in its department+division; any previously pinned notice is demoted
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /contents/{id}/pin [post]
func (h *ContentHandler) Pin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Pin(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Unpin godoc
// @Summary Unpin a notice
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/pin [delete]
func (h *ContentHandler) Unpin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	item, err := h.service.Unpin(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, item, nil)
}

// Versions godoc
// @Summary List content versions
// @Description Archived versions of a content item, newest first
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/versions [get]
func (h *ContentHandler) Versions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	versions, err := h.service.Versions(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, versions, nil)
}

// DownloadURL godoc
// @Summary Issue download URL
// @Description Returns a short-lived signed URL for the content's file
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/{id}/download [get]
func (h *ContentHandler) DownloadURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.DownloadURL(c.Request.Context(), service.ViewerFromClaims(claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download by token
// @Description Streams the file referenced by a signed download token
// @Tags Content
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contents/download/{token} [get]
func (h *ContentHandler) Download(c *gin.Context) {
	_, file, err := h.service.OpenByToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(info.Name())+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// fileFromForm extracts the optional multipart attachment. The returned
// closer is nil when no file was sent.
func fileFromForm(c *gin.Context) (*service.FileUpload, func(), error) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file upload")
	}

	src, err := header.Open()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}

	upload := &service.FileUpload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      src,
	}
	return upload, func() { _ = src.Close() }, nil
}

func listQuery(c *gin.Context) dto.ContentListQuery {
	q := dto.ContentListQuery{
		Category:     c.Query("category"),
		DepartmentID: c.Query("department_id"),
		DivisionID:   c.Query("division_id"),
		Semester:     c.Query("semester"),
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		q.Offset = offset
	}
	return q
}
