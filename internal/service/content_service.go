package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"github.com/hexacorn/hexacorn-api/pkg/storage"
)

// maxTitleLength mirrors the create-path validation tag so partial updates
// honor the same bound.
const maxTitleLength = 200

type contentRepository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	GetByID(ctx context.Context, id string) (*models.ContentItem, error)
	FindDuplicate(ctx context.Context, title string, category models.ContentCategory, scope models.ScopeKey) (*models.ContentItem, error)
	List(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error)
	Update(ctx context.Context, item *models.ContentItem) error
	UpdateWithVersion(ctx context.Context, item *models.ContentItem, snapshot *models.ContentVersion) error
	Pin(ctx context.Context, id, departmentID, divisionID string, pinnedAt time.Time) error
	Unpin(ctx context.Context, id string, at time.Time) error
	ListVersions(ctx context.Context, contentID string) ([]models.ContentVersion, error)
	DeleteWithVersions(ctx context.Context, id string) error
}

type contentBlobStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Move(filename, newFilename string) (string, error)
	Delete(filename string) error
}

type uploadPolicySource interface {
	Policy(ctx context.Context) (UploadPolicy, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FileUpload carries an incoming multipart file through the service layer.
type FileUpload struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// ContentConfig tunes content handling.
type ContentConfig struct {
	APIPrefix   string
	VersionsDir string
}

// ContentService implements the content lifecycle: upload with duplicate
// detection, partial edits with version archiving, pinning, visibility-scoped
// reads and signed downloads.
type ContentService struct {
	repo      contentRepository
	blobs     contentBlobStorage
	settings  uploadPolicySource
	directory directoryChecker
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ContentConfig
}

// NewContentService constructs a ContentService.
func NewContentService(repo contentRepository, blobs contentBlobStorage, settings uploadPolicySource, directory directoryChecker, signer *storage.SignedURLSigner, metrics *MetricsService, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg ContentConfig) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.VersionsDir == "" {
		cfg.VersionsDir = "versions"
	}
	return &ContentService{
		repo:      repo,
		blobs:     blobs,
		settings:  settings,
		directory: directory,
		signer:    signer,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Upload creates a content item inside the uploader's scope. The duplicate
// pre-check runs before any blob is written; a rejected upload therefore
// leaves no file and no row. The check is advisory only so that retrying
// with allow_duplicate lets both items coexist.
func (s *ContentService) Upload(ctx context.Context, viewer Viewer, req dto.CreateContentRequest, file *FileUpload) (*models.ContentItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid content payload")
	}
	category := models.ContentCategory(req.Category)
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown content category")
	}

	scope, err := s.uploadScope(ctx, viewer, req)
	if err != nil {
		return nil, err
	}

	dueDate, err := parseOptionalTime(req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid due_date")
	}
	expiresAt, err := parseOptionalTime(req.ExpiresAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid expires_at")
	}

	if file != nil {
		policy, err := s.settings.Policy(ctx)
		if err != nil {
			return nil, err
		}
		if err := policy.Check(file.Size, file.ContentType); err != nil {
			s.metrics.RecordUpload("rejected")
			return nil, err
		}
	}

	if !req.AllowDuplicate {
		existing, err := s.repo.FindDuplicate(ctx, req.Title, category, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicates")
		}
		if existing != nil {
			s.metrics.RecordUpload("duplicate")
			return nil, duplicateError(existing.ID)
		}
	}

	item := &models.ContentItem{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Category:     category,
		DueDate:      dueDate,
		ExpiresAt:    expiresAt,
		DepartmentID: scope.DepartmentID,
		DivisionID:   scope.DivisionID,
		Semester:     scope.Semester,
		CreatedBy:    viewer.UserID,
	}
	if req.Description != "" {
		item.Description = &req.Description
	}

	if file != nil {
		relPath := s.blobPath(item.ID, category, file.Name)
		if _, err := s.blobs.SaveStream(relPath, file.Reader); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
		}
		item.FilePath = &relPath
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if item.FilePath != nil {
			if cleanupErr := s.blobs.Delete(*item.FilePath); cleanupErr != nil {
				s.logger.Warn("failed to remove orphaned upload", zap.String("path", *item.FilePath), zap.Error(cleanupErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create content")
	}

	s.metrics.RecordUpload("created")
	s.recordAudit(ctx, viewer, models.AuditActionContentCreate, item.ID, fmt.Sprintf(`{"title":%q}`, item.Title))
	return item, nil
}

// Update applies a partial metadata edit and, when a replacement file is
// supplied, archives the pre-edit state as a new version. The old file is
// relocated into the versions area first; if that relocation fails the
// metadata update still proceeds but no version row is recorded, since a
// version without its file would not be restorable.
func (s *ContentService) Update(ctx context.Context, viewer Viewer, id string, req dto.UpdateContentRequest, file *FileUpload) (*models.ContentItem, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(viewer, item) {
		return nil, appErrors.ErrForbidden
	}

	snapshot := &models.ContentVersion{
		ContentID:   item.ID,
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		FilePath:    item.FilePath,
		DueDate:     item.DueDate,
		ExpiresAt:   item.ExpiresAt,
		CreatedBy:   viewer.UserID,
	}

	if err := applyContentPatch(item, req); err != nil {
		return nil, err
	}

	recordVersion := false
	if file != nil {
		policy, err := s.settings.Policy(ctx)
		if err != nil {
			return nil, err
		}
		if err := policy.Check(file.Size, file.ContentType); err != nil {
			return nil, err
		}

		if item.FilePath != nil {
			archived := path.Join(s.cfg.VersionsDir, item.ID, path.Base(*item.FilePath))
			if moved, err := s.blobs.Move(*item.FilePath, archived); err != nil {
				s.logger.Warn("failed to relocate replaced file, skipping version snapshot",
					zap.String("content_id", item.ID), zap.Error(err))
			} else {
				snapshot.FilePath = &moved
				recordVersion = true
			}
		}

		relPath := s.blobPath(item.ID, item.Category, file.Name)
		if _, err := s.blobs.SaveStream(relPath, file.Reader); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store replacement upload")
		}
		item.FilePath = &relPath
	}

	if recordVersion {
		if err := s.repo.UpdateWithVersion(ctx, item, snapshot); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
		}
	} else {
		if err := s.repo.Update(ctx, item); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update content")
		}
	}

	s.recordAudit(ctx, viewer, models.AuditActionContentUpdate, item.ID, fmt.Sprintf(`{"versioned":%t}`, recordVersion))
	return item, nil
}

// Delete removes an item, its version history and every associated blob.
func (s *ContentService) Delete(ctx context.Context, viewer Viewer, id string) error {
	item, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(viewer, item) {
		return appErrors.ErrForbidden
	}

	versions, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}

	if err := s.repo.DeleteWithVersions(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete content")
	}

	if item.FilePath != nil {
		if err := s.blobs.Delete(*item.FilePath); err != nil {
			s.logger.Warn("failed to delete content file", zap.String("path", *item.FilePath), zap.Error(err))
		}
	}
	for _, version := range versions {
		if version.FilePath == nil {
			continue
		}
		if err := s.blobs.Delete(*version.FilePath); err != nil {
			s.logger.Warn("failed to delete version file", zap.String("path", *version.FilePath), zap.Error(err))
		}
	}

	s.recordAudit(ctx, viewer, models.AuditActionContentDelete, id, fmt.Sprintf(`{"versions":%d}`, len(versions)))
	return nil
}

// Get returns a single item subject to the viewer's visibility.
func (s *ContentService) Get(ctx context.Context, viewer Viewer, id string) (*models.ContentItem, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, item, time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	return item, nil
}

// Feed lists active content for the viewer.
func (s *ContentService) Feed(ctx context.Context, viewer Viewer, q dto.ContentListQuery) ([]models.ContentItem, error) {
	filter, err := FeedFilter(viewer, q, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// Archive lists expired content for the viewer.
func (s *ContentService) Archive(ctx context.Context, viewer Viewer, q dto.ContentListQuery) ([]models.ContentItem, error) {
	filter, err := ArchiveFilter(viewer, q, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// Mine lists the viewer's own uploads regardless of state.
func (s *ContentService) Mine(ctx context.Context, viewer Viewer, q dto.ContentListQuery) ([]models.ContentItem, error) {
	filter, err := MineFilter(viewer, q)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// Pin marks a notice as the single pinned item of its department+division.
// Any previously pinned notice in that scope is demoted in the same
// transaction.
func (s *ContentService) Pin(ctx context.Context, viewer Viewer, id string) (*models.ContentItem, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanManage(viewer, item) {
		return nil, appErrors.ErrForbidden
	}
	if item.Category != models.CategoryNotice {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "only notices can be pinned")
	}

	now := time.Now().UTC()
	if err := s.repo.Pin(ctx, item.ID, item.DepartmentID, item.DivisionID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pin notice")
	}
	item.IsPinned = true
	item.PinnedAt = &now
	item.UpdatedAt = now

	s.recordAudit(ctx, viewer, models.AuditActionContentPin, item.ID, `{"pinned":true}`)
	return item, nil
}

// Unpin clears the pin on the target only.
func (s *ContentService) Unpin(ctx context.Context, viewer Viewer, id string) (*models.ContentItem, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanManage(viewer, item) {
		return nil, appErrors.ErrForbidden
	}
	if item.Category != models.CategoryNotice {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "only notices can be unpinned")
	}

	now := time.Now().UTC()
	if err := s.repo.Unpin(ctx, item.ID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpin notice")
	}
	item.IsPinned = false
	item.PinnedAt = nil
	item.UpdatedAt = now

	s.recordAudit(ctx, viewer, models.AuditActionContentUnpin, item.ID, `{"pinned":false}`)
	return item, nil
}

// Versions lists an item's archived snapshots, newest first.
func (s *ContentService) Versions(ctx context.Context, viewer Viewer, id string) ([]models.ContentVersion, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, item, time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	versions, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return versions, nil
}

// DownloadURL issues a signed, time-limited link for an item's file.
func (s *ContentService) DownloadURL(ctx context.Context, viewer Viewer, id string) (*dto.ContentDownloadResponse, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, item, time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	if item.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content has no file attached")
	}

	token, expiresAt, err := s.signer.Generate(item.ID, *item.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &dto.ContentDownloadResponse{
		ID:          item.ID,
		DownloadURL: fmt.Sprintf("%s/contents/download/%s", prefix, token),
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// OpenByToken validates a signed token and opens the referenced file.
func (s *ContentService) OpenByToken(token string) (string, *os.File, error) {
	contentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	file, err := s.blobs.Open(relPath)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "file no longer available")
	}
	return contentID, file, nil
}

func (s *ContentService) list(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list content")
	}
	return items, nil
}

func (s *ContentService) load(ctx context.Context, id string) (*models.ContentItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	return item, nil
}

func (s *ContentService) uploadScope(ctx context.Context, viewer Viewer, req dto.CreateContentRequest) (models.ScopeKey, error) {
	scope := models.ScopeKey{DepartmentID: viewer.DepartmentID, DivisionID: viewer.DivisionID}
	if viewer.Role == models.RoleAdmin {
		scope.DepartmentID = req.DepartmentID
		scope.DivisionID = req.DivisionID
	}
	if scope.DepartmentID == "" || scope.DivisionID == "" {
		return models.ScopeKey{}, appErrors.Clone(appErrors.ErrValidation, "department and division are required")
	}
	if req.Semester != "" {
		semester := req.Semester
		scope.Semester = &semester
	}

	exists, err := s.directory.DepartmentExists(ctx, scope.DepartmentID)
	if err != nil {
		return models.ScopeKey{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
	}
	if !exists {
		return models.ScopeKey{}, appErrors.Clone(appErrors.ErrValidation, "unknown department")
	}
	exists, err = s.directory.DivisionExists(ctx, scope.DivisionID)
	if err != nil {
		return models.ScopeKey{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check division")
	}
	if !exists {
		return models.ScopeKey{}, appErrors.Clone(appErrors.ErrValidation, "unknown division")
	}
	return scope, nil
}

func (s *ContentService) blobPath(contentID string, category models.ContentCategory, originalName string) string {
	ext := path.Ext(originalName)
	return path.Join(string(category), contentID+ext)
}

func (s *ContentService) recordAudit(ctx context.Context, viewer Viewer, action, resourceID, payload string) {
	if s.audit == nil {
		return
	}
	userID := viewer.UserID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "content",
		ResourceID: &resourceID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func duplicateError(existingID string) error {
	return appErrors.WithDetails(appErrors.ErrDuplicateContent, map[string]interface{}{
		"existing_id": existingID,
	})
}

func applyContentPatch(item *models.ContentItem, req dto.UpdateContentRequest) error {
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
		}
		if utf8.RuneCountInString(*req.Title) > maxTitleLength {
			return appErrors.Clone(appErrors.ErrValidation, "title exceeds 200 characters")
		}
		item.Title = *req.Title
	}
	if req.Description != nil {
		if *req.Description == "" {
			item.Description = nil
		} else {
			item.Description = req.Description
		}
	}
	if req.Category != nil {
		category := models.ContentCategory(*req.Category)
		if !category.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "unknown content category")
		}
		item.Category = category
	}
	if req.DueDate != nil {
		due, err := parseOptionalTime(*req.DueDate)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "invalid due_date")
		}
		item.DueDate = due
	}
	if req.ExpiresAt != nil {
		expires, err := parseOptionalTime(*req.ExpiresAt)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "invalid expires_at")
		}
		item.ExpiresAt = expires
	}
	if req.Semester != nil {
		if *req.Semester == "" {
			item.Semester = nil
		} else {
			item.Semester = req.Semester
		}
	}
	return nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	utc := t.UTC()
	return &utc, nil
}
