package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

const settingsCacheKey = "settings:snapshot"

type settingsRepository interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Update(ctx context.Context, settings *models.SystemSettings) error
}

// SettingsService serves the singleton system settings row through a cached
// snapshot. The maintenance gate and the upload policy both read through it,
// so a stale snapshot is bounded by the cache TTL.
type SettingsService struct {
	repo      settingsRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &SettingsService{repo: repo, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Get returns the settings snapshot, reading through the cache.
func (s *SettingsService) Get(ctx context.Context) (*models.SystemSettings, error) {
	if s.cache.Enabled() {
		var cached models.SystemSettings
		if hit, err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system settings")
	}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, settingsCacheKey, settings, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache system settings", zap.Error(err))
		}
	}
	return settings, nil
}

// Update applies a partial settings patch and invalidates the cache.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest) (*models.SystemSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system settings")
	}

	if req.CollegeName != nil {
		settings.CollegeName = req.CollegeName
	}
	if req.AcademicYear != nil {
		settings.AcademicYear = req.AcademicYear
	}
	if req.ContactEmail != nil {
		settings.ContactEmail = req.ContactEmail
	}
	if req.CollegeAddress != nil {
		settings.CollegeAddress = req.CollegeAddress
	}
	if req.GlobalAnnouncement != nil {
		settings.GlobalAnnouncement = req.GlobalAnnouncement
	}
	if req.GlobalAnnouncementTone != nil {
		tone := models.AnnouncementTone(*req.GlobalAnnouncementTone)
		if !tone.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown announcement tone")
		}
		settings.GlobalAnnouncementTone = tone
	}
	if req.UploadMaxSizeMB != nil {
		settings.UploadMaxSizeMB = *req.UploadMaxSizeMB
	}
	if req.UploadAllowedMimeTypes != nil {
		settings.UploadAllowedMimeTypes = *req.UploadAllowedMimeTypes
	}
	if req.MaintenanceMode != nil {
		settings.MaintenanceMode = *req.MaintenanceMode
	}
	if req.MaintenanceMessage != nil {
		settings.MaintenanceMessage = req.MaintenanceMessage
	}

	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update system settings")
	}
	s.invalidate(ctx)
	return settings, nil
}

// SetLogoPath records the relative path of an uploaded logo.
func (s *SettingsService) SetLogoPath(ctx context.Context, relPath string) (*models.SystemSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load system settings")
	}
	settings.CollegeLogoPath = &relPath
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store logo path")
	}
	s.invalidate(ctx)
	return settings, nil
}

// Maintenance reports the maintenance gate state and its public message.
func (s *SettingsService) Maintenance(ctx context.Context) (bool, string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, "", err
	}
	message := ""
	if settings.MaintenanceMessage != nil {
		message = *settings.MaintenanceMessage
	}
	return settings.MaintenanceMode, message, nil
}

// Policy returns the effective upload policy.
func (s *SettingsService) Policy(ctx context.Context) (UploadPolicy, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return UploadPolicy{}, err
	}
	return PolicyFromSettings(settings), nil
}

// PublicView shapes the settings for the unauthenticated system endpoint.
func (s *SettingsService) PublicView(ctx context.Context) (*dto.PublicSystemResponse, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.PublicSystemResponse{
		MaintenanceMode:    settings.MaintenanceMode,
		MaintenanceMessage: settings.MaintenanceMessage,
		Branding: dto.Branding{
			CollegeName:     settings.CollegeName,
			CollegeLogoPath: settings.CollegeLogoPath,
			AcademicYear:    settings.AcademicYear,
			ContactEmail:    settings.ContactEmail,
			CollegeAddress:  settings.CollegeAddress,
		},
		GlobalAnnouncement:     settings.GlobalAnnouncement,
		GlobalAnnouncementTone: string(settings.GlobalAnnouncementTone),
		UploadRules: dto.UploadRules{
			UploadMaxSizeMB:        settings.UploadMaxSizeMB,
			UploadAllowedMimeTypes: settings.UploadAllowedMimeTypes,
		},
	}, nil
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, settingsCacheKey); err != nil {
		s.logger.Warn(fmt.Sprintf("failed to invalidate %s", settingsCacheKey), zap.Error(err))
	}
}
