package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

type stubSettingsRepo struct {
	settings *models.SystemSettings
	getCalls int
}

func (s *stubSettingsRepo) Get(ctx context.Context) (*models.SystemSettings, error) {
	s.getCalls++
	copied := *s.settings
	return &copied, nil
}

func (s *stubSettingsRepo) Update(ctx context.Context, settings *models.SystemSettings) error {
	copied := *settings
	s.settings = &copied
	return nil
}

func defaultSettings() *models.SystemSettings {
	name := "Hexacorn College"
	return &models.SystemSettings{
		ID:                     1,
		CollegeName:            &name,
		GlobalAnnouncementTone: models.ToneInfo,
		UploadMaxSizeMB:        10,
		UploadAllowedMimeTypes: "application/pdf,image/png",
	}
}

// Cache is disabled in these tests; the read-through path is covered by the
// cache service's own tests.
func newTestSettingsService(repo *stubSettingsRepo) *SettingsService {
	cache := NewCacheService(nil, NewMetricsService(), 0, zap.NewNop(), false)
	return NewSettingsService(repo, cache, validator.New(), zap.NewNop(), 0)
}

func TestSettingsUpdatePartialPatch(t *testing.T) {
	repo := &stubSettingsRepo{settings: defaultSettings()}
	svc := newTestSettingsService(repo)

	announcement := "Exam week starts Monday"
	tone := string(models.ToneWarning)
	maintenance := true

	updated, err := svc.Update(context.Background(), dto.UpdateSettingsRequest{
		GlobalAnnouncement:     &announcement,
		GlobalAnnouncementTone: &tone,
		MaintenanceMode:        &maintenance,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.GlobalAnnouncement)
	assert.Equal(t, announcement, *updated.GlobalAnnouncement)
	assert.Equal(t, models.ToneWarning, updated.GlobalAnnouncementTone)
	assert.True(t, updated.MaintenanceMode)

	// Untouched fields keep their values.
	require.NotNil(t, updated.CollegeName)
	assert.Equal(t, "Hexacorn College", *updated.CollegeName)
	assert.Equal(t, 10, updated.UploadMaxSizeMB)
}

func TestSettingsUpdateRejectsUnknownTone(t *testing.T) {
	repo := &stubSettingsRepo{settings: defaultSettings()}
	svc := newTestSettingsService(repo)

	tone := "shouting"
	_, err := svc.Update(context.Background(), dto.UpdateSettingsRequest{GlobalAnnouncementTone: &tone})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.ToneInfo, repo.settings.GlobalAnnouncementTone)
}

func TestSettingsMaintenance(t *testing.T) {
	repo := &stubSettingsRepo{settings: defaultSettings()}
	svc := newTestSettingsService(repo)

	enabled, message, err := svc.Maintenance(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Empty(t, message)

	msg := "back at noon"
	on := true
	_, err = svc.Update(context.Background(), dto.UpdateSettingsRequest{MaintenanceMode: &on, MaintenanceMessage: &msg})
	require.NoError(t, err)

	enabled, message, err = svc.Maintenance(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, "back at noon", message)
}

func TestSettingsPolicy(t *testing.T) {
	repo := &stubSettingsRepo{settings: defaultSettings()}
	svc := newTestSettingsService(repo)

	policy, err := svc.Policy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10)<<20, policy.MaxBytes)
	require.NoError(t, policy.Check(1024, "application/pdf"))
	require.Error(t, policy.Check(1024, "video/mp4"))
}

func TestSettingsPublicView(t *testing.T) {
	repo := &stubSettingsRepo{settings: defaultSettings()}
	svc := newTestSettingsService(repo)

	view, err := svc.PublicView(context.Background())
	require.NoError(t, err)
	require.NotNil(t, view.Branding.CollegeName)
	assert.Equal(t, "Hexacorn College", *view.Branding.CollegeName)
	assert.Equal(t, string(models.ToneInfo), view.GlobalAnnouncementTone)
	assert.Equal(t, 10, view.UploadRules.UploadMaxSizeMB)
	assert.False(t, view.MaintenanceMode)
}

func TestSettingsSetLogoPath(t *testing.T) {
	repo := &stubSettingsRepo{settings: defaultSettings()}
	svc := newTestSettingsService(repo)

	updated, err := svc.SetLogoPath(context.Background(), "branding/logo.png")
	require.NoError(t, err)
	require.NotNil(t, updated.CollegeLogoPath)
	assert.Equal(t, "branding/logo.png", *updated.CollegeLogoPath)
}
