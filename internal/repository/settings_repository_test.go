package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

func newSettingsRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func settingsRows(s *models.SystemSettings) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "college_name", "college_logo_path", "academic_year",
		"contact_email", "college_address", "global_announcement", "global_announcement_tone",
		"upload_max_size_mb", "upload_allowed_mime_types", "maintenance_mode", "maintenance_message",
		"updated_at"}).
		AddRow(s.ID, s.CollegeName, s.CollegeLogoPath, s.AcademicYear, s.ContactEmail, s.CollegeAddress,
			s.GlobalAnnouncement, s.GlobalAnnouncementTone, s.UploadMaxSizeMB, s.UploadAllowedMimeTypes,
			s.MaintenanceMode, s.MaintenanceMessage, s.UpdatedAt)
}

func TestSettingsRepositoryGetSeedsSingleton(t *testing.T) {
	db, mock, cleanup := newSettingsRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO system_settings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM system_settings WHERE id = 1")).
		WillReturnRows(settingsRows(&models.SystemSettings{
			ID:                     1,
			GlobalAnnouncementTone: models.ToneInfo,
			UploadMaxSizeMB:        10,
			UploadAllowedMimeTypes: "application/pdf",
			UpdatedAt:              time.Now().UTC(),
		}))

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, settings.ID)
	require.Equal(t, models.ToneInfo, settings.GlobalAnnouncementTone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newSettingsRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE system_settings SET college_name")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	name := "Hexacorn College"
	settings := &models.SystemSettings{
		CollegeName:            &name,
		GlobalAnnouncementTone: models.ToneWarning,
		UploadMaxSizeMB:        25,
		UploadAllowedMimeTypes: "application/pdf",
		MaintenanceMode:        true,
	}
	require.NoError(t, repo.Update(context.Background(), settings))
	// Update always targets the singleton row.
	require.Equal(t, 1, settings.ID)
	require.False(t, settings.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
