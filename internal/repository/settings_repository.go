package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

const settingsColumns = `id, college_name, college_logo_path, academic_year, contact_email, college_address,
       global_announcement, global_announcement_tone, upload_max_size_mb, upload_allowed_mime_types,
       maintenance_mode, maintenance_message, updated_at`

// SettingsRepository persists the singleton system settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings row, creating it with defaults when absent.
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	const insert = `INSERT INTO system_settings (id, global_announcement_tone, upload_max_size_mb, upload_allowed_mime_types, maintenance_mode, updated_at)
	VALUES (1, 'info', 10,
	 'application/pdf,image/jpeg,image/png,image/gif,application/msword,application/vnd.openxmlformats-officedocument.wordprocessingml.document',
	 FALSE, $1)
	ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure system settings: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM system_settings WHERE id = 1`, settingsColumns)
	var settings models.SystemSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("load system settings: %w", err)
	}
	return &settings, nil
}

// Update persists the full settings row.
func (r *SettingsRepository) Update(ctx context.Context, settings *models.SystemSettings) error {
	settings.ID = 1
	settings.UpdatedAt = time.Now().UTC()
	const query = `UPDATE system_settings SET college_name = :college_name, college_logo_path = :college_logo_path,
	academic_year = :academic_year, contact_email = :contact_email, college_address = :college_address,
	global_announcement = :global_announcement, global_announcement_tone = :global_announcement_tone,
	upload_max_size_mb = :upload_max_size_mb, upload_allowed_mime_types = :upload_allowed_mime_types,
	maintenance_mode = :maintenance_mode, maintenance_message = :maintenance_message, updated_at = :updated_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, settings)
	if err != nil {
		return fmt.Errorf("update system settings: %w", err)
	}
	return requireRowsAffected(res, "update system settings")
}
