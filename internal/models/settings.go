package models

import "time"

// AnnouncementTone enumerates display tones for the global announcement banner.
type AnnouncementTone string

const (
	ToneInfo    AnnouncementTone = "info"
	ToneSuccess AnnouncementTone = "success"
	ToneWarning AnnouncementTone = "warning"
	ToneDanger  AnnouncementTone = "danger"
)

// Valid reports whether the tone is one of the enumerated values.
func (t AnnouncementTone) Valid() bool {
	switch t {
	case ToneInfo, ToneSuccess, ToneWarning, ToneDanger:
		return true
	}
	return false
}

// SystemSettings is the singleton settings row: branding, the global
// announcement, upload rules and the maintenance gate.
type SystemSettings struct {
	ID                     int              `db:"id" json:"id"`
	CollegeName            *string          `db:"college_name" json:"college_name,omitempty"`
	CollegeLogoPath        *string          `db:"college_logo_path" json:"college_logo_path,omitempty"`
	AcademicYear           *string          `db:"academic_year" json:"academic_year,omitempty"`
	ContactEmail           *string          `db:"contact_email" json:"contact_email,omitempty"`
	CollegeAddress         *string          `db:"college_address" json:"college_address,omitempty"`
	GlobalAnnouncement     *string          `db:"global_announcement" json:"global_announcement,omitempty"`
	GlobalAnnouncementTone AnnouncementTone `db:"global_announcement_tone" json:"global_announcement_tone"`
	UploadMaxSizeMB        int              `db:"upload_max_size_mb" json:"upload_max_size_mb"`
	UploadAllowedMimeTypes string           `db:"upload_allowed_mime_types" json:"upload_allowed_mime_types"`
	MaintenanceMode        bool             `db:"maintenance_mode" json:"maintenance_mode"`
	MaintenanceMessage     *string          `db:"maintenance_message" json:"maintenance_message,omitempty"`
	UpdatedAt              time.Time        `db:"updated_at" json:"updated_at"`
}
