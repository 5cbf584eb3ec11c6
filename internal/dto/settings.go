package dto

// UpdateSettingsRequest is a partial update of the singleton settings row.
type UpdateSettingsRequest struct {
	CollegeName            *string `json:"college_name" validate:"omitempty,max=200"`
	AcademicYear           *string `json:"academic_year" validate:"omitempty,max=40"`
	ContactEmail           *string `json:"contact_email" validate:"omitempty,email"`
	CollegeAddress         *string `json:"college_address" validate:"omitempty,max=300"`
	GlobalAnnouncement     *string `json:"global_announcement" validate:"omitempty,max=400"`
	GlobalAnnouncementTone *string `json:"global_announcement_tone"`
	UploadMaxSizeMB        *int    `json:"upload_max_size_mb" validate:"omitempty,min=1,max=100"`
	UploadAllowedMimeTypes *string `json:"upload_allowed_mime_types" validate:"omitempty,max=600"`
	MaintenanceMode        *bool   `json:"maintenance_mode"`
	MaintenanceMessage     *string `json:"maintenance_message" validate:"omitempty,max=300"`
}

// PublicSystemResponse is the unauthenticated system snapshot served at /meta/system.
type PublicSystemResponse struct {
	MaintenanceMode        bool        `json:"maintenance_mode"`
	MaintenanceMessage     *string     `json:"maintenance_message,omitempty"`
	Branding               Branding    `json:"branding"`
	GlobalAnnouncement     *string     `json:"global_announcement,omitempty"`
	GlobalAnnouncementTone string      `json:"global_announcement_tone"`
	UploadRules            UploadRules `json:"upload_rules"`
}

// Branding groups institution display fields.
type Branding struct {
	CollegeName     *string `json:"college_name,omitempty"`
	CollegeLogoPath *string `json:"college_logo_path,omitempty"`
	AcademicYear    *string `json:"academic_year,omitempty"`
	ContactEmail    *string `json:"contact_email,omitempty"`
	CollegeAddress  *string `json:"college_address,omitempty"`
}

// UploadRules exposes the effective upload policy configuration.
type UploadRules struct {
	UploadMaxSizeMB        int    `json:"upload_max_size_mb"`
	UploadAllowedMimeTypes string `json:"upload_allowed_mime_types"`
}
