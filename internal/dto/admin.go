package dto

// CreateCRRequest lets an admin provision a class representative directly.
// The account starts with a temporary password and a forced password change.
type CreateCRRequest struct {
	FullName      string `json:"full_name" validate:"required,max=150"`
	ContactNumber string `json:"contact_number" validate:"required,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	TempPassword  string `json:"temp_password" validate:"required,min=6"`
	DepartmentID  string `json:"department_id" validate:"required"`
	DivisionID    string `json:"division_id" validate:"required"`
	Semester      string `json:"semester" validate:"omitempty,max=20"`
}

// ReviewCRRequest carries an optional note for approve/reject decisions.
type ReviewCRRequest struct {
	Note string `json:"note" validate:"omitempty,max=300"`
}

// UpdateUserStatusRequest toggles account activation.
type UpdateUserStatusRequest struct {
	Active bool `json:"active"`
}

// AdminStats summarises platform usage for the admin dashboard.
type AdminStats struct {
	Students      int `json:"students"`
	VerifiedCRs   int `json:"verified_crs"`
	PendingCRs    int `json:"pending_crs"`
	ContentItems  int `json:"content_items"`
	ActiveContent int `json:"active_content"`
	PinnedNotices int `json:"pinned_notices"`
	Departments   int `json:"departments"`
	Divisions     int `json:"divisions"`
}

// ExportQuery selects the format for the content inventory export.
type ExportQuery struct {
	Format       string `form:"format"`
	DepartmentID string `form:"department_id"`
	DivisionID   string `form:"division_id"`
	Category     string `form:"category"`
}
