package dto

// CreateContentRequest contains metadata submitted alongside an optional file upload.
type CreateContentRequest struct {
	Title          string `form:"title" json:"title" validate:"required,max=200"`
	Description    string `form:"description" json:"description"`
	Category       string `form:"category" json:"category" validate:"required"`
	DueDate        string `form:"due_date" json:"due_date"`
	ExpiresAt      string `form:"expires_at" json:"expires_at"`
	Semester       string `form:"semester" json:"semester"`
	AllowDuplicate bool   `form:"allow_duplicate" json:"allow_duplicate"`

	// Admin uploads name their target scope explicitly; CR uploads ignore
	// these and use the uploader's own department and division.
	DepartmentID string `form:"department_id" json:"department_id"`
	DivisionID   string `form:"division_id" json:"division_id"`
}

// UpdateContentRequest is a partial update: nil fields are left untouched.
type UpdateContentRequest struct {
	Title       *string `form:"title" json:"title"`
	Description *string `form:"description" json:"description"`
	Category    *string `form:"category" json:"category"`
	DueDate     *string `form:"due_date" json:"due_date"`
	ExpiresAt   *string `form:"expires_at" json:"expires_at"`
	Semester    *string `form:"semester" json:"semester"`
}

// ContentListQuery captures query parameters for feed, archive and mine views.
// Department/division/semester overrides apply only to roles the visibility
// rules allow them for.
type ContentListQuery struct {
	Category     string
	DepartmentID string
	DivisionID   string
	Semester     string
	Limit        int
	Offset       int
}

// ContentDownloadResponse enriches metadata with a signed download URL.
type ContentDownloadResponse struct {
	ID          string `json:"id"`
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
}
