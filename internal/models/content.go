package models

import "time"

// ContentCategory enumerates the kinds of distributable content.
type ContentCategory string

const (
	CategoryNotice     ContentCategory = "notice"
	CategoryNote       ContentCategory = "note"
	CategoryAssignment ContentCategory = "assignment"
	CategorySyllabus   ContentCategory = "syllabus"
)

// Valid reports whether the category is one of the enumerated values.
func (c ContentCategory) Valid() bool {
	switch c {
	case CategoryNotice, CategoryNote, CategoryAssignment, CategorySyllabus:
		return true
	}
	return false
}

// ContentState is the computed lifecycle state derived from the expiry instant.
type ContentState string

const (
	ContentStateActive   ContentState = "active"
	ContentStateArchived ContentState = "archived"
)

// ScopeKey identifies the audience of a content item. A nil Semester means
// the item is visible to every semester within the division.
type ScopeKey struct {
	DepartmentID string  `json:"department_id"`
	DivisionID   string  `json:"division_id"`
	Semester     *string `json:"semester,omitempty"`
}

// Matches compares scope keys field by field; a nil semester matches only nil.
func (s ScopeKey) Matches(other ScopeKey) bool {
	if s.DepartmentID != other.DepartmentID || s.DivisionID != other.DivisionID {
		return false
	}
	if s.Semester == nil || other.Semester == nil {
		return s.Semester == nil && other.Semester == nil
	}
	return *s.Semester == *other.Semester
}

// ContentItem is the current head of a piece of distributed content.
type ContentItem struct {
	ID           string          `db:"id" json:"id"`
	Title        string          `db:"title" json:"title"`
	Description  *string         `db:"description" json:"description,omitempty"`
	Category     ContentCategory `db:"category" json:"category"`
	FilePath     *string         `db:"file_path" json:"file_path,omitempty"`
	DueDate      *time.Time      `db:"due_date" json:"due_date,omitempty"`
	ExpiresAt    *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	IsPinned     bool            `db:"is_pinned" json:"is_pinned"`
	PinnedAt     *time.Time      `db:"pinned_at" json:"pinned_at,omitempty"`
	DepartmentID string          `db:"department_id" json:"department_id"`
	DivisionID   string          `db:"division_id" json:"division_id"`
	Semester     *string         `db:"semester" json:"semester,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Scope returns the item's audience key.
func (c *ContentItem) Scope() ScopeKey {
	return ScopeKey{DepartmentID: c.DepartmentID, DivisionID: c.DivisionID, Semester: c.Semester}
}

// ActiveAt reports whether the item counts as active at the given instant.
// Archival is purely time driven: no expiry means the item never archives.
func (c *ContentItem) ActiveAt(now time.Time) bool {
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// StateAt returns the computed lifecycle state at the given instant.
func (c *ContentItem) StateAt(now time.Time) ContentState {
	if c.ActiveAt(now) {
		return ContentStateActive
	}
	return ContentStateArchived
}

// ContentVersion is an immutable snapshot of an item's metadata as it existed
// immediately before a file-replacing update.
type ContentVersion struct {
	ID            string          `db:"id" json:"id"`
	ContentID     string          `db:"content_id" json:"content_id"`
	VersionNumber int             `db:"version_number" json:"version_number"`
	Title         string          `db:"title" json:"title"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Category      ContentCategory `db:"category" json:"category"`
	FilePath      *string         `db:"file_path" json:"file_path,omitempty"`
	DueDate       *time.Time      `db:"due_date" json:"due_date,omitempty"`
	ExpiresAt     *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedBy     string          `db:"created_by" json:"created_by"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// ContentFilter is the read predicate computed by the visibility rules.
// Semester filters exactly; SemesterOrAll additionally admits items whose
// semester is null (the student rule). Only one of the two is set at a time.
type ContentFilter struct {
	DepartmentID  string
	DivisionID    string
	Semester      string
	SemesterOrAll string
	Category      ContentCategory
	State         ContentState
	Now           time.Time
	CreatedBy     string
	PinnedFirst   bool
	Limit         int
	Offset        int
}
