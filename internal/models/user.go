package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleCRPending UserRole = "cr_pending"
	RoleCR        UserRole = "cr"
	RoleAdmin     UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID                  string     `db:"id" json:"id"`
	FullName            string     `db:"full_name" json:"full_name"`
	ContactNumber       string     `db:"contact_number" json:"contact_number"`
	Email               *string    `db:"email" json:"email,omitempty"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Role                UserRole   `db:"role" json:"role"`
	IsVerifiedCR        bool       `db:"is_verified_cr" json:"is_verified_cr"`
	MustChangePassword  bool       `db:"must_change_password" json:"must_change_password"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockUntil           *time.Time `db:"lock_until" json:"-"`
	Active              bool       `db:"active" json:"active"`
	DepartmentID        *string    `db:"department_id" json:"department_id,omitempty"`
	DivisionID          *string    `db:"division_id" json:"division_id,omitempty"`
	Semester            *string    `db:"semester" json:"semester,omitempty"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role         *UserRole
	Active       *bool
	DepartmentID string
	DivisionID   string
	Search       string
	Page         int
	PageSize     int
}

// CRApplicationStatus tracks the review state of a CR application.
type CRApplicationStatus string

const (
	CRApplicationPending  CRApplicationStatus = "pending"
	CRApplicationApproved CRApplicationStatus = "approved"
	CRApplicationRejected CRApplicationStatus = "rejected"
)

// CRApplication represents a student's request to become a class representative.
type CRApplication struct {
	ID         string              `db:"id" json:"id"`
	UserID     string              `db:"user_id" json:"user_id"`
	Status     CRApplicationStatus `db:"status" json:"status"`
	Note       *string             `db:"note" json:"note,omitempty"`
	ReviewedBy *string             `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time          `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
