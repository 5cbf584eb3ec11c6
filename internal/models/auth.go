package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	ContactNumber string `json:"contact_number" validate:"required"`
	Password      string `json:"password" validate:"required"`
	IP            string `json:"-"`
	UserAgent     string `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken        string    `json:"access_token"`
	ExpiresIn          int64     `json:"expires_in"`
	User               UserInfo  `json:"user"`
	MustChangePassword bool      `json:"must_change_password"`
	IssuedAt           time.Time `json:"issued_at"`
}

// RegisterRequest captures a self-service signup.
type RegisterRequest struct {
	FullName      string `json:"full_name" validate:"required,max=150"`
	ContactNumber string `json:"contact_number" validate:"required,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"required,min=6"`
	DepartmentID  string `json:"department_id" validate:"required"`
	DivisionID    string `json:"division_id" validate:"required"`
	Semester      string `json:"semester" validate:"required,max=20"`
	ApplyAsCR     bool   `json:"apply_as_cr"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID            string   `json:"id"`
	FullName      string   `json:"full_name"`
	ContactNumber string   `json:"contact_number"`
	Role          UserRole `json:"role"`
	DepartmentID  string   `json:"department_id,omitempty"`
	DivisionID    string   `json:"division_id,omitempty"`
	Semester      string   `json:"semester,omitempty"`
	IsVerifiedCR  bool     `json:"is_verified_cr"`
}

// JWTClaims represents the JWT payload for access tokens. Department, division
// and semester travel with the token so scoped reads need no extra lookup.
type JWTClaims struct {
	UserID             string   `json:"user_id"`
	Role               UserRole `json:"role"`
	FullName           string   `json:"full_name"`
	DepartmentID       string   `json:"department_id,omitempty"`
	DivisionID         string   `json:"division_id,omitempty"`
	Semester           string   `json:"semester,omitempty"`
	MustChangePassword bool     `json:"must_change_password"`
	jwt.RegisteredClaims
}
