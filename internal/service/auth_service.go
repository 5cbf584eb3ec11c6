package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hexacorn/hexacorn-api/internal/models"
	"github.com/hexacorn/hexacorn-api/internal/repository"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

const (
	maxFailedLogins = 5
	loginLockWindow = 15 * time.Minute
)

type authUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByContactNumber(ctx context.Context, contactNumber string) (*models.User, error)
	UpdateLoginState(ctx context.Context, id string, failedAttempts int, lockUntil, lastLoginAt *time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	CreateCRApplication(ctx context.Context, app *models.CRApplication) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type directoryChecker interface {
	DepartmentExists(ctx context.Context, id string) (bool, error)
	DivisionExists(ctx context.Context, id string) (bool, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

// AuthService provides registration, login and token validation.
type AuthService struct {
	repo      authUserRepository
	directory directoryChecker
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, directory directoryChecker, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, directory: directory, validator: validate, logger: logger, config: config}
}

// Register creates a student account, optionally opening a CR application.
// Applicants start in the cr_pending role until an admin reviews them.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if err := s.checkScope(ctx, req.DepartmentID, req.DivisionID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	role := models.RoleStudent
	if req.ApplyAsCR {
		role = models.RoleCRPending
	}

	user := &models.User{
		FullName:      req.FullName,
		ContactNumber: req.ContactNumber,
		PasswordHash:  string(hash),
		Role:          role,
		Active:        true,
		DepartmentID:  &req.DepartmentID,
		DivisionID:    &req.DivisionID,
		Semester:      &req.Semester,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "contact number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if req.ApplyAsCR {
		if err := s.repo.CreateCRApplication(ctx, &models.CRApplication{UserID: user.ID}); err != nil {
			s.logger.Error("failed to open cr application", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	info := userInfo(user)
	return &info, nil
}

// Login authenticates by contact number. Five consecutive failures lock the
// account for fifteen minutes; the lock clears itself after the window.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByContactNumber(ctx, req.ContactNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	now := time.Now().UTC()
	if user.LockUntil != nil && user.LockUntil.After(now) {
		return nil, appErrors.WithDetails(appErrors.ErrAccountLocked, map[string]interface{}{
			"lock_until": user.LockUntil.Format(time.RFC3339),
		})
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		failed := user.FailedLoginAttempts + 1
		var lockUntil *time.Time
		if failed >= maxFailedLogins {
			until := now.Add(loginLockWindow)
			lockUntil = &until
			failed = 0
		}
		if err := s.repo.UpdateLoginState(ctx, user.ID, failed, lockUntil, nil); err != nil {
			s.logger.Warn("failed to record failed login", zap.Error(err))
		}
		if lockUntil != nil {
			return nil, appErrors.WithDetails(appErrors.ErrAccountLocked, map[string]interface{}{
				"lock_until": lockUntil.Format(time.RFC3339),
			})
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if err := s.repo.UpdateLoginState(ctx, user.ID, 0, nil, &now); err != nil {
		s.logger.Warn("failed to reset login state", zap.Error(err))
	}

	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken:        token,
		ExpiresIn:          int64(time.Until(expiresAt).Seconds()),
		User:               userInfo(user),
		MustChangePassword: user.MustChangePassword,
		IssuedAt:           now,
	}, nil
}

// ChangePassword verifies the old password, stores the new hash and clears
// the forced-change flag.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(newHash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionPasswordChange,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(`{"status":"changed"}`),
	}); err != nil {
		s.logger.Warn("failed to record password change audit log", zap.Error(err))
	}

	return nil
}

// Me returns the current profile from the database, not the token, so role
// changes take effect without re-login.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	info := userInfo(user)
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) checkScope(ctx context.Context, departmentID, divisionID string) error {
	exists, err := s.directory.DepartmentExists(ctx, departmentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrValidation, "unknown department")
	}
	exists, err = s.directory.DivisionExists(ctx, divisionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check division")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrValidation, "unknown division")
	}
	return nil
}

func (s *AuthService) generateToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		UserID:             user.ID,
		Role:               user.Role,
		FullName:           user.FullName,
		DepartmentID:       deref(user.DepartmentID),
		DivisionID:         deref(user.DivisionID),
		Semester:           deref(user.Semester),
		MustChangePassword: user.MustChangePassword,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func userInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:            user.ID,
		FullName:      user.FullName,
		ContactNumber: user.ContactNumber,
		Role:          user.Role,
		DepartmentID:  deref(user.DepartmentID),
		DivisionID:    deref(user.DivisionID),
		Semester:      deref(user.Semester),
		IsVerifiedCR:  user.IsVerifiedCR,
	}
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
