package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

type stubAuthRepo struct {
	users        map[string]*models.User
	byContact    map[string]string
	applications []*models.CRApplication
	auditLogs    []*models.AuditLog
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*models.User), byContact: make(map[string]string)}
}

func (s *stubAuthRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.ContactNumber
	}
	copied := *user
	s.users[user.ID] = &copied
	s.byContact[user.ContactNumber] = user.ID
	return nil
}

func (s *stubAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *stubAuthRepo) FindByContactNumber(ctx context.Context, contactNumber string) (*models.User, error) {
	id, ok := s.byContact[contactNumber]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s.FindByID(ctx, id)
}

func (s *stubAuthRepo) UpdateLoginState(ctx context.Context, id string, failedAttempts int, lockUntil, lastLoginAt *time.Time) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.FailedLoginAttempts = failedAttempts
	user.LockUntil = lockUntil
	if lastLoginAt != nil {
		user.LastLoginAt = lastLoginAt
	}
	return nil
}

func (s *stubAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.MustChangePassword = false
	return nil
}

func (s *stubAuthRepo) CreateCRApplication(ctx context.Context, app *models.CRApplication) error {
	s.applications = append(s.applications, app)
	return nil
}

func (s *stubAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func newTestAuthService(repo *stubAuthRepo) *AuthService {
	return NewAuthService(repo, &stubDirectory{}, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "test",
	})
}

func seedUser(t *testing.T, repo *stubAuthRepo, contact, password string, mutate func(*models.User)) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	dept, div, sem := "dept-1", "div-2", "SEM3"
	user := &models.User{
		FullName:      "Test User",
		ContactNumber: contact,
		PasswordHash:  string(hash),
		Role:          models.RoleStudent,
		Active:        true,
		DepartmentID:  &dept,
		DivisionID:    &div,
		Semester:      &sem,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestAuthLoginSuccess(t *testing.T) {
	repo := newStubAuthRepo()
	seedUser(t, repo, "0123456789", "secret1", nil)
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{ContactNumber: "0123456789", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "dept-1", res.User.DepartmentID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "div-2", claims.DivisionID)
	assert.Equal(t, "SEM3", claims.Semester)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := newStubAuthRepo()
	user := seedUser(t, repo, "0123456789", "secret1", nil)
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{ContactNumber: "0123456789", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, repo.users[user.ID].FailedLoginAttempts)
}

func TestAuthLoginLockoutAfterFiveFailures(t *testing.T) {
	repo := newStubAuthRepo()
	user := seedUser(t, repo, "0123456789", "secret1", nil)
	svc := newTestAuthService(repo)

	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = svc.Login(context.Background(), models.LoginRequest{ContactNumber: "0123456789", Password: "wrong"})
	}
	require.Error(t, lastErr)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(lastErr).Code)
	require.NotNil(t, repo.users[user.ID].LockUntil)

	// Even the right password is refused while the lock holds.
	_, err := svc.Login(context.Background(), models.LoginRequest{ContactNumber: "0123456789", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountLocked.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginExpiredLockClears(t *testing.T) {
	repo := newStubAuthRepo()
	past := time.Now().UTC().Add(-time.Minute)
	seedUser(t, repo, "0123456789", "secret1", func(u *models.User) {
		u.LockUntil = &past
	})
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{ContactNumber: "0123456789", Password: "secret1"})
	require.NoError(t, err)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	repo := newStubAuthRepo()
	seedUser(t, repo, "0123456789", "secret1", func(u *models.User) {
		u.Active = false
	})
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{ContactNumber: "0123456789", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRegisterStudent(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:      "New Student",
		ContactNumber: "0199999999",
		Password:      "secret1",
		DepartmentID:  "dept-1",
		DivisionID:    "div-2",
		Semester:      "SEM1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.Empty(t, repo.applications)
}

func TestAuthRegisterCRApplicant(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newTestAuthService(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:      "Aspiring CR",
		ContactNumber: "0188888888",
		Password:      "secret1",
		DepartmentID:  "dept-1",
		DivisionID:    "div-2",
		Semester:      "SEM1",
		ApplyAsCR:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCRPending, info.Role)
	require.Len(t, repo.applications, 1)
	assert.Equal(t, info.ID, repo.applications[0].UserID)
}

func TestAuthRegisterUnknownDepartment(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, &stubDirectory{missingDepartments: map[string]bool{"dept-x": true}},
		validator.New(), zap.NewNop(), AuthConfig{TokenSecret: "s", TokenExpiry: time.Hour})

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:      "Lost Student",
		ContactNumber: "0177777777",
		Password:      "secret1",
		DepartmentID:  "dept-x",
		DivisionID:    "div-2",
		Semester:      "SEM1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthChangePasswordClearsForcedFlag(t *testing.T) {
	repo := newStubAuthRepo()
	user := seedUser(t, repo, "0123456789", "temp-pass", func(u *models.User) {
		u.MustChangePassword = true
	})
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "temp-pass",
		NewPassword: "better-pass",
	})
	require.NoError(t, err)
	assert.False(t, repo.users[user.ID].MustChangePassword)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "temp-pass",
		NewPassword: "another",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
