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

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

type stubAdminRepo struct {
	users        map[string]*models.User
	applications map[string]*models.CRApplication
	verifiedCRs  map[string]int // "dept/div" -> count
	auditLogs    []*models.AuditLog
	nextID       int
}

func newStubAdminRepo() *stubAdminRepo {
	return &stubAdminRepo{
		users:        make(map[string]*models.User),
		applications: make(map[string]*models.CRApplication),
		verifiedCRs:  make(map[string]int),
	}
}

func scopeKey(dept, div string) string { return dept + "/" + div }

func (s *stubAdminRepo) Create(ctx context.Context, user *models.User) error {
	s.nextID++
	user.ID = "user-" + user.ContactNumber
	copied := *user
	s.users[user.ID] = &copied
	if user.IsVerifiedCR && user.DepartmentID != nil && user.DivisionID != nil {
		s.verifiedCRs[scopeKey(*user.DepartmentID, *user.DivisionID)]++
	}
	return nil
}

func (s *stubAdminRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *stubAdminRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubAdminRepo) UpdateActive(ctx context.Context, id string, active bool) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Active = active
	return nil
}

func (s *stubAdminRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.PasswordHash = passwordHash
	return nil
}

func (s *stubAdminRepo) PromoteToCR(ctx context.Context, id string) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Role = models.RoleCR
	user.IsVerifiedCR = true
	if user.DepartmentID != nil && user.DivisionID != nil {
		s.verifiedCRs[scopeKey(*user.DepartmentID, *user.DivisionID)]++
	}
	return nil
}

func (s *stubAdminRepo) DemoteToStudent(ctx context.Context, id string) error {
	user, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.Role = models.RoleStudent
	user.IsVerifiedCR = false
	return nil
}

func (s *stubAdminRepo) CountVerifiedCRs(ctx context.Context, departmentID, divisionID string) (int, error) {
	return s.verifiedCRs[scopeKey(departmentID, divisionID)], nil
}

func (s *stubAdminRepo) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	count := 0
	for _, u := range s.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (s *stubAdminRepo) GetCRApplication(ctx context.Context, id string) (*models.CRApplication, error) {
	app, ok := s.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *app
	return &copied, nil
}

func (s *stubAdminRepo) ListCRApplications(ctx context.Context, status models.CRApplicationStatus) ([]models.CRApplication, error) {
	out := make([]models.CRApplication, 0, len(s.applications))
	for _, app := range s.applications {
		if app.Status == status {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *stubAdminRepo) ReviewCRApplication(ctx context.Context, id string, status models.CRApplicationStatus, reviewedBy string, note *string, reviewedAt time.Time) error {
	app, ok := s.applications[id]
	if !ok || app.Status != models.CRApplicationPending {
		return sql.ErrNoRows
	}
	app.Status = status
	app.ReviewedBy = &reviewedBy
	app.Note = note
	app.ReviewedAt = &reviewedAt
	return nil
}

func (s *stubAdminRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

type stubContentCounter struct {
	total, active, pinned int
}

func (s *stubContentCounter) CountsByState(ctx context.Context, now time.Time) (int, int, int, error) {
	return s.total, s.active, s.pinned, nil
}

type stubDirectoryCounter struct {
	departments, divisions int
}

func (s *stubDirectoryCounter) CountDirectory(ctx context.Context) (int, int, error) {
	return s.departments, s.divisions, nil
}

func newTestUserService(repo *stubAdminRepo) *UserService {
	return NewUserService(repo, &stubContentCounter{total: 12, active: 9, pinned: 2},
		&stubDirectoryCounter{departments: 3, divisions: 7}, validator.New(), zap.NewNop())
}

func seedApplicant(repo *stubAdminRepo, id, dept, div string) *models.CRApplication {
	deptCopy, divCopy := dept, div
	repo.users[id] = &models.User{
		ID:           id,
		FullName:     "Applicant",
		Role:         models.RoleCRPending,
		Active:       true,
		DepartmentID: &deptCopy,
		DivisionID:   &divCopy,
	}
	app := &models.CRApplication{ID: "app-" + id, UserID: id, Status: models.CRApplicationPending}
	repo.applications[app.ID] = app
	return app
}

func crRequest(contact string) dto.CreateCRRequest {
	return dto.CreateCRRequest{
		FullName:      "New CR",
		ContactNumber: contact,
		TempPassword:  "temp-pass",
		DepartmentID:  "dept-1",
		DivisionID:    "div-2",
	}
}

func TestUserCreateCR(t *testing.T) {
	repo := newStubAdminRepo()
	svc := newTestUserService(repo)

	user, err := svc.CreateCR(context.Background(), "admin-1", crRequest("0111111111"))
	require.NoError(t, err)
	assert.Equal(t, models.RoleCR, user.Role)
	assert.True(t, user.IsVerifiedCR)
	assert.True(t, user.MustChangePassword)
	assert.NotEqual(t, "temp-pass", user.PasswordHash)
}

func TestUserCreateCREnforcesScopeCap(t *testing.T) {
	repo := newStubAdminRepo()
	repo.verifiedCRs[scopeKey("dept-1", "div-2")] = 2
	svc := newTestUserService(repo)

	_, err := svc.CreateCR(context.Background(), "admin-1", crRequest("0122222222"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// A different division in the same department is unaffected.
	req := crRequest("0133333333")
	req.DivisionID = "div-3"
	_, err = svc.CreateCR(context.Background(), "admin-1", req)
	require.NoError(t, err)
}

func TestUserApproveApplication(t *testing.T) {
	repo := newStubAdminRepo()
	app := seedApplicant(repo, "stud-1", "dept-1", "div-2")
	svc := newTestUserService(repo)

	err := svc.ApproveApplication(context.Background(), "admin-1", app.ID, dto.ReviewCRRequest{Note: "looks good"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCR, repo.users["stud-1"].Role)
	assert.True(t, repo.users["stud-1"].IsVerifiedCR)
	assert.Equal(t, models.CRApplicationApproved, repo.applications[app.ID].Status)

	// Re-reviewing a decided application is rejected.
	err = svc.ApproveApplication(context.Background(), "admin-1", app.ID, dto.ReviewCRRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)
}

func TestUserApproveApplicationBlockedByCap(t *testing.T) {
	repo := newStubAdminRepo()
	app := seedApplicant(repo, "stud-1", "dept-1", "div-2")
	repo.verifiedCRs[scopeKey("dept-1", "div-2")] = 2
	svc := newTestUserService(repo)

	err := svc.ApproveApplication(context.Background(), "admin-1", app.ID, dto.ReviewCRRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.RoleCRPending, repo.users["stud-1"].Role)
	assert.Equal(t, models.CRApplicationPending, repo.applications[app.ID].Status)
}

func TestUserRejectApplicationRevertsRole(t *testing.T) {
	repo := newStubAdminRepo()
	app := seedApplicant(repo, "stud-1", "dept-1", "div-2")
	svc := newTestUserService(repo)

	err := svc.RejectApplication(context.Background(), "admin-1", app.ID, dto.ReviewCRRequest{Note: "incomplete"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, repo.users["stud-1"].Role)
	assert.Equal(t, models.CRApplicationRejected, repo.applications[app.ID].Status)
	require.NotNil(t, repo.applications[app.ID].Note)
	assert.Equal(t, "incomplete", *repo.applications[app.ID].Note)
}

func TestUserSetActiveBlocksSelf(t *testing.T) {
	repo := newStubAdminRepo()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin, Active: true}
	svc := newTestUserService(repo)

	err := svc.SetActive(context.Background(), "admin-1", "admin-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidOperation.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.users["admin-1"].Active)
}

func TestUserSetActive(t *testing.T) {
	repo := newStubAdminRepo()
	repo.users["stud-1"] = &models.User{ID: "stud-1", Role: models.RoleStudent, Active: true}
	svc := newTestUserService(repo)

	require.NoError(t, svc.SetActive(context.Background(), "admin-1", "stud-1", false))
	assert.False(t, repo.users["stud-1"].Active)

	err := svc.SetActive(context.Background(), "admin-1", "missing", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserStats(t *testing.T) {
	repo := newStubAdminRepo()
	repo.users["s1"] = &models.User{ID: "s1", Role: models.RoleStudent}
	repo.users["s2"] = &models.User{ID: "s2", Role: models.RoleStudent}
	repo.users["c1"] = &models.User{ID: "c1", Role: models.RoleCR}
	repo.users["p1"] = &models.User{ID: "p1", Role: models.RoleCRPending}
	svc := newTestUserService(repo)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Students)
	assert.Equal(t, 1, stats.VerifiedCRs)
	assert.Equal(t, 1, stats.PendingCRs)
	assert.Equal(t, 12, stats.ContentItems)
	assert.Equal(t, 9, stats.ActiveContent)
	assert.Equal(t, 2, stats.PinnedNotices)
	assert.Equal(t, 3, stats.Departments)
	assert.Equal(t, 7, stats.Divisions)
}
