package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	"github.com/hexacorn/hexacorn-api/internal/repository"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// maxVerifiedCRsPerScope caps verified class representatives per
// department+division.
const maxVerifiedCRsPerScope = 2

type adminUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	UpdateActive(ctx context.Context, id string, active bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	PromoteToCR(ctx context.Context, id string) error
	DemoteToStudent(ctx context.Context, id string) error
	CountVerifiedCRs(ctx context.Context, departmentID, divisionID string) (int, error)
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	GetCRApplication(ctx context.Context, id string) (*models.CRApplication, error)
	ListCRApplications(ctx context.Context, status models.CRApplicationStatus) ([]models.CRApplication, error)
	ReviewCRApplication(ctx context.Context, id string, status models.CRApplicationStatus, reviewedBy string, note *string, reviewedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type contentCounter interface {
	CountsByState(ctx context.Context, now time.Time) (total, active, pinned int, err error)
}

type directoryCounter interface {
	CountDirectory(ctx context.Context) (departments, divisions int, err error)
}

// UserService covers admin oversight: the CR workflow, account status and
// platform stats.
type UserService struct {
	repo      adminUserRepository
	contents  contentCounter
	directory directoryCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo adminUserRepository, contents contentCounter, directory directoryCounter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, contents: contents, directory: directory, validator: validate, logger: logger}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// CreateCR provisions a verified class representative directly. The account
// carries a temporary password and must change it before any write.
func (s *UserService) CreateCR(ctx context.Context, actorID string, req dto.CreateCRRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cr payload")
	}

	count, err := s.repo.CountVerifiedCRs(ctx, req.DepartmentID, req.DivisionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class representatives")
	}
	if count >= maxVerifiedCRsPerScope {
		return nil, appErrors.Clone(appErrors.ErrConflict, "division already has the maximum number of class representatives")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.TempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		FullName:           req.FullName,
		ContactNumber:      req.ContactNumber,
		PasswordHash:       string(hash),
		Role:               models.RoleCR,
		IsVerifiedCR:       true,
		MustChangePassword: true,
		Active:             true,
		DepartmentID:       &req.DepartmentID,
		DivisionID:         &req.DivisionID,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.Semester != "" {
		user.Semester = &req.Semester
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "contact number already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class representative")
	}

	s.audit(ctx, actorID, models.AuditActionCRApprove, user.ID, `{"created":"direct"}`)
	return user, nil
}

// PendingApplications lists CR applications awaiting review, oldest first.
func (s *UserService) PendingApplications(ctx context.Context) ([]models.CRApplication, error) {
	apps, err := s.repo.ListCRApplications(ctx, models.CRApplicationPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return apps, nil
}

// ApproveApplication promotes the applicant to verified CR, subject to the
// per-scope cap.
func (s *UserService) ApproveApplication(ctx context.Context, actorID, applicationID string, req dto.ReviewCRRequest) error {
	app, applicant, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return err
	}

	if applicant.DepartmentID == nil || applicant.DivisionID == nil {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "applicant has no department or division")
	}
	count, err := s.repo.CountVerifiedCRs(ctx, *applicant.DepartmentID, *applicant.DivisionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class representatives")
	}
	if count >= maxVerifiedCRsPerScope {
		return appErrors.Clone(appErrors.ErrConflict, "division already has the maximum number of class representatives")
	}

	if err := s.review(ctx, app.ID, models.CRApplicationApproved, actorID, req.Note); err != nil {
		return err
	}
	if err := s.repo.PromoteToCR(ctx, applicant.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote applicant")
	}

	s.audit(ctx, actorID, models.AuditActionCRApprove, applicant.ID, fmt.Sprintf(`{"application_id":%q}`, app.ID))
	return nil
}

// RejectApplication declines the application and reverts the applicant to the
// student role.
func (s *UserService) RejectApplication(ctx context.Context, actorID, applicationID string, req dto.ReviewCRRequest) error {
	app, applicant, err := s.loadApplication(ctx, applicationID)
	if err != nil {
		return err
	}

	if err := s.review(ctx, app.ID, models.CRApplicationRejected, actorID, req.Note); err != nil {
		return err
	}
	if applicant.Role == models.RoleCRPending {
		if err := s.repo.DemoteToStudent(ctx, applicant.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert applicant role")
		}
	}

	s.audit(ctx, actorID, models.AuditActionCRReject, applicant.ID, fmt.Sprintf(`{"application_id":%q}`, app.ID))
	return nil
}

// SetActive toggles a user's account activation.
func (s *UserService) SetActive(ctx context.Context, actorID, userID string, active bool) error {
	if userID == actorID {
		return appErrors.Clone(appErrors.ErrInvalidOperation, "cannot change own account status")
	}
	if err := s.repo.UpdateActive(ctx, userID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account status")
	}
	s.audit(ctx, actorID, models.AuditActionUserStatus, userID, fmt.Sprintf(`{"active":%t}`, active))
	return nil
}

// Stats aggregates platform counts for the admin dashboard.
func (s *UserService) Stats(ctx context.Context) (*dto.AdminStats, error) {
	stats := &dto.AdminStats{}

	var err error
	if stats.Students, err = s.repo.CountByRole(ctx, models.RoleStudent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if stats.VerifiedCRs, err = s.repo.CountByRole(ctx, models.RoleCR); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class representatives")
	}
	if stats.PendingCRs, err = s.repo.CountByRole(ctx, models.RoleCRPending); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending applicants")
	}

	total, active, pinned, err := s.contents.CountsByState(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count content")
	}
	stats.ContentItems = total
	stats.ActiveContent = active
	stats.PinnedNotices = pinned

	departments, divisions, err := s.directory.CountDirectory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count directory")
	}
	stats.Departments = departments
	stats.Divisions = divisions

	return stats, nil
}

func (s *UserService) loadApplication(ctx context.Context, applicationID string) (*models.CRApplication, *models.User, error) {
	app, err := s.repo.GetCRApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	if app.Status != models.CRApplicationPending {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidOperation, "application already reviewed")
	}
	applicant, err := s.repo.FindByID(ctx, app.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "applicant not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicant")
	}
	return app, applicant, nil
}

func (s *UserService) review(ctx context.Context, applicationID string, status models.CRApplicationStatus, reviewedBy string, note string) error {
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	if err := s.repo.ReviewCRApplication(ctx, applicationID, status, reviewedBy, notePtr, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidOperation, "application already reviewed")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review application")
	}
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID, payload string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
