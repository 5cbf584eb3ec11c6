package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

const userColumns = `id, full_name, contact_number, email, password_hash, role, is_verified_cr,
       must_change_password, failed_login_attempts, lock_until, active, department_id, division_id,
       semester, last_login_at, created_at, updated_at`

// UserRepository persists users, CR applications and audit records.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users
	(id, full_name, contact_number, email, password_hash, role, is_verified_cr, must_change_password,
	 failed_login_attempts, lock_until, active, department_id, division_id, semester, last_login_at, created_at, updated_at)
	VALUES (:id, :full_name, :contact_number, :email, :password_hash, :role, :is_verified_cr, :must_change_password,
	 :failed_login_attempts, :lock_until, :active, :department_id, :division_id, :semester, :last_login_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID fetches one user.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByContactNumber fetches one user by their login identifier.
func (r *UserRepository) FindByContactNumber(ctx context.Context, contactNumber string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE contact_number = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, contactNumber); err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users applying filters, ordered by creation time.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM users", userColumns))
	args := make([]interface{}, 0, 5)
	conditions := make([]string, 0, 5)

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.DivisionID != "" {
		args = append(args, filter.DivisionID)
		conditions = append(conditions, fmt.Sprintf("division_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR contact_number ILIKE $%d)", len(args), len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateLoginState records the outcome of a login attempt.
func (r *UserRepository) UpdateLoginState(ctx context.Context, id string, failedAttempts int, lockUntil, lastLoginAt *time.Time) error {
	const query = `UPDATE users SET failed_login_attempts = $2, lock_until = $3,
	last_login_at = COALESCE($4, last_login_at), updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, failedAttempts, lockUntil, lastLoginAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash and clears the forced-change flag.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, must_change_password = FALSE, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRowsAffected(res, "update password")
}

// UpdateActive toggles account activation.
func (r *UserRepository) UpdateActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return requireRowsAffected(res, "update user status")
}

// PromoteToCR upgrades a user to verified class representative.
func (r *UserRepository) PromoteToCR(ctx context.Context, id string) error {
	const query = `UPDATE users SET role = $2, is_verified_cr = TRUE, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.RoleCR, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("promote user to cr: %w", err)
	}
	return requireRowsAffected(res, "promote user to cr")
}

// DemoteToStudent reverts a rejected applicant to the student role.
func (r *UserRepository) DemoteToStudent(ctx context.Context, id string) error {
	const query = `UPDATE users SET role = $2, is_verified_cr = FALSE, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.RoleStudent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("demote user to student: %w", err)
	}
	return requireRowsAffected(res, "demote user to student")
}

// CountVerifiedCRs counts verified class representatives in a scope.
func (r *UserRepository) CountVerifiedCRs(ctx context.Context, departmentID, divisionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users
	WHERE role = $1 AND is_verified_cr AND department_id = $2 AND division_id = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.RoleCR, departmentID, divisionID); err != nil {
		return 0, fmt.Errorf("count verified crs: %w", err)
	}
	return count, nil
}

// CountByRole counts users holding the given role.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, role); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}

// CreateCRApplication records a pending class-representative application.
func (r *UserRepository) CreateCRApplication(ctx context.Context, app *models.CRApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.Status == "" {
		app.Status = models.CRApplicationPending
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO cr_applications (id, user_id, status, note, reviewed_by, reviewed_at, created_at)
	VALUES (:id, :user_id, :status, :note, :reviewed_by, :reviewed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create cr application: %w", err)
	}
	return nil
}

// GetCRApplication fetches one application.
func (r *UserRepository) GetCRApplication(ctx context.Context, id string) (*models.CRApplication, error) {
	const query = `SELECT id, user_id, status, note, reviewed_by, reviewed_at, created_at
	FROM cr_applications WHERE id = $1`
	var app models.CRApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListCRApplications returns applications in a given status, oldest first.
func (r *UserRepository) ListCRApplications(ctx context.Context, status models.CRApplicationStatus) ([]models.CRApplication, error) {
	const query = `SELECT id, user_id, status, note, reviewed_by, reviewed_at, created_at
	FROM cr_applications WHERE status = $1 ORDER BY created_at ASC`
	var apps []models.CRApplication
	if err := r.db.SelectContext(ctx, &apps, query, status); err != nil {
		return nil, fmt.Errorf("list cr applications: %w", err)
	}
	return apps, nil
}

// ReviewCRApplication records an approve/reject decision on a pending application.
func (r *UserRepository) ReviewCRApplication(ctx context.Context, id string, status models.CRApplicationStatus, reviewedBy string, note *string, reviewedAt time.Time) error {
	const query = `UPDATE cr_applications SET status = $2, reviewed_by = $3, note = $4, reviewed_at = $5
	WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, note, reviewedAt, models.CRApplicationPending)
	if err != nil {
		return fmt.Errorf("review cr application: %w", err)
	}
	return requireRowsAffected(res, "review cr application")
}

// CreateAuditLog stores an audit trail record.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
