package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

// DirectoryRepository persists departments and divisions.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// ListDepartments returns all departments ordered by name.
func (r *DirectoryRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, created_at, updated_at FROM departments ORDER BY name ASC`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// DepartmentExists reports whether a department row exists.
func (r *DirectoryRepository) DepartmentExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check department: %w", err)
	}
	return exists, nil
}

// CreateDepartment inserts a department.
func (r *DirectoryRepository) CreateDepartment(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	dept.CreatedAt = now
	dept.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, dept.ID, dept.Name, dept.CreatedAt, dept.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// RenameDepartment updates a department's name.
func (r *DirectoryRepository) RenameDepartment(ctx context.Context, id, name string) error {
	const query = `UPDATE departments SET name = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename department: %w", err)
	}
	return requireRowsAffected(res, "rename department")
}

// DeleteDepartment removes a department row.
func (r *DirectoryRepository) DeleteDepartment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return requireRowsAffected(res, "delete department")
}

// ListDivisions returns all divisions ordered by name.
func (r *DirectoryRepository) ListDivisions(ctx context.Context) ([]models.Division, error) {
	const query = `SELECT id, name, created_at, updated_at FROM divisions ORDER BY name ASC`
	var divisions []models.Division
	if err := r.db.SelectContext(ctx, &divisions, query); err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	return divisions, nil
}

// DivisionExists reports whether a division row exists.
func (r *DirectoryRepository) DivisionExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM divisions WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check division: %w", err)
	}
	return exists, nil
}

// CreateDivision inserts a division.
func (r *DirectoryRepository) CreateDivision(ctx context.Context, div *models.Division) error {
	if div.ID == "" {
		div.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	div.CreatedAt = now
	div.UpdatedAt = now
	const query = `INSERT INTO divisions (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, div.ID, div.Name, div.CreatedAt, div.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create division: %w", err)
	}
	return nil
}

// RenameDivision updates a division's name.
func (r *DirectoryRepository) RenameDivision(ctx context.Context, id, name string) error {
	const query = `UPDATE divisions SET name = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename division: %w", err)
	}
	return requireRowsAffected(res, "rename division")
}

// DeleteDivision removes a division row.
func (r *DirectoryRepository) DeleteDivision(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM divisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete division: %w", err)
	}
	return requireRowsAffected(res, "delete division")
}

// CountDirectory reports department and division totals for the stats endpoint.
func (r *DirectoryRepository) CountDirectory(ctx context.Context) (departments, divisions int, err error) {
	if err = r.db.GetContext(ctx, &departments, `SELECT COUNT(*) FROM departments`); err != nil {
		return 0, 0, fmt.Errorf("count departments: %w", err)
	}
	if err = r.db.GetContext(ctx, &divisions, `SELECT COUNT(*) FROM divisions`); err != nil {
		return 0, 0, fmt.Errorf("count divisions: %w", err)
	}
	return departments, divisions, nil
}
