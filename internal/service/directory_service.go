package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hexacorn/hexacorn-api/internal/dto"
	"github.com/hexacorn/hexacorn-api/internal/models"
	"github.com/hexacorn/hexacorn-api/internal/repository"
	appErrors "github.com/hexacorn/hexacorn-api/pkg/errors"
)

type directoryRepository interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, dept *models.Department) error
	RenameDepartment(ctx context.Context, id, name string) error
	DeleteDepartment(ctx context.Context, id string) error
	ListDivisions(ctx context.Context) ([]models.Division, error)
	CreateDivision(ctx context.Context, div *models.Division) error
	RenameDivision(ctx context.Context, id, name string) error
	DeleteDivision(ctx context.Context, id string) error
}

type scopeUsageCounter interface {
	CountByScope(ctx context.Context, departmentID, divisionID string) (int, error)
}

// DirectoryService manages the department and division catalog. Deletion is
// refused while content still references the unit, since a content item's
// scope is immutable for its life.
type DirectoryService struct {
	repo      directoryRepository
	contents  scopeUsageCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(repo directoryRepository, contents scopeUsageCounter, validate *validator.Validate, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DirectoryService{repo: repo, contents: contents, validator: validate, logger: logger}
}

// Departments lists all departments.
func (s *DirectoryService) Departments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// CreateDepartment adds a department.
func (s *DirectoryService) CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	dept := &models.Department{Name: req.Name}
	if err := s.repo.CreateDepartment(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "department already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	return dept, nil
}

// RenameDepartment updates a department's name.
func (s *DirectoryService) RenameDepartment(ctx context.Context, id string, req dto.UpdateDepartmentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	if err := s.repo.RenameDepartment(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename department")
	}
	return nil
}

// DeleteDepartment removes a department when no content references it.
func (s *DirectoryService) DeleteDepartment(ctx context.Context, id string) error {
	inUse, err := s.contents.CountByScope(ctx, id, "")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department usage")
	}
	if inUse > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "department still has content")
	}
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete department")
	}
	return nil
}

// Divisions lists all divisions.
func (s *DirectoryService) Divisions(ctx context.Context) ([]models.Division, error) {
	divisions, err := s.repo.ListDivisions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list divisions")
	}
	return divisions, nil
}

// CreateDivision adds a division.
func (s *DirectoryService) CreateDivision(ctx context.Context, req dto.CreateDivisionRequest) (*models.Division, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid division payload")
	}
	div := &models.Division{Name: req.Name}
	if err := s.repo.CreateDivision(ctx, div); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "division already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create division")
	}
	return div, nil
}

// RenameDivision updates a division's name.
func (s *DirectoryService) RenameDivision(ctx context.Context, id string, req dto.UpdateDivisionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid division payload")
	}
	if err := s.repo.RenameDivision(ctx, id, req.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "division not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename division")
	}
	return nil
}

// DeleteDivision removes a division when no content references it.
func (s *DirectoryService) DeleteDivision(ctx context.Context, id string) error {
	inUse, err := s.contents.CountByScope(ctx, "", id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check division usage")
	}
	if inUse > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "division still has content")
	}
	if err := s.repo.DeleteDivision(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "division not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete division")
	}
	return nil
}
