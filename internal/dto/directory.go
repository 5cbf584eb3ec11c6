package dto

// CreateDepartmentRequest names a new department.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// UpdateDepartmentRequest renames a department.
type UpdateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// CreateDivisionRequest names a new division.
type CreateDivisionRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// UpdateDivisionRequest renames a division.
type UpdateDivisionRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}
