package models

import "time"

// UserRole represents the staff roles known to the access policy.
type UserRole string

const (
	RoleSuperuser             UserRole = "SUPERUSER"
	RoleCollectionsSecretary  UserRole = "COLLECTIONS_SECRETARY"
	RoleCollections           UserRole = "COLLECTIONS"
	RoleAssistant             UserRole = "ASSISTANT"
	RoleDepartmentCoordinator UserRole = "DEPARTMENT_COORDINATOR"
	RoleAcademicSecretary     UserRole = "ACADEMIC_SECRETARY"
	RoleProfessor             UserRole = "PROFESSOR"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperuser, RoleCollectionsSecretary, RoleCollections, RoleAssistant,
		RoleDepartmentCoordinator, RoleAcademicSecretary, RoleProfessor:
		return true
	}
	return false
}

// User represents a staff account stored in the users table.
type User struct {
	ID             string     `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FullName       string     `db:"full_name" json:"full_name"`
	Role           UserRole   `db:"role" json:"role"`
	MunicipalityID *string    `db:"municipality_id" json:"municipality_id,omitempty"`
	DepartmentID   *string    `db:"department_id" json:"department_id,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role           *UserRole
	Active         *bool
	MunicipalityID string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
