package models

// ScopeKind tells repositories how far a caller can see.
type ScopeKind string

const (
	ScopeAll          ScopeKind = "all"
	ScopeDepartment   ScopeKind = "department"
	ScopeMunicipality ScopeKind = "municipality"
	ScopeNone         ScopeKind = "none"
)

// Scope restricts list queries to a slice of the location tree.
type Scope struct {
	Kind           ScopeKind `json:"kind"`
	DepartmentID   string    `json:"department_id,omitempty"`
	MunicipalityID string    `json:"municipality_id,omitempty"`
}

// Empty is true when nothing may be returned.
func (s Scope) Empty() bool {
	switch s.Kind {
	case ScopeAll:
		return false
	case ScopeDepartment:
		return s.DepartmentID == ""
	case ScopeMunicipality:
		return s.MunicipalityID == ""
	default:
		return true
	}
}

// Allows reports whether a record located in the given municipality and department is visible.
func (s Scope) Allows(municipalityID, departmentID string) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeDepartment:
		return s.DepartmentID != "" && s.DepartmentID == departmentID
	case ScopeMunicipality:
		return s.MunicipalityID != "" && s.MunicipalityID == municipalityID
	default:
		return false
	}
}
