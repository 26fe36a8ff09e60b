package service

import (
	"sort"

	"github.com/noah-isme/preicfes-api/internal/models"
)

// Capability names an action family the access policy can grant.
type Capability string

const (
	CapManageLedger              Capability = "manage_ledger"
	CapOverrideLedgerLocks       Capability = "override_ledger_locks"
	CapViewCollections           Capability = "view_collections"
	CapViewAgreements            Capability = "view_agreements"
	CapManageAcademics           Capability = "manage_academics"
	CapRegisterAttendanceAnytime Capability = "register_attendance_anytime"
	CapManageFinance             Capability = "manage_finance"
	CapManageUsers               Capability = "manage_users"
)

// Capabilities is what one authenticated user may do and see.
type Capabilities struct {
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
	Scope    models.Scope    `json:"scope"`
	granted  map[Capability]bool
}

// Can reports whether the capability was granted.
func (c Capabilities) Can(capability Capability) bool {
	return c.granted[capability]
}

// AgreementScope narrows Scope for payment agreement listings. Roles without
// CapViewAgreements see no agreements even when they can see collections.
func (c Capabilities) AgreementScope() models.Scope {
	if !c.Can(CapViewAgreements) {
		return models.Scope{Kind: models.ScopeNone}
	}
	return c.Scope
}

// List returns the granted capabilities sorted by name.
func (c Capabilities) List() []Capability {
	out := make([]Capability, 0, len(c.granted))
	for capability := range c.granted {
		out = append(out, capability)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Policy maps staff roles to capabilities and visibility scopes. It is the only
// place that branches on role names.
type Policy struct {
	grants map[models.UserRole][]Capability
}

// NewPolicy builds the default role policy.
func NewPolicy() *Policy {
	return &Policy{grants: map[models.UserRole][]Capability{
		models.RoleSuperuser: {
			CapManageLedger, CapOverrideLedgerLocks, CapViewCollections, CapViewAgreements, CapManageAcademics,
			CapRegisterAttendanceAnytime, CapManageFinance, CapManageUsers,
		},
		models.RoleDepartmentCoordinator: {CapViewCollections, CapViewAgreements, CapManageAcademics, CapRegisterAttendanceAnytime},
		models.RoleCollectionsSecretary:  {CapManageLedger, CapViewCollections, CapViewAgreements, CapManageAcademics, CapManageFinance},
		models.RoleCollections:           {CapManageLedger, CapViewCollections},
		models.RoleAcademicSecretary:     {CapManageAcademics, CapRegisterAttendanceAnytime},
		models.RoleAssistant:             {CapManageAcademics},
		models.RoleProfessor:             {},
	}}
}

// For resolves the capabilities carried by the token claims.
func (p *Policy) For(claims *models.JWTClaims) Capabilities {
	if claims == nil {
		return Capabilities{Scope: models.Scope{Kind: models.ScopeNone}}
	}
	caps := Capabilities{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
		Scope:    scopeFor(claims),
		granted:  make(map[Capability]bool),
	}
	for _, capability := range p.grants[claims.Role] {
		caps.granted[capability] = true
	}
	return caps
}

func scopeFor(claims *models.JWTClaims) models.Scope {
	switch claims.Role {
	case models.RoleSuperuser:
		return models.Scope{Kind: models.ScopeAll}
	case models.RoleDepartmentCoordinator:
		return models.Scope{Kind: models.ScopeDepartment, DepartmentID: claims.DepartmentID}
	case models.RoleProfessor:
		return models.Scope{Kind: models.ScopeNone}
	default:
		if claims.MunicipalityID == "" {
			return models.Scope{Kind: models.ScopeNone}
		}
		return models.Scope{Kind: models.ScopeMunicipality, MunicipalityID: claims.MunicipalityID, DepartmentID: claims.DepartmentID}
	}
}
