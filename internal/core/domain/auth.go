package domain

// Role is the coarse authorisation level of a principal.
type Role string

// Available roles.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Principal is an authenticated caller resolved by the auth collaborator.
type Principal struct {
	Subject string
	Tenant  TenantID
	Role    Role
}

// IsAdmin reports whether the principal may run admin-only operations.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
