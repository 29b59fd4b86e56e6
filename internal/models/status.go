package models

// Status captures the free-standing lifecycle state shared by organizations
// and users. Any value may be assigned at any time; there are no transition
// rules. Soft deletion is tracked separately through deleted_at.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

// Statuses lists every recognised lifecycle state.
func Statuses() []Status {
	return []Status{StatusActive, StatusInactive, StatusPending, StatusSuspended, StatusDeleted}
}

// Valid reports whether s is a recognised lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended, StatusDeleted:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// MembershipRole ranks a user inside an organization.
type MembershipRole string

const (
	RoleOwner  MembershipRole = "owner"
	RoleAdmin  MembershipRole = "admin"
	RoleMember MembershipRole = "member"
	RoleViewer MembershipRole = "viewer"
)

// MembershipRoles lists every recognised membership role.
func MembershipRoles() []MembershipRole {
	return []MembershipRole{RoleOwner, RoleAdmin, RoleMember, RoleViewer}
}

// Valid reports whether r is a recognised membership role.
func (r MembershipRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

func (r MembershipRole) String() string { return string(r) }
