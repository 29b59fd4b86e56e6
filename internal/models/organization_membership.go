package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrganizationMembership joins a user to an organization with a role. At most
// one row may exist per (organization, user) pair. Membership rows are never
// soft deleted: removing one, or hard-deleting either side of the pair,
// removes the row physically.
type OrganizationMembership struct {
	BaseModel

	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_org_user;index" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`

	Role        MembershipRole `gorm:"type:varchar(16);not null;default:member;check:chk_memberships_role,role IN ('owner','admin','member','viewer')" json:"role"`
	Permissions datatypes.JSON `json:"permissions"`

	// Who invited the user, when known. Deleting the inviter detaches the
	// reference instead of cascading into the membership.
	InvitedByID *string `gorm:"type:uuid" json:"invited_by_id"`
	InvitedBy   *User   `gorm:"foreignKey:InvitedByID;constraint:OnDelete:SET NULL" json:"invited_by,omitempty"`

	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

// Normalize fills defaults prior to persistence.
func (m *OrganizationMembership) Normalize() {
	if m.Role == "" {
		m.Role = RoleMember
	}
	if m.Permissions == nil {
		m.Permissions = datatypes.JSON("{}")
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
}

// Validate enforces the closed role set at write time.
func (m *OrganizationMembership) Validate() error {
	if !m.Role.Valid() {
		return ErrRoleInvalid
	}
	return nil
}

// BeforeCreate generates the identifier and applies write-time validation.
func (m *OrganizationMembership) BeforeCreate(tx *gorm.DB) error {
	if err := m.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	m.Normalize()
	return m.Validate()
}
