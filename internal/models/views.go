package models

import "time"

// Names of the read-model views maintained alongside the tables.
const (
	ViewActiveOrganizations = "active_organizations"
	ViewActiveUsers         = "active_users"
	ViewOrganizationMembers = "organization_members"
)

// OrganizationMemberRow is the denormalised row shape served by the
// organization_members view: membership, user, and organization identity in
// one read.
type OrganizationMemberRow struct {
	MembershipID     string         `json:"membership_id"`
	OrganizationID   string         `json:"organization_id"`
	OrganizationName string         `json:"organization_name"`
	OrganizationSlug string         `json:"organization_slug"`
	UserID           string         `json:"user_id"`
	Email            string         `json:"email"`
	DisplayName      string         `json:"display_name"`
	Role             MembershipRole `json:"role"`
	JoinedAt         time.Time      `json:"joined_at"`
}

// TableName points GORM reads at the view.
func (OrganizationMemberRow) TableName() string { return ViewOrganizationMembers }
