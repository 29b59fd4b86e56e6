package database

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
)

func newSchemaTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	return db
}

func createTestOrg(t *testing.T, db *gorm.DB, name, slug string) *models.Organization {
	t.Helper()

	org := &models.Organization{Name: name, Slug: slug}
	require.NoError(t, db.Create(org).Error)
	return org
}

func createTestUser(t *testing.T, db *gorm.DB, email, displayName string) *models.User {
	t.Helper()

	user := &models.User{Email: email, DisplayName: displayName}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestMembership(t *testing.T, db *gorm.DB, orgID, userID string, role models.MembershipRole) *models.OrganizationMembership {
	t.Helper()

	m := &models.OrganizationMembership{OrganizationID: orgID, UserID: userID, Role: role}
	require.NoError(t, db.Create(m).Error)
	return m
}

func TestUpdatedAtTriggerOverwritesSuppliedValue(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, "owner@acme.example", "Owner")
	m := createTestMembership(t, db, org.ID, user.ID, models.RoleOwner)

	rows := []struct {
		table string
		id    string
	}{
		{"organizations", org.ID},
		{"users", user.ID},
		{"organization_memberships", m.ID},
	}

	for _, row := range rows {
		t.Run(row.table, func(t *testing.T) {
			// the caller supplies a bogus timestamp; the trigger must win
			update := fmt.Sprintf("UPDATE %s SET updated_at = '2001-01-01 00:00:00' WHERE id = ?", row.table)
			require.NoError(t, db.Exec(update, row.id).Error)

			var got struct{ UpdatedAt time.Time }
			require.NoError(t, db.Table(row.table).Select("updated_at").Where("id = ?", row.id).Scan(&got).Error)
			require.Greater(t, got.UpdatedAt.Year(), 2001, "expected trigger to overwrite supplied updated_at")
		})
	}
}

func TestUpdatedAtTriggerFiresWhenColumnOmitted(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")

	// park updated_at in the past, then issue an update that never mentions it
	require.NoError(t, db.Exec("UPDATE organizations SET updated_at = '2001-01-01 00:00:00' WHERE id = ?", org.ID).Error)
	require.NoError(t, db.Exec("UPDATE organizations SET name = ? WHERE id = ?", "Acme Renamed", org.ID).Error)

	var reloaded models.Organization
	require.NoError(t, db.First(&reloaded, "id = ?", org.ID).Error)
	require.Equal(t, "Acme Renamed", reloaded.Name)
	require.Greater(t, reloaded.UpdatedAt.Year(), 2001, "expected trigger to refresh updated_at")
}

func TestSlugUniquenessIsUnconditional(t *testing.T) {
	db := newSchemaTestDB(t)

	first := createTestOrg(t, db, "Acme", "acme")

	dup := &models.Organization{Name: "Acme Again", Slug: "acme"}
	require.Error(t, db.Create(dup).Error, "expected duplicate slug to be rejected")

	// soft deletion does not release the slug
	require.NoError(t, db.Delete(first).Error)
	require.Error(t, db.Create(&models.Organization{Name: "Acme Again", Slug: "acme"}).Error,
		"expected slug held by soft-deleted organization to stay reserved")
}

func TestEmailUniquenessAfterNormalisation(t *testing.T) {
	db := newSchemaTestDB(t)

	createTestUser(t, db, "Owner@Acme.Example", "Owner")

	err := db.Create(&models.User{Email: "owner@acme.example", DisplayName: "Imposter"}).Error
	require.Error(t, err, "expected duplicate email to be rejected after lowercasing")
}

func TestCheckConstraintsRejectRawWrites(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, "owner@acme.example", "Owner")

	cases := []struct {
		name string
		stmt string
		args []interface{}
	}{
		{
			"malformed email",
			"INSERT INTO users (id, email, display_name) VALUES (?, ?, ?)",
			[]interface{}{"raw-user-1", "not-an-email", "Raw"},
		},
		{
			"blank organization name",
			"INSERT INTO organizations (id, name, slug) VALUES (?, ?, ?)",
			[]interface{}{"raw-org-1", "   ", "raw-org"},
		},
		{
			"unknown organization status",
			"INSERT INTO organizations (id, name, slug, status) VALUES (?, ?, ?, ?)",
			[]interface{}{"raw-org-2", "Raw Org", "raw-org-2", "archived"},
		},
		{
			"unknown membership role",
			"INSERT INTO organization_memberships (id, organization_id, user_id, role, joined_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
			[]interface{}{"raw-mem-1", org.ID, user.ID, "superuser"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := db.Exec(tc.stmt, tc.args...).Error
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), "CHECK constraint failed"),
				"expected CHECK violation, got: %v", err)
		})
	}
}

func TestMembershipForeignKeysCarryReferentialActions(t *testing.T) {
	db := newSchemaTestDB(t)

	// The relations are declared on both sides; the generated DDL must carry
	// the actions, not bare REFERENCES clauses.
	var ddl string
	require.NoError(t, db.Raw(
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'organization_memberships'",
	).Scan(&ddl).Error)

	require.Equal(t, 2, strings.Count(ddl, "ON DELETE CASCADE"),
		"expected cascading foreign keys to organizations and users, got: %s", ddl)
	require.Equal(t, 1, strings.Count(ddl, "ON DELETE SET NULL"),
		"expected detaching inviter foreign key, got: %s", ddl)
}

func TestDeletingOrganizationCascadesToMemberships(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, "owner@acme.example", "Owner")
	createTestMembership(t, db, org.ID, user.ID, models.RoleOwner)

	require.NoError(t, db.Unscoped().Delete(&models.Organization{}, "id = ?", org.ID).Error)

	var memberships int64
	require.NoError(t, db.Model(&models.OrganizationMembership{}).Where("organization_id = ?", org.ID).Count(&memberships).Error)
	require.Zero(t, memberships, "expected memberships to cascade with the organization")

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Count(&users).Error)
	require.EqualValues(t, 1, users, "expected the user to survive organization deletion")
}

func TestDeletingUserCascadesToMemberships(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, "member@acme.example", "Member")
	createTestMembership(t, db, org.ID, user.ID, models.RoleMember)

	require.NoError(t, db.Unscoped().Delete(&models.User{}, "id = ?", user.ID).Error)

	var memberships int64
	require.NoError(t, db.Model(&models.OrganizationMembership{}).Where("user_id = ?", user.ID).Count(&memberships).Error)
	require.Zero(t, memberships, "expected memberships to cascade with the user")

	var orgs int64
	require.NoError(t, db.Model(&models.Organization{}).Where("id = ?", org.ID).Count(&orgs).Error)
	require.EqualValues(t, 1, orgs, "expected the organization to survive user deletion")
}

func TestDeletingInviterDetachesReference(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	inviter := createTestUser(t, db, "inviter@acme.example", "Inviter")
	invitee := createTestUser(t, db, "invitee@acme.example", "Invitee")

	m := &models.OrganizationMembership{
		OrganizationID: org.ID,
		UserID:         invitee.ID,
		Role:           models.RoleMember,
		InvitedByID:    &inviter.ID,
	}
	require.NoError(t, db.Create(m).Error)

	require.NoError(t, db.Unscoped().Delete(&models.User{}, "id = ?", inviter.ID).Error)

	var reloaded models.OrganizationMembership
	require.NoError(t, db.First(&reloaded, "id = ?", m.ID).Error)
	require.Nil(t, reloaded.InvitedByID, "expected inviter reference to be nulled, not cascaded")
}

func TestMembershipPairUniqueness(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	other := createTestOrg(t, db, "Globex", "globex")
	user := createTestUser(t, db, "member@acme.example", "Member")

	createTestMembership(t, db, org.ID, user.ID, models.RoleMember)

	dup := &models.OrganizationMembership{OrganizationID: org.ID, UserID: user.ID, Role: models.RoleAdmin}
	require.Error(t, db.Create(dup).Error, "expected second membership for the same pair to be rejected")

	// the same user may join a different organization
	createTestMembership(t, db, other.ID, user.ID, models.RoleViewer)
}

func TestActiveOrganizationsViewFiltersExactly(t *testing.T) {
	db := newSchemaTestDB(t)

	createTestOrg(t, db, "Visible", "visible")

	inactive := &models.Organization{Name: "Dormant", Slug: "dormant", Status: models.StatusInactive}
	require.NoError(t, db.Create(inactive).Error)

	suspended := &models.Organization{Name: "Frozen", Slug: "frozen", Status: models.StatusSuspended}
	require.NoError(t, db.Create(suspended).Error)

	ghost := createTestOrg(t, db, "Ghost", "ghost")
	require.NoError(t, db.Delete(ghost).Error)

	var rows []models.Organization
	require.NoError(t, db.Table(models.ViewActiveOrganizations).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "visible", rows[0].Slug)
}

func TestActiveUsersViewFiltersExactly(t *testing.T) {
	db := newSchemaTestDB(t)

	createTestUser(t, db, "active@acme.example", "Active")

	pending := &models.User{Email: "pending@acme.example", DisplayName: "Pending", Status: models.StatusPending}
	require.NoError(t, db.Create(pending).Error)

	ghost := createTestUser(t, db, "ghost@acme.example", "Ghost")
	require.NoError(t, db.Delete(ghost).Error)

	var rows []models.User
	require.NoError(t, db.Table(models.ViewActiveUsers).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "active@acme.example", rows[0].Email)
}

func TestOrganizationMembersViewJoins(t *testing.T) {
	db := newSchemaTestDB(t)

	org := createTestOrg(t, db, "Acme", "acme")
	user := createTestUser(t, db, "admin@acme.example", "Admin")
	m := createTestMembership(t, db, org.ID, user.ID, models.RoleAdmin)

	var members []models.OrganizationMemberRow
	require.NoError(t, db.Find(&members).Error)
	require.Len(t, members, 1)

	row := members[0]
	require.Equal(t, m.ID, row.MembershipID)
	require.Equal(t, org.ID, row.OrganizationID)
	require.Equal(t, "Acme", row.OrganizationName)
	require.Equal(t, "acme", row.OrganizationSlug)
	require.Equal(t, user.ID, row.UserID)
	require.Equal(t, "admin@acme.example", row.Email)
	require.Equal(t, "Admin", row.DisplayName)
	require.Equal(t, models.RoleAdmin, row.Role)
	require.False(t, row.JoinedAt.IsZero())
}
