package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/database/testutil"
	"github.com/coreplane/tenantd/internal/models"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithMigrations())
}

func seedOrganization(t *testing.T, db *gorm.DB, name, slugValue string) *models.Organization {
	t.Helper()

	svc, err := NewOrganizationService(db)
	require.NoError(t, err)

	org, err := svc.Create(context.Background(), CreateOrganizationInput{
		Name: name,
		Slug: slugValue,
	})
	require.NoError(t, err)
	return org
}

func seedUser(t *testing.T, db *gorm.DB, email, displayName string) *models.User {
	t.Helper()

	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:       email,
		DisplayName: displayName,
	})
	require.NoError(t, err)
	return user
}

func seedMembership(t *testing.T, db *gorm.DB, orgID, userID string, role models.MembershipRole) *models.OrganizationMembership {
	t.Helper()

	svc, err := NewMembershipService(db)
	require.NoError(t, err)

	membership, err := svc.Add(context.Background(), AddMembershipInput{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	})
	require.NoError(t, err)
	return membership
}

func membershipCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.OrganizationMembership{}).Count(&count).Error)
	return count
}
