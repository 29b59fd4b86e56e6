package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreplane/tenantd/internal/models"
)

func TestMembershipServiceAdd(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "Join Org", "join-org")
	user := seedUser(t, db, "joiner@example.com", "Joiner")

	membership, err := svc.Add(ctx, AddMembershipInput{
		OrganizationID: org.ID,
		UserID:         user.ID,
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, membership.Role)
	require.False(t, membership.JoinedAt.IsZero())
	require.JSONEq(t, "{}", string(membership.Permissions))
}

func TestMembershipServiceAddDuplicatePair(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "Dup Org", "dup-org")
	user := seedUser(t, db, "dupmember@example.com", "Dup Member")

	_, err = svc.Add(ctx, AddMembershipInput{OrganizationID: org.ID, UserID: user.ID, Role: models.RoleAdmin})
	require.NoError(t, err)

	// Second row for the same (organization, user) pair must be refused even
	// with a different role.
	_, err = svc.Add(ctx, AddMembershipInput{OrganizationID: org.ID, UserID: user.ID, Role: models.RoleViewer})
	require.ErrorIs(t, err, ErrMembershipExists)
}

func TestMembershipServiceAddValidation(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "Val Org", "val-org")
	user := seedUser(t, db, "valmember@example.com", "Val Member")

	_, err = svc.Add(ctx, AddMembershipInput{OrganizationID: org.ID, UserID: user.ID, Role: "superuser"})
	require.Error(t, err)

	_, err = svc.Add(ctx, AddMembershipInput{OrganizationID: "missing", UserID: user.ID})
	require.ErrorIs(t, err, ErrOrganizationNotFound)

	_, err = svc.Add(ctx, AddMembershipInput{OrganizationID: org.ID, UserID: "missing"})
	require.ErrorIs(t, err, ErrUserNotFound)

	ghost := "missing-inviter"
	_, err = svc.Add(ctx, AddMembershipInput{OrganizationID: org.ID, UserID: user.ID, InvitedByID: &ghost})
	require.ErrorIs(t, err, ErrInviterNotFound)
}

func TestMembershipServiceInviterDetachedOnDelete(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db)
	require.NoError(t, err)
	users, err := NewUserService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "Invite Org", "invite-org")
	inviter := seedUser(t, db, "inviter@example.com", "Inviter")
	invitee := seedUser(t, db, "invitee@example.com", "Invitee")

	_, err = svc.Add(ctx, AddMembershipInput{
		OrganizationID: org.ID,
		UserID:         invitee.ID,
		InvitedByID:    &inviter.ID,
	})
	require.NoError(t, err)

	// Hard-deleting the inviter detaches the reference instead of cascading
	// into the membership row.
	require.NoError(t, users.HardDelete(ctx, inviter.ID))

	membership, err := svc.Get(ctx, org.ID, invitee.ID)
	require.NoError(t, err)
	require.Nil(t, membership.InvitedByID)
}

func TestMembershipServiceListAndUpdate(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "List Org", "list-org")
	alice := seedUser(t, db, "alice@example.com", "Alice")
	bob := seedUser(t, db, "bob@example.com", "Bob")

	seedMembership(t, db, org.ID, alice.ID, models.RoleOwner)
	seedMembership(t, db, org.ID, bob.ID, models.RoleViewer)

	byOrg, err := svc.ListByOrganization(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, byOrg, 2)
	require.NotNil(t, byOrg[0].User)

	byUser, err := svc.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.NotNil(t, byUser[0].Organization)
	require.Equal(t, "list-org", byUser[0].Organization.Slug)

	admin := models.RoleAdmin
	updated, err := svc.Update(ctx, org.ID, bob.ID, UpdateMembershipInput{
		Role:        &admin,
		Permissions: map[string]any{"billing": true},
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, updated.Role)
	require.JSONEq(t, `{"billing":true}`, string(updated.Permissions))

	bogus := models.MembershipRole("emperor")
	_, err = svc.Update(ctx, org.ID, bob.ID, UpdateMembershipInput{Role: &bogus})
	require.Error(t, err)
}

func TestMembershipServiceRemove(t *testing.T) {
	db := openServiceTestDB(t)
	svc, err := NewMembershipService(db)
	require.NoError(t, err)
	ctx := context.Background()

	org := seedOrganization(t, db, "Remove Org", "remove-org")
	user := seedUser(t, db, "removable@example.com", "Removable")
	seedMembership(t, db, org.ID, user.ID, models.RoleMember)

	require.NoError(t, svc.Remove(ctx, org.ID, user.ID))
	require.Equal(t, int64(0), membershipCount(t, db))

	require.ErrorIs(t, svc.Remove(ctx, org.ID, user.ID), ErrMembershipNotFound)
	_, err = svc.Get(ctx, org.ID, user.ID)
	require.ErrorIs(t, err, ErrMembershipNotFound)
}
