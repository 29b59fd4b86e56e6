package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
)

// DirectorySnapshot aggregates entity counts for monitoring and the stats
// maintenance job.
type DirectorySnapshot struct {
	OrganizationsByStatus map[models.Status]int64         `json:"organizations_by_status"`
	UsersByStatus         map[models.Status]int64         `json:"users_by_status"`
	MembershipsByRole     map[models.MembershipRole]int64 `json:"memberships_by_role"`
}

// DirectoryService serves the read-model views and the aggregate counts
// derived from the base tables. It owns no state.
type DirectoryService struct {
	db *gorm.DB
}

// NewDirectoryService constructs a DirectoryService instance.
func NewDirectoryService(db *gorm.DB) (*DirectoryService, error) {
	if db == nil {
		return nil, errors.New("directory service: db is required")
	}
	return &DirectoryService{db: db}, nil
}

// ActiveOrganizations reads the active_organizations view: rows with
// status=active and no soft-delete timestamp.
func (s *DirectoryService) ActiveOrganizations(ctx context.Context) ([]models.Organization, error) {
	ctx = ensureContext(ctx)

	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Table(models.ViewActiveOrganizations).
		Order("created_at ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, fmt.Errorf("directory service: active organizations: %w", err)
	}
	return orgs, nil
}

// ActiveUsers reads the active_users view.
func (s *DirectoryService) ActiveUsers(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	err := s.db.WithContext(ctx).
		Table(models.ViewActiveUsers).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("directory service: active users: %w", err)
	}
	return users, nil
}

// OrganizationMembers reads the denormalised organization_members view for a
// single organization.
func (s *DirectoryService) OrganizationMembers(ctx context.Context, organizationID string) ([]models.OrganizationMemberRow, error) {
	ctx = ensureContext(ctx)

	var rows []models.OrganizationMemberRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("joined_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("directory service: organization members: %w", err)
	}
	return rows, nil
}

// Snapshot counts live rows grouped by status and role. Soft-deleted rows are
// excluded; the counts describe what the application can currently see.
func (s *DirectoryService) Snapshot(ctx context.Context) (DirectorySnapshot, error) {
	ctx = ensureContext(ctx)

	snapshot := DirectorySnapshot{
		OrganizationsByStatus: make(map[models.Status]int64),
		UsersByStatus:         make(map[models.Status]int64),
		MembershipsByRole:     make(map[models.MembershipRole]int64),
	}

	type statusCount struct {
		Status models.Status
		Count  int64
	}
	type roleCount struct {
		Role  models.MembershipRole
		Count int64
	}

	var orgCounts []statusCount
	err := s.db.WithContext(ctx).
		Model(&models.Organization{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&orgCounts).Error
	if err != nil {
		return snapshot, fmt.Errorf("directory service: count organizations: %w", err)
	}
	for _, row := range orgCounts {
		snapshot.OrganizationsByStatus[row.Status] = row.Count
	}

	var userCounts []statusCount
	err = s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&userCounts).Error
	if err != nil {
		return snapshot, fmt.Errorf("directory service: count users: %w", err)
	}
	for _, row := range userCounts {
		snapshot.UsersByStatus[row.Status] = row.Count
	}

	var roleCounts []roleCount
	err = s.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&roleCounts).Error
	if err != nil {
		return snapshot, fmt.Errorf("directory service: count memberships: %w", err)
	}
	for _, row := range roleCounts {
		snapshot.MembershipsByRole[row.Role] = row.Count
	}

	return snapshot, nil
}
