package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
	apperrors "github.com/coreplane/tenantd/pkg/errors"
	"github.com/coreplane/tenantd/pkg/validator"
)

var (
	// ErrMembershipNotFound indicates no membership exists for the pair.
	ErrMembershipNotFound = apperrors.New("MEMBERSHIP_NOT_FOUND", "Membership not found", http.StatusNotFound)
	// ErrMembershipExists indicates the (organization, user) pair is already joined.
	ErrMembershipExists = apperrors.NewConflict("User is already a member of this organization")
	// ErrInviterNotFound indicates the referenced inviter does not exist.
	ErrInviterNotFound = apperrors.New("INVITER_NOT_FOUND", "Inviting user not found", http.StatusNotFound)
)

// AddMembershipInput captures the attributes required to join a user to an
// organization.
type AddMembershipInput struct {
	OrganizationID string                `json:"organization_id" validate:"required"`
	UserID         string                `json:"user_id" validate:"required"`
	Role           models.MembershipRole `json:"role"`
	Permissions    map[string]any        `json:"permissions"`
	InvitedByID    *string               `json:"invited_by_id"`
}

// UpdateMembershipInput represents mutable membership fields.
type UpdateMembershipInput struct {
	Role        *models.MembershipRole `json:"role"`
	Permissions map[string]any         `json:"permissions"`
}

// MembershipService manages the join rows between users and organizations.
type MembershipService struct {
	db *gorm.DB
}

// NewMembershipService constructs a MembershipService instance.
func NewMembershipService(db *gorm.DB) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{db: db}, nil
}

// Add joins a user to an organization. Both sides of the pair must exist and
// not be soft deleted; the optional inviter must exist as well.
func (s *MembershipService) Add(ctx context.Context, input AddMembershipInput) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	input.OrganizationID = strings.TrimSpace(input.OrganizationID)
	input.UserID = strings.TrimSpace(input.UserID)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if input.Role != "" && !input.Role.Valid() {
		return nil, apperrors.NewBadRequest("Unrecognised membership role")
	}

	if err := s.ensureExists(ctx, &models.Organization{}, input.OrganizationID, ErrOrganizationNotFound); err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, &models.User{}, input.UserID, ErrUserNotFound); err != nil {
		return nil, err
	}
	if input.InvitedByID != nil {
		inviter := strings.TrimSpace(*input.InvitedByID)
		if inviter == "" {
			input.InvitedByID = nil
		} else {
			if err := s.ensureExists(ctx, &models.User{}, inviter, ErrInviterNotFound); err != nil {
				return nil, err
			}
			input.InvitedByID = &inviter
		}
	}

	membership := &models.OrganizationMembership{
		OrganizationID: input.OrganizationID,
		UserID:         input.UserID,
		Role:           input.Role,
		InvitedByID:    input.InvitedByID,
	}

	if input.Permissions != nil {
		doc, err := jsonDocument(input.Permissions)
		if err != nil {
			return nil, fmt.Errorf("membership service: %w", err)
		}
		membership.Permissions = doc
	}

	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrMembershipExists
		}
		if isForeignKeyViolation(err) {
			return nil, ErrMembershipNotFound.WithInternal(err)
		}
		if isCheckViolation(err) {
			return nil, apperrors.NewBadRequest("Membership violates schema constraints")
		}
		return nil, fmt.Errorf("membership service: add membership: %w", err)
	}

	return membership, nil
}

// Get loads the membership for an (organization, user) pair.
func (s *MembershipService) Get(ctx context.Context, organizationID, userID string) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	var membership models.OrganizationMembership
	err := s.db.WithContext(ctx).
		First(&membership, "organization_id = ? AND user_id = ?", organizationID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("membership service: get membership: %w", err)
	}
	return &membership, nil
}

// ListByOrganization returns all memberships of an organization with the
// member users preloaded, oldest joiner first.
func (s *MembershipService) ListByOrganization(ctx context.Context, organizationID string) ([]models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.OrganizationMembership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ?", organizationID).
		Order("joined_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("membership service: list by organization: %w", err)
	}
	return memberships, nil
}

// ListByUser returns all memberships of a user with the organizations
// preloaded, oldest joined first.
func (s *MembershipService) ListByUser(ctx context.Context, userID string) ([]models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	var memberships []models.OrganizationMembership
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("membership service: list by user: %w", err)
	}
	return memberships, nil
}

// Update changes the role and/or permissions document of a membership.
func (s *MembershipService) Update(ctx context.Context, organizationID, userID string, input UpdateMembershipInput) (*models.OrganizationMembership, error) {
	ctx = ensureContext(ctx)

	membership, err := s.Get(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewBadRequest("Unrecognised membership role")
		}
		updates["role"] = *input.Role
	}
	if input.Permissions != nil {
		doc, err := jsonDocument(input.Permissions)
		if err != nil {
			return nil, fmt.Errorf("membership service: %w", err)
		}
		updates["permissions"] = doc
	}

	if len(updates) == 0 {
		return membership, nil
	}

	if err := s.db.WithContext(ctx).Model(membership).Updates(updates).Error; err != nil {
		if isCheckViolation(err) {
			return nil, apperrors.NewBadRequest("Membership violates schema constraints")
		}
		return nil, fmt.Errorf("membership service: update membership: %w", err)
	}

	return s.Get(ctx, organizationID, userID)
}

// Remove physically deletes the membership row. Memberships have no
// soft-delete concept.
func (s *MembershipService) Remove(ctx context.Context, organizationID, userID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Delete(&models.OrganizationMembership{}, "organization_id = ? AND user_id = ?", organizationID, userID)
	if result.Error != nil {
		return fmt.Errorf("membership service: remove membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

func (s *MembershipService) ensureExists(ctx context.Context, model any, id string, missing *apperrors.AppError) error {
	var count int64
	err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return fmt.Errorf("membership service: lookup %T: %w", model, err)
	}
	if count == 0 {
		return missing
	}
	return nil
}
