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
	"github.com/coreplane/tenantd/pkg/slug"
	"github.com/coreplane/tenantd/pkg/validator"
)

var (
	// ErrOrganizationNotFound indicates the requested organization does not exist.
	ErrOrganizationNotFound = apperrors.New("ORGANIZATION_NOT_FOUND", "Organization not found", http.StatusNotFound)
	// ErrSlugTaken indicates the slug is already claimed, soft-deleted rows included.
	ErrSlugTaken = apperrors.NewConflict("Organization slug already in use")
	// ErrOrganizationNotDeleted indicates a restore was attempted on a live row.
	ErrOrganizationNotDeleted = apperrors.NewBadRequest("Organization is not deleted")
)

// CreateOrganizationInput captures the attributes required to register an organization.
type CreateOrganizationInput struct {
	Name        string         `json:"name" validate:"required"`
	Slug        string         `json:"slug" validate:"omitempty,slug,max=100"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
	Status      models.Status  `json:"status"`
}

// UpdateOrganizationInput represents mutable organization fields. Nil pointers
// leave the corresponding column untouched.
type UpdateOrganizationInput struct {
	Name        *string        `json:"name"`
	Slug        *string        `json:"slug"`
	Description *string        `json:"description"`
	Settings    map[string]any `json:"settings"`
	Status      *models.Status `json:"status"`
}

// ListOrganizationsInput filters and paginates organization listings.
type ListOrganizationsInput struct {
	Status         *models.Status
	Query          string
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// OrganizationService manages lifecycle operations for organizations.
type OrganizationService struct {
	db *gorm.DB
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	return &OrganizationService{db: db}, nil
}

// Create registers a new organization. When no slug is supplied one is derived
// from the name.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.Slug = strings.TrimSpace(input.Slug)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	if input.Slug == "" {
		derived, err := slug.Make(input.Name)
		if err != nil {
			return nil, apperrors.NewBadRequest("Organization name yields no usable slug")
		}
		input.Slug = derived
	}

	if input.Status != "" && !input.Status.Valid() {
		return nil, apperrors.NewBadRequest("Unrecognised organization status")
	}

	org := &models.Organization{
		Name:        input.Name,
		Slug:        input.Slug,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
	}

	if input.Settings != nil {
		doc, err := jsonDocument(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: %w", err)
		}
		org.Settings = doc
	}

	if err := s.db.WithContext(ctx).Create(org).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		if isCheckViolation(err) {
			return nil, apperrors.NewBadRequest("Organization violates schema constraints")
		}
		return nil, fmt.Errorf("organization service: create organization: %w", err)
	}

	return org, nil
}

// GetByID loads an organization by identifier. Soft-deleted rows are not visible.
func (s *OrganizationService) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization: %w", err)
	}
	return &org, nil
}

// GetBySlug loads an organization by its slug.
func (s *OrganizationService) GetBySlug(ctx context.Context, slugValue string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).First(&org, "slug = ?", strings.TrimSpace(slugValue)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get organization by slug: %w", err)
	}
	return &org, nil
}

// List returns organizations matching the filter, newest first, with the
// total row count before pagination.
func (s *OrganizationService) List(ctx context.Context, input ListOrganizationsInput) ([]models.Organization, int64, error) {
	ctx = ensureContext(ctx)
	page, pageSize := normalisePagination(input.Page, input.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Organization{})
	if input.IncludeDeleted {
		query = query.Unscoped()
	}
	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}
	if term := strings.TrimSpace(input.Query); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR slug LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("organization service: count organizations: %w", err)
	}

	var orgs []models.Organization
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("organization service: list organizations: %w", err)
	}
	return orgs, total, nil
}

// Update modifies organization fields. Status may move between any two enum
// members; there are no transition rules.
func (s *OrganizationService) Update(ctx context.Context, id string, input UpdateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	org, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("Organization name must not be blank")
		}
		updates["name"] = name
	}
	if input.Slug != nil {
		newSlug := strings.TrimSpace(*input.Slug)
		if !slug.Valid(newSlug) {
			return nil, apperrors.NewBadRequest("Slug must contain only lowercase letters, digits and hyphens")
		}
		updates["slug"] = newSlug
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Settings != nil {
		doc, err := jsonDocument(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("organization service: %w", err)
		}
		updates["settings"] = doc
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewBadRequest("Unrecognised organization status")
		}
		updates["status"] = *input.Status
	}

	if len(updates) == 0 {
		return org, nil
	}

	if err := s.db.WithContext(ctx).Model(org).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		if isCheckViolation(err) {
			return nil, apperrors.NewBadRequest("Organization violates schema constraints")
		}
		return nil, fmt.Errorf("organization service: update organization: %w", err)
	}

	// Reload so the caller observes the trigger-maintained updated_at.
	return s.GetByID(ctx, id)
}

// Delete soft-deletes an organization by setting its deleted_at timestamp.
// Memberships are left in place; only a hard delete cascades.
func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	org, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(org).Error; err != nil {
		return fmt.Errorf("organization service: delete organization: %w", err)
	}
	return nil
}

// Restore clears the soft-delete timestamp on a previously deleted organization.
func (s *OrganizationService) Restore(ctx context.Context, id string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var org models.Organization
	err := s.db.WithContext(ctx).Unscoped().First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: load organization: %w", err)
	}
	if !org.DeletedAt.Valid {
		return nil, ErrOrganizationNotDeleted
	}

	err = s.db.WithContext(ctx).Unscoped().Model(&org).Update("deleted_at", nil).Error
	if err != nil {
		return nil, fmt.Errorf("organization service: restore organization: %w", err)
	}
	return s.GetByID(ctx, id)
}

// HardDelete physically removes an organization. The engine cascade removes
// its membership rows in the same statement; users are never deleted this way.
func (s *OrganizationService) HardDelete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Unscoped().Delete(&models.Organization{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("organization service: hard delete organization: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrganizationNotFound
	}
	return nil
}
