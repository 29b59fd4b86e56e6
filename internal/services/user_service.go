package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
	apperrors "github.com/coreplane/tenantd/pkg/errors"
	"github.com/coreplane/tenantd/pkg/validator"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken indicates the address is already registered, soft-deleted rows included.
	ErrEmailTaken = apperrors.NewConflict("Email address already registered")
	// ErrUserNotDeleted indicates a restore was attempted on a live row.
	ErrUserNotDeleted = apperrors.NewBadRequest("User is not deleted")
)

// CreateUserInput captures the attributes required to register a user.
type CreateUserInput struct {
	Email       string         `json:"email" validate:"required"`
	DisplayName string         `json:"display_name" validate:"required"`
	AvatarURL   string         `json:"avatar_url"`
	Settings    map[string]any `json:"settings"`
	Preferences map[string]any `json:"preferences"`
	Status      models.Status  `json:"status"`
}

// UpdateUserInput represents mutable user fields. Nil pointers leave the
// corresponding column untouched.
type UpdateUserInput struct {
	Email       *string        `json:"email"`
	DisplayName *string        `json:"display_name"`
	AvatarURL   *string        `json:"avatar_url"`
	Settings    map[string]any `json:"settings"`
	Preferences map[string]any `json:"preferences"`
	Status      *models.Status `json:"status"`
}

// ListUsersInput filters and paginates user listings.
type ListUsersInput struct {
	Status         *models.Status
	Query          string
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// UserService manages lifecycle operations for user accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Create registers a new user account.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Email = models.NormalizeEmail(input.Email)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if !models.ValidEmail(input.Email) {
		return nil, apperrors.NewBadRequest("Email address is malformed")
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, apperrors.NewBadRequest("Unrecognised user status")
	}

	user := &models.User{
		Email:       input.Email,
		DisplayName: input.DisplayName,
		AvatarURL:   strings.TrimSpace(input.AvatarURL),
		Status:      input.Status,
	}

	if input.Settings != nil {
		doc, err := jsonDocument(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		user.Settings = doc
	}
	if input.Preferences != nil {
		doc, err := jsonDocument(input.Preferences)
		if err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		user.Preferences = doc
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		if isCheckViolation(err) {
			return nil, apperrors.NewBadRequest("User violates schema constraints")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// GetByID loads a user by identifier. Soft-deleted rows are not visible.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by address. The lookup is case-insensitive because
// addresses are stored lowercased.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", models.NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user by email: %w", err)
	}
	return &user, nil
}

// List returns users matching the filter, newest first, with the total row
// count before pagination.
func (s *UserService) List(ctx context.Context, input ListUsersInput) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)
	page, pageSize := normalisePagination(input.Page, input.PageSize)

	query := s.db.WithContext(ctx).Model(&models.User{})
	if input.IncludeDeleted {
		query = query.Unscoped()
	}
	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
	}
	if term := strings.TrimSpace(input.Query); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where("email LIKE ? OR LOWER(display_name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}
	return users, total, nil
}

// Update modifies user fields.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if input.Email != nil {
		email := models.NormalizeEmail(*input.Email)
		if !models.ValidEmail(email) {
			return nil, apperrors.NewBadRequest("Email address is malformed")
		}
		updates["email"] = email
	}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, apperrors.NewBadRequest("Display name must not be blank")
		}
		updates["display_name"] = name
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}
	if input.Settings != nil {
		doc, err := jsonDocument(input.Settings)
		if err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		updates["settings"] = doc
	}
	if input.Preferences != nil {
		doc, err := jsonDocument(input.Preferences)
		if err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		updates["preferences"] = doc
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewBadRequest("Unrecognised user status")
		}
		updates["status"] = *input.Status
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		if isCheckViolation(err) {
			return nil, apperrors.NewBadRequest("User violates schema constraints")
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	return s.GetByID(ctx, id)
}

// TouchLastActive stamps the user's last activity time.
func (s *UserService) TouchLastActive(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_active_at", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("user service: touch last active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete soft-deletes a user by setting its deleted_at timestamp.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(user).Error; err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}
	return nil
}

// Restore clears the soft-delete timestamp on a previously deleted user.
func (s *UserService) Restore(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Unscoped().First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if !user.DeletedAt.Valid {
		return nil, ErrUserNotDeleted
	}

	err = s.db.WithContext(ctx).Unscoped().Model(&user).Update("deleted_at", nil).Error
	if err != nil {
		return nil, fmt.Errorf("user service: restore user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// HardDelete physically removes a user. The engine cascade removes membership
// rows referencing the user; memberships the user merely invited survive with
// a detached inviter reference.
func (s *UserService) HardDelete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Unscoped().Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("user service: hard delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
