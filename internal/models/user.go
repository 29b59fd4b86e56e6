package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a person-level account. Users exist independently of organizations
// and join them through OrganizationMembership rows.
type User struct {
	BaseModel

	Email       string `gorm:"uniqueIndex;size:254;not null;check:chk_users_email_shape,email LIKE '%_@_%._%'" json:"email"`
	DisplayName string `gorm:"not null;check:chk_users_display_name_not_blank,trim(display_name) <> ''" json:"display_name"`
	AvatarURL   string `json:"avatar_url"`

	Settings    datatypes.JSON `json:"settings"`
	Preferences datatypes.JSON `json:"preferences"`

	Status       Status     `gorm:"type:varchar(20);not null;default:active;check:chk_users_status,status IN ('active','inactive','pending','suspended','deleted')" json:"status"`
	LastActiveAt *time.Time `json:"last_active_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Memberships []OrganizationMembership `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
}

// Normalize canonicalises the email address and fills defaults prior to
// persistence. Addresses are stored lowercased so uniqueness is
// case-insensitive in practice.
func (u *User) Normalize() {
	u.Email = NormalizeEmail(u.Email)
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	u.AvatarURL = strings.TrimSpace(u.AvatarURL)
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.Settings == nil {
		u.Settings = datatypes.JSON("{}")
	}
	if u.Preferences == nil {
		u.Preferences = datatypes.JSON("{}")
	}
}

// Validate enforces the write-time shape rules.
func (u *User) Validate() error {
	if !ValidEmail(u.Email) {
		return ErrEmailInvalid
	}
	if u.DisplayName == "" {
		return ErrDisplayNameRequired
	}
	if !u.Status.Valid() {
		return ErrStatusInvalid
	}
	return nil
}

// BeforeCreate generates the identifier and applies write-time validation.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if err := u.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	u.Normalize()
	return u.Validate()
}
