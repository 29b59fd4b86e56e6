package models

import (
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coreplane/tenantd/pkg/slug"
)

// Organization is a tenant: every scoped resource hangs off one. The slug is
// the stable, URL-safe handle; uniqueness is unconditional and not relaxed by
// soft deletion.
type Organization struct {
	BaseModel

	Name        string         `gorm:"not null;check:chk_organizations_name_not_blank,trim(name) <> ''" json:"name"`
	Slug        string         `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings"`
	Status      Status         `gorm:"type:varchar(20);not null;default:active;check:chk_organizations_status,status IN ('active','inactive','pending','suspended','deleted')" json:"status"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Memberships []OrganizationMembership `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
}

// Normalize trims free-text fields and fills defaults prior to persistence.
func (o *Organization) Normalize() {
	o.Name = strings.TrimSpace(o.Name)
	o.Slug = strings.TrimSpace(o.Slug)
	o.Description = strings.TrimSpace(o.Description)
	if o.Status == "" {
		o.Status = StatusActive
	}
	if o.Settings == nil {
		o.Settings = datatypes.JSON("{}")
	}
}

// Validate enforces the write-time shape rules the portable CHECK constraints
// cannot express on every engine.
func (o *Organization) Validate() error {
	if o.Name == "" {
		return ErrNameRequired
	}
	if !slug.Valid(o.Slug) {
		return ErrSlugInvalid
	}
	if !o.Status.Valid() {
		return ErrStatusInvalid
	}
	return nil
}

// BeforeCreate generates the identifier and applies write-time validation.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if err := o.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	o.Normalize()
	return o.Validate()
}
