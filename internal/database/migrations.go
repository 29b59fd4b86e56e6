package database

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
)

// SchemaVersion identifies the multi-tenant core schema this build manages.
const SchemaVersion = "001_multitenant_core"

type migrationStep struct {
	version     string
	description string
	run         func(tx *gorm.DB) error
}

// Steps are applied in version order. Each runs at most once and is recorded
// in the schema_migrations ledger inside the same transaction as its DDL.
var migrationSteps = []migrationStep{
	{
		version:     SchemaVersion,
		description: "organizations, users and membership foundation schema",
		run:         applyCoreSchema,
	},
}

// Migrate brings the schema up to the current version.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return fmt.Errorf("prepare migration ledger: %w", err)
	}

	steps := make([]migrationStep, len(migrationSteps))
	copy(steps, migrationSteps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })

	for _, step := range steps {
		applied, err := migrationApplied(db, step.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := step.run(tx); err != nil {
				return err
			}
			record := models.SchemaMigration{
				Version:     step.version,
				Description: step.description,
				AppliedAt:   time.Now().UTC(),
			}
			return tx.Create(&record).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", step.version, err)
		}
	}

	return nil
}

// AppliedVersions returns the ledger contents in version order.
func AppliedVersions(db *gorm.DB) ([]models.SchemaMigration, error) {
	var records []models.SchemaMigration
	if err := db.Order("version ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return records, nil
}

func migrationApplied(db *gorm.DB, version string) (bool, error) {
	var count int64
	err := db.Model(&models.SchemaMigration{}).Where("version = ?", version).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("read migration ledger: %w", err)
	}
	return count > 0, nil
}

func applyCoreSchema(tx *gorm.DB) error {
	if err := tx.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.OrganizationMembership{},
	); err != nil {
		return fmt.Errorf("migrate core tables: %w", err)
	}

	if err := installCheckConstraints(tx); err != nil {
		return fmt.Errorf("install check constraints: %w", err)
	}

	if err := installTouchTriggers(tx); err != nil {
		return fmt.Errorf("install update triggers: %w", err)
	}

	if err := createSchemaViews(tx); err != nil {
		return fmt.Errorf("create views: %w", err)
	}

	return nil
}

// SeedData inserts the baseline records a fresh installation expects: the
// default organization. Existing rows, soft-deleted ones included, are left
// untouched.
func SeedData(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	defaultOrg := models.Organization{
		Name:        "Default Organization",
		Slug:        "default",
		Description: "Created automatically for new installations",
		Status:      models.StatusActive,
	}

	err := db.Unscoped().
		Where(models.Organization{Slug: defaultOrg.Slug}).
		Attrs(defaultOrg).
		FirstOrCreate(&models.Organization{}).Error
	if err != nil {
		return fmt.Errorf("seed default organization: %w", err)
	}

	return nil
}
