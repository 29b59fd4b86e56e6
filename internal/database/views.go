package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
)

// createSchemaViews (re)creates the read-model views: active_organizations
// and active_users expose rows that are both status=active and not soft
// deleted, with the same column shape as their base tables;
// organization_members denormalises membership, user and organization
// identity into one row. CREATE OR REPLACE VIEW is not portable across the
// supported engines, so each view is dropped first.
func createSchemaViews(db *gorm.DB) error {
	activeRows := func(table string) *gorm.DB {
		return db.Table(table).
			Select("*").
			Where("status = ?", models.StatusActive).
			Where("deleted_at IS NULL")
	}

	memberRows := db.Table("organization_memberships m").
		Select([]string{
			"m.id AS membership_id",
			"o.id AS organization_id",
			"o.name AS organization_name",
			"o.slug AS organization_slug",
			"u.id AS user_id",
			"u.email AS email",
			"u.display_name AS display_name",
			"m.role AS role",
			"m.joined_at AS joined_at",
		}).
		Joins("JOIN organizations o ON o.id = m.organization_id").
		Joins("JOIN users u ON u.id = m.user_id")

	views := []struct {
		name  string
		query *gorm.DB
	}{
		{models.ViewActiveOrganizations, activeRows("organizations")},
		{models.ViewActiveUsers, activeRows("users")},
		{models.ViewOrganizationMembers, memberRows},
	}

	for _, view := range views {
		if err := db.Migrator().DropView(view.name); err != nil {
			return fmt.Errorf("drop view %s: %w", view.name, err)
		}
		if err := db.Migrator().CreateView(view.name, gorm.ViewOption{Query: view.query}); err != nil {
			return fmt.Errorf("create view %s: %w", view.name, err)
		}
	}

	return nil
}
