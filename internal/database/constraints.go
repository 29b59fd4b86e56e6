package database

import (
	"fmt"

	"gorm.io/gorm"
)

type checkConstraint struct {
	table string
	name  string
	expr  map[string]string // keyed by dialect
}

// Format rules that need regular expressions. The portable LIKE/IN/trim
// checks live in the model tags and apply on every engine; these tighten
// postgres and mysql to the exact patterns. SQLite cannot ALTER TABLE ADD
// CONSTRAINT, so there the patterns are enforced at write time instead.
var regexChecks = []checkConstraint{
	{
		table: "organizations",
		name:  "chk_organizations_slug_format",
		expr: map[string]string{
			"postgres": `slug ~ '^[a-z0-9-]+$'`,
			"mysql":    `slug REGEXP '^[a-z0-9-]+$'`,
		},
	},
	{
		table: "users",
		name:  "chk_users_email_format",
		expr: map[string]string{
			"postgres": `email ~ '^[^@[:space:]]+@[^@[:space:]]+[.][^@[:space:]]+$'`,
			"mysql":    `email REGEXP '^[^@[:space:]]+@[^@[:space:]]+[.][^@[:space:]]+$'`,
		},
	},
}

func installCheckConstraints(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	if dialect != "postgres" && dialect != "mysql" {
		return nil
	}

	for _, chk := range regexChecks {
		expr, ok := chk.expr[dialect]
		if !ok {
			continue
		}

		exists, err := hasCheckConstraint(db, dialect, chk.table, chk.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		ddl := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", chk.table, chk.name, expr)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("add %s: %w", chk.name, err)
		}
	}

	return nil
}

func hasCheckConstraint(db *gorm.DB, dialect, table, name string) (bool, error) {
	var count int64
	switch dialect {
	case "postgres":
		err := db.Raw(
			"SELECT count(*) FROM pg_constraint WHERE conname = ?",
			name,
		).Scan(&count).Error
		return count > 0, err
	case "mysql":
		err := db.Raw(
			"SELECT count(*) FROM information_schema.table_constraints WHERE constraint_schema = DATABASE() AND table_name = ? AND constraint_name = ?",
			table, name,
		).Scan(&count).Error
		return count > 0, err
	}
	return false, nil
}
