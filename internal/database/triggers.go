package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Tables whose updated_at column is maintained by a database trigger. The
// trigger overwrites the column with the transaction's current time on every
// UPDATE, including statements that omit the column or supply their own
// value, so writers outside the ORM cannot forge or skip it.
var touchedTables = []string{"organizations", "users", "organization_memberships"}

func installTouchTriggers(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite":
		return installSQLiteTouchTriggers(db)
	case "postgres":
		return installPostgresTouchTriggers(db)
	case "mysql":
		return installMySQLTouchTriggers(db)
	default:
		return fmt.Errorf("unsupported dialect %q for update triggers", db.Dialector.Name())
	}
}

// SQLite has no BEFORE UPDATE column assignment, so the trigger re-updates
// the row after the fact. recursive_triggers is off by default, keeping the
// inner UPDATE from re-firing the trigger.
func installSQLiteTouchTriggers(db *gorm.DB) error {
	for _, table := range touchedTables {
		ddl := fmt.Sprintf(`
CREATE TRIGGER IF NOT EXISTS trg_%[1]s_touch_updated
AFTER UPDATE ON %[1]s
FOR EACH ROW
BEGIN
    UPDATE %[1]s SET updated_at = strftime('%%Y-%%m-%%d %%H:%%M:%%f', 'now') WHERE id = NEW.id;
END`, table)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create sqlite trigger for %s: %w", table, err)
		}
	}
	return nil
}

const postgresTouchFunction = `
CREATE OR REPLACE FUNCTION touch_updated_at() RETURNS trigger AS $func$
BEGIN
    NEW.updated_at = now();
    RETURN NEW;
END;
$func$ LANGUAGE plpgsql`

func installPostgresTouchTriggers(db *gorm.DB) error {
	if err := db.Exec(postgresTouchFunction).Error; err != nil {
		return fmt.Errorf("create touch function: %w", err)
	}

	for _, table := range touchedTables {
		drop := fmt.Sprintf("DROP TRIGGER IF EXISTS trg_%[1]s_touch_updated ON %[1]s", table)
		if err := db.Exec(drop).Error; err != nil {
			return fmt.Errorf("drop postgres trigger for %s: %w", table, err)
		}

		ddl := fmt.Sprintf(
			"CREATE TRIGGER trg_%[1]s_touch_updated BEFORE UPDATE ON %[1]s FOR EACH ROW EXECUTE FUNCTION touch_updated_at()",
			table,
		)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create postgres trigger for %s: %w", table, err)
		}
	}
	return nil
}

func installMySQLTouchTriggers(db *gorm.DB) error {
	for _, table := range touchedTables {
		drop := fmt.Sprintf("DROP TRIGGER IF EXISTS trg_%s_touch_updated", table)
		if err := db.Exec(drop).Error; err != nil {
			return fmt.Errorf("drop mysql trigger for %s: %w", table, err)
		}

		ddl := fmt.Sprintf(
			"CREATE TRIGGER trg_%[1]s_touch_updated BEFORE UPDATE ON %[1]s FOR EACH ROW SET NEW.updated_at = CURRENT_TIMESTAMP(6)",
			table,
		)
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create mysql trigger for %s: %w", table, err)
		}
	}
	return nil
}
