package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MySQL error numbers for the constraint classes the schema can raise.
const (
	mysqlDuplicateEntry    = 1062
	mysqlFKDeleteViolation = 1451
	mysqlFKInsertViolation = 1452
	mysqlCheckViolation    = 3819
)

// isUniqueViolation detects uniqueness constraint failures across the
// supported database vendors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == mysqlDuplicateEntry {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// isForeignKeyViolation detects referential integrity failures: inserting a
// row that references a missing parent, or deleting a parent that is still
// referenced without a cascade.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil &&
		(myErr.Number == mysqlFKInsertViolation || myErr.Number == mysqlFKDeleteViolation) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// isCheckViolation detects CHECK constraint failures: malformed slug or
// email, blank name, enum value outside the closed set.
func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == pgerrcode.CheckViolation {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == mysqlCheckViolation {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "check constraint")
}
