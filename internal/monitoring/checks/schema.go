package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/database"
	"github.com/coreplane/tenantd/internal/models"
	"github.com/coreplane/tenantd/internal/monitoring"
)

// Schema returns a readiness probe that verifies the core schema version has
// been recorded in the migration ledger. A database that pings but was never
// migrated is not ready to serve.
func Schema(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("schema", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "database not configured",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		var count int64
		err := db.WithContext(probeCtx).
			Model(&models.SchemaMigration{}).
			Where("version = ?", database.SchemaVersion).
			Count(&count).Error
		if err != nil {
			return monitoring.ResultFromError("schema", err, time.Since(start))
		}

		if count == 0 {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDown,
				Details:  "schema version " + database.SchemaVersion + " not applied",
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Duration: time.Since(start),
		}
	})
}
