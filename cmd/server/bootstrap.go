package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/api"
	"github.com/coreplane/tenantd/internal/app"
	"github.com/coreplane/tenantd/internal/app/maintenance"
	"github.com/coreplane/tenantd/internal/database"
	"github.com/coreplane/tenantd/internal/monitoring"
	"github.com/coreplane/tenantd/internal/monitoring/checks"
	"github.com/coreplane/tenantd/internal/services"
	"github.com/coreplane/tenantd/pkg/logger"
)

const (
	databaseCheckTimeout = 2 * time.Second
	maintenanceMaxAge    = 6 * time.Hour
)

// runtimeStack holds the wired components the server runs with.
type runtimeStack struct {
	DB      *gorm.DB
	Monitor *monitoring.Module
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime provisions the schema and assembles the monitoring module,
// maintenance scheduler and HTTP router.
func bootstrapRuntime(cfg *app.Config) (*runtimeStack, error) {
	db, err := initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	monitor, err := monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(monitor)

	registerHealthChecks(monitor, db)
	publishSchemaVersion(db)

	directory, err := services.NewDirectoryService(db)
	if err != nil {
		return nil, fmt.Errorf("initialise directory service: %w", err)
	}

	cleaner := buildCleaner(cfg, db, directory)

	router, err := api.NewRouter(db, cfg, monitor)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	return &runtimeStack{
		DB:      db,
		Monitor: monitor,
		Cleaner: cleaner,
		Router:  router,
	}, nil
}

func registerHealthChecks(monitor *monitoring.Module, db *gorm.DB) {
	health := monitor.Health()
	health.RegisterLiveness(checks.Database(db, databaseCheckTimeout))
	health.RegisterReadiness(checks.Database(db, databaseCheckTimeout))
	health.RegisterReadiness(checks.Schema(db, databaseCheckTimeout))
	health.RegisterReadiness(checks.Maintenance(maintenanceMaxAge))
}

// publishSchemaVersion surfaces the applied ledger entry on the schema gauge.
func publishSchemaVersion(db *gorm.DB) {
	applied, err := database.AppliedVersions(db)
	if err != nil {
		logger.WithComponent("bootstrap").Warn("read schema ledger failed", zap.Error(err))
		return
	}
	for _, migration := range applied {
		if migration.Version == database.SchemaVersion {
			monitoring.SetSchemaVersion(migration.Version, migration.AppliedAt)
			return
		}
	}
}

func buildCleaner(cfg *app.Config, db *gorm.DB, directory *services.DirectoryService) *maintenance.Cleaner {
	opts := []maintenance.Option{
		maintenance.WithStatsSchedule(cfg.Maintenance.StatsSchedule),
	}
	if cfg.Maintenance.Purge.Enabled {
		opts = append(opts,
			maintenance.WithPurge(cfg.Maintenance.Purge.RetentionDays),
			maintenance.WithPurgeSchedule(cfg.Maintenance.Purge.Schedule),
		)
	}
	return maintenance.NewCleaner(db, directory, opts...)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.MigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log := logger.WithComponent("database")
	log.Info("database ready", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:  strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:    strings.TrimSpace(cfg.Database.Path),
		DSN:     strings.TrimSpace(cfg.Database.DSN),
		Options: cfg.Database.Options,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
