package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/coreplane/tenantd/internal/models"
	"github.com/coreplane/tenantd/internal/monitoring"
	"github.com/coreplane/tenantd/internal/services"
	"github.com/coreplane/tenantd/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultStatsSpec     = "@every 1m"
	defaultPurgeSpec     = "@daily"

	statsJobName = "directory_stats"
	purgeJobName = "tombstone_purge"
)

// Cleaner coordinates background upkeep: refreshing the directory gauges and,
// when explicitly enabled, purging tombstoned rows past their retention
// window. Purging is the only path that turns a soft delete into a physical
// one outside an operator request.
type Cleaner struct {
	db        *gorm.DB
	directory *services.DirectoryService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger

	statsSchedule string
	purgeSchedule string
	purgeEnabled  bool
	retentionDays int
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithStatsSchedule overrides the cron specification for the stats refresh.
func WithStatsSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.statsSchedule = spec
		}
	}
}

// WithPurge enables the tombstone purge job with the given retention window.
func WithPurge(retentionDays int) Option {
	return func(cleaner *Cleaner) {
		cleaner.purgeEnabled = true
		if retentionDays > 0 {
			cleaner.retentionDays = retentionDays
		}
	}
}

// WithPurgeSchedule overrides the cron specification for the purge job.
func WithPurgeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.purgeSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. The purge job stays
// off unless WithPurge is supplied.
func NewCleaner(db *gorm.DB, directory *services.DirectoryService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:            db,
		directory:     directory,
		now:           time.Now,
		retentionDays: defaultRetentionDays,
		statsSchedule: defaultStatsSpec,
		purgeSchedule: defaultPurgeSpec,
		log:           logger.WithComponent("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the upkeep jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.directory != nil {
		if _, err := c.cron.AddFunc(c.statsSchedule, func() {
			if err := c.refreshStats(context.Background()); err != nil {
				c.log.Warn("stats refresh failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil && c.purgeEnabled && c.retentionDays > 0 {
		if _, err := c.cron.AddFunc(c.purgeSchedule, func() {
			if _, err := c.purgeTombstones(context.Background()); err != nil {
				c.log.Warn("tombstone purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the configured upkeep routines sequentially. Used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	ctx = ensureContext(ctx)

	var errs error

	if c.directory != nil {
		if err := c.refreshStats(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil && c.purgeEnabled && c.retentionDays > 0 {
		if _, err := c.purgeTombstones(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// refreshStats pushes fresh entity counts into the monitoring gauges. Every
// enum member is reported, zeros included, so gauges never go stale.
func (c *Cleaner) refreshStats(ctx context.Context) error {
	start := time.Now()

	snapshot, err := c.directory.Snapshot(ctx)
	if err != nil {
		monitoring.RecordMaintenanceRun(statsJobName, "failure", err.Error(), time.Since(start))
		return fmt.Errorf("refresh stats: %w", err)
	}

	organizations := make(map[string]int64, len(models.Statuses()))
	users := make(map[string]int64, len(models.Statuses()))
	for _, status := range models.Statuses() {
		organizations[status.String()] = snapshot.OrganizationsByStatus[status]
		users[status.String()] = snapshot.UsersByStatus[status]
	}

	memberships := make(map[string]int64, len(models.MembershipRoles()))
	for _, role := range models.MembershipRoles() {
		memberships[role.String()] = snapshot.MembershipsByRole[role]
	}

	monitoring.SetDirectoryCounts(organizations, users, memberships)
	monitoring.RecordMaintenanceRun(statsJobName, "success", "", time.Since(start))
	return nil
}

func (c *Cleaner) purgeTombstones(ctx context.Context) (PurgeStats, error) {
	start := time.Now()
	cutoff := c.now().AddDate(0, 0, -c.retentionDays)

	stats, err := PurgeTombstones(ctx, c.db, cutoff)
	if err != nil {
		monitoring.RecordMaintenanceRun(purgeJobName, "failure", err.Error(), time.Since(start))
		return stats, err
	}

	if stats.Organizations > 0 || stats.Users > 0 {
		c.log.Info("purged tombstoned rows",
			zap.Int64("organizations", stats.Organizations),
			zap.Int64("users", stats.Users),
		)
	}

	monitoring.RecordMaintenanceRun(purgeJobName, "success", "", time.Since(start))
	return stats, nil
}

// PurgeStats captures the number of rows physically removed per table.
// Memberships are not counted: the engine cascade removes them alongside
// their parents.
type PurgeStats struct {
	Organizations int64
	Users         int64
}

// PurgeTombstones hard-deletes organizations and users whose soft-delete
// timestamp predates the cutoff. The cascades defined in the schema remove
// dependent membership rows in the same statements.
func PurgeTombstones(ctx context.Context, db *gorm.DB, cutoff time.Time) (PurgeStats, error) {
	if db == nil {
		return PurgeStats{}, errors.New("purge tombstones: db is required")
	}
	ctx = ensureContext(ctx)

	stats := PurgeStats{}

	if result := db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.Organization{}); result.Error != nil {
		return stats, fmt.Errorf("purge tombstones: organizations: %w", result.Error)
	} else {
		stats.Organizations = result.RowsAffected
	}

	if result := db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.User{}); result.Error != nil {
		return stats, fmt.Errorf("purge tombstones: users: %w", result.Error)
	} else {
		stats.Users = result.RowsAffected
	}

	return stats, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
