package monitoring

import "time"

// Summary surfaces aggregated monitoring data for the operational endpoints.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Schema      SchemaSummary      `json:"schema"`
	Directory   DirectorySummary   `json:"directory"`
	Maintenance MaintenanceSummary `json:"maintenance"`
}

// SchemaSummary reports the applied schema version.
type SchemaSummary struct {
	Version   string    `json:"version"`
	AppliedAt time.Time `json:"applied_at"`
}

// DirectorySummary mirrors the entity gauges: row counts grouped by status
// and role, as of the last stats refresh.
type DirectorySummary struct {
	Organizations map[string]int64 `json:"organizations"`
	Users         map[string]int64 `json:"users"`
	Memberships   map[string]int64 `json:"memberships"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot returns a point-in-time summary from the current module when configured.
func Snapshot() Summary {
	if module := ensureModule(); module != nil && module.stats != nil {
		return module.stats.summary()
	}
	return Summary{GeneratedAt: time.Now()}
}
