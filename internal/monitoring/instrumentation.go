package monitoring

import (
	"strings"
	"time"
)

// SetSchemaVersion publishes the applied schema version to the info gauge and
// the summary. Called once after migrations run.
func SetSchemaVersion(version string, appliedAt time.Time) {
	module := ensureModule()
	if module == nil {
		return
	}
	version = strings.TrimSpace(version)
	if version == "" {
		return
	}
	module.metrics.schemaInfo.Reset()
	module.metrics.schemaInfo.WithLabelValues(version).Set(1)
	module.stats.setSchema(version, appliedAt)
}

// SetDirectoryCounts replaces the entity gauges with a fresh set of counts.
// Callers supply complete maps (every known status and role, zeros included)
// so stale label values cannot linger.
func SetDirectoryCounts(organizations, users, memberships map[string]int64) {
	module := ensureModule()
	if module == nil {
		return
	}

	module.metrics.organizationsByStatus.Reset()
	for status, count := range organizations {
		module.metrics.organizationsByStatus.WithLabelValues(normalizeLabel(status)).Set(float64(count))
	}

	module.metrics.usersByStatus.Reset()
	for status, count := range users {
		module.metrics.usersByStatus.WithLabelValues(normalizeLabel(status)).Set(float64(count))
	}

	module.metrics.membershipsByRole.Reset()
	for role, count := range memberships {
		module.metrics.membershipsByRole.WithLabelValues(normalizeLabel(role)).Set(float64(count))
	}

	module.stats.setDirectory(directoryCounts{
		organizations: cloneCounts(organizations),
		users:         cloneCounts(users),
		memberships:   cloneCounts(memberships),
	})
}

// ObserveAPILatency captures the HTTP request latency for the supplied route.
func ObserveAPILatency(method, path, status string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = "UNKNOWN"
	}
	path = sanitizePath(path)
	if path == "" {
		path = "unknown"
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	module.metrics.apiLatency.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, duration time.Duration) {
	module := ensureModule()
	if module == nil {
		return
	}
	jobID := normalizeLabel(job)
	result = normalizeLabel(result)
	module.metrics.maintenanceRuns.WithLabelValues(jobID, result).Inc()
	observeDuration(module.metrics.maintenanceDuration.WithLabelValues(jobID), duration)
	if result == "success" {
		module.metrics.maintenanceLastRun.WithLabelValues(jobID).Set(float64(time.Now().Unix()))
	}
	stats := module.stats.maintenanceEntry(jobID)
	stats.record(result, strings.TrimSpace(message), duration)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

func sanitizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if path == "/" {
		return "root"
	}
	path = strings.Trim(path, "/")
	path = strings.ReplaceAll(path, " ", "_")
	if path == "" {
		return "root"
	}
	return path
}
