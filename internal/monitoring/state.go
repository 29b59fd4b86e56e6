package monitoring

import (
	"sync"
	"sync/atomic"
	"time"
)

type statStore struct {
	schemaVersion   atomic.Value // string
	schemaAppliedAt atomic.Int64 // unix nano

	directory        atomic.Value // directoryCounts
	directoryUpdated atomic.Int64 // unix nano

	maintenance sync.Map // string -> *maintenanceStats
}

type directoryCounts struct {
	organizations map[string]int64
	users         map[string]int64
	memberships   map[string]int64
}

func newStatStore() *statStore {
	store := &statStore{}
	store.schemaVersion.Store("")
	store.directory.Store(directoryCounts{})
	return store
}

func (s *statStore) setSchema(version string, appliedAt time.Time) {
	s.schemaVersion.Store(version)
	s.schemaAppliedAt.Store(appliedAt.UnixNano())
}

func (s *statStore) setDirectory(counts directoryCounts) {
	s.directory.Store(counts)
	s.directoryUpdated.Store(time.Now().UnixNano())
}

func (s *statStore) cloneMaintenance() []MaintenanceJobSummary {
	summaries := []MaintenanceJobSummary{}
	s.maintenance.Range(func(key, value any) bool {
		job := key.(string)
		stats := value.(*maintenanceStats)
		summaries = append(summaries, stats.snapshot(job))
		return true
	})
	return summaries
}

func (s *statStore) summary() Summary {
	version, _ := s.schemaVersion.Load().(string)
	counts, _ := s.directory.Load().(directoryCounts)

	return Summary{
		GeneratedAt: time.Now(),
		Schema: SchemaSummary{
			Version:   version,
			AppliedAt: time.Unix(0, s.schemaAppliedAt.Load()),
		},
		Directory: DirectorySummary{
			Organizations: cloneCounts(counts.organizations),
			Users:         cloneCounts(counts.users),
			Memberships:   cloneCounts(counts.memberships),
			UpdatedAt:     time.Unix(0, s.directoryUpdated.Load()),
		},
		Maintenance: MaintenanceSummary{
			Jobs: s.cloneMaintenance(),
		},
	}
}

func (s *statStore) maintenanceEntry(job string) *maintenanceStats {
	value, ok := s.maintenance.Load(job)
	if ok {
		return value.(*maintenanceStats)
	}
	stats := &maintenanceStats{}
	actual, _ := s.maintenance.LoadOrStore(job, stats)
	return actual.(*maintenanceStats)
}

func cloneCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}

type maintenanceStats struct {
	lastStatus           atomic.Value // string
	lastError            atomic.Value // string
	lastRun              atomic.Int64 // unix nano
	lastDuration         atomic.Int64 // nanoseconds
	consecutiveFailures  atomic.Uint64
	totalRuns            atomic.Uint64
	lastSuccessfulRun    atomic.Int64
	consecutiveSuccesses atomic.Uint64
}

func (m *maintenanceStats) snapshot(job string) MaintenanceJobSummary {
	status, _ := m.lastStatus.Load().(string)
	errMsg, _ := m.lastError.Load().(string)
	lastRun := time.Unix(0, m.lastRun.Load())
	lastSuccess := time.Unix(0, m.lastSuccessfulRun.Load())

	return MaintenanceJobSummary{
		Job:                 job,
		LastStatus:          status,
		LastRunAt:           lastRun,
		LastDuration:        time.Duration(m.lastDuration.Load()),
		LastError:           errMsg,
		ConsecutiveFailures: m.consecutiveFailures.Load(),
		ConsecutiveSuccess:  m.consecutiveSuccesses.Load(),
		LastSuccessAt:       lastSuccess,
		TotalRuns:           m.totalRuns.Load(),
	}
}

func (m *maintenanceStats) record(result, message string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	now := time.Now()
	m.lastStatus.Store(result)
	m.lastError.Store(message)
	m.lastRun.Store(now.UnixNano())
	m.lastDuration.Store(int64(duration))
	m.totalRuns.Add(1)

	switch result {
	case "success":
		m.consecutiveFailures.Store(0)
		m.consecutiveSuccesses.Add(1)
		m.lastSuccessfulRun.Store(now.UnixNano())
	default:
		m.consecutiveFailures.Add(1)
		m.consecutiveSuccesses.Store(0)
	}
}
