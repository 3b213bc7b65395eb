package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/jobhive/jobhive/pkg/metrics"
)

// JobState is the last known outcome of a background job.
type JobState struct {
	Job                 string        `json:"job"`
	TotalRuns           uint64        `json:"total_runs"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
}

// JobTracker records background job runs for the maintenance health check.
// It is safe for concurrent use.
type JobTracker struct {
	mu   sync.RWMutex
	jobs map[string]*JobState
	now  func() time.Time
}

// NewJobTracker returns an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*JobState), now: time.Now}
}

// Register makes a job visible before its first run so a check can report it as pending.
func (t *JobTracker) Register(job string) {
	if t == nil || job == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[job]; !ok {
		t.jobs[job] = &JobState{Job: job}
	}
}

// RecordRun stores the outcome of one run.
func (t *JobTracker) RecordRun(job string, err error, duration time.Duration) {
	if t == nil || job == "" {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.jobs[job]
	if !ok {
		state = &JobState{Job: job}
		t.jobs[job] = state
	}
	state.TotalRuns++
	state.LastRunAt = t.now()
	state.LastDuration = duration
	if err != nil {
		state.ConsecutiveFailures++
		state.LastError = err.Error()
		return
	}
	state.ConsecutiveFailures = 0
	state.LastError = ""
}

// Snapshot returns a copy of every job state ordered by name.
func (t *JobTracker) Snapshot() []JobState {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]JobState, 0, len(t.jobs))
	for _, state := range t.jobs {
		out = append(out, *state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}
