package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/re-cinq/fleetd/internal/fileutil"
)

// JobStatus is the terminal state of a job within a pipeline run.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped"
)

// JobMetrics records one job's lifecycle and resource usage within a run.
type JobMetrics struct {
	Name       string     `json:"name"`
	Status     JobStatus  `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DurationMs int64      `json:"duration_ms"`
	CPUUsage   float64    `json:"cpu_usage"`
	MemUsageKB uint64     `json:"mem_usage_kb"`
}

// ExecMetrics is one full pipeline run's metrics record, persisted as one
// NDJSON line, including mean/peak CPU and memory usage across all jobs.
type ExecMetrics struct {
	ProjectID   string                 `json:"project_id"`
	ProjectName string                 `json:"project_name"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
	DurationMs  int64                  `json:"duration_ms"`
	CPUUsage    float64                `json:"cpu_usage"` // mean, percent
	MemUsageKB  uint64                 `json:"mem_usage_kb"`
	MemUsage    float64                `json:"mem_usage"` // mean, percent of total system memory
	MaxCPU      float64                `json:"max_cpu"`
	MaxMem      float64                `json:"max_mem"`
	Jobs        map[string]*JobMetrics `json:"jobs"`

	mu sync.Mutex // guards Jobs and MaxCPU while a batch's jobs run concurrently
}

// NewExecMetrics starts a metrics record for a pipeline run.
func NewExecMetrics(projectID, projectName string) *ExecMetrics {
	return &ExecMetrics{
		ProjectID:   projectID,
		ProjectName: projectName,
		StartedAt:   time.Now(),
		Jobs:        make(map[string]*JobMetrics),
	}
}

// JobStarted records the start of a job.
func (m *ExecMetrics) JobStarted(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.Jobs[name] = &JobMetrics{Name: name, Status: JobRunning, StartedAt: &now}
}

// JobFinished records the end of a job with its resource samples.
func (m *ExecMetrics) JobFinished(name string, status JobStatus, cpu float64, memKB uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	jm, ok := m.Jobs[name]
	if !ok {
		jm = &JobMetrics{Name: name}
		m.Jobs[name] = jm
	}
	now := time.Now()
	jm.Status = status
	jm.FinishedAt = &now
	jm.CPUUsage = cpu
	jm.MemUsageKB = memKB
	if jm.StartedAt != nil {
		jm.DurationMs = now.Sub(*jm.StartedAt).Milliseconds()
	}
	if cpu > m.MaxCPU {
		m.MaxCPU = cpu
	}
}

// Finalize computes the run's aggregate duration and mean/peak resource
// usage across all recorded jobs.
func (m *ExecMetrics) Finalize(totalMemKB uint64) {
	m.FinishedAt = time.Now()
	m.DurationMs = m.FinishedAt.Sub(m.StartedAt).Milliseconds()

	var sumCPU float64
	var sumMemKB uint64
	var n int
	for _, jm := range m.Jobs {
		sumCPU += jm.CPUUsage
		sumMemKB += jm.MemUsageKB
		if jm.MemUsageKB > 0 && totalMemKB > 0 {
			pct := float64(jm.MemUsageKB) / float64(totalMemKB) * 100
			if pct > m.MaxMem {
				m.MaxMem = pct
			}
		}
		n++
	}
	if n > 0 {
		m.CPUUsage = sumCPU / float64(n)
		m.MemUsageKB = sumMemKB / uint64(n)
		if totalMemKB > 0 {
			m.MemUsage = float64(m.MemUsageKB) / float64(totalMemKB) * 100
		}
	}
}

// EnsureMetricsDir creates the metrics directory, returning its path.
func EnsureMetricsDir() (string, error) {
	dir := fileutil.MetricsDir()
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("creating metrics dir: %w", err)
	}
	return dir, nil
}

// Save appends the run as one JSON line to the project's NDJSON metrics
// file. The file is opened in append mode and never truncated or
// rewritten, so it accumulates one line per run.
func (m *ExecMetrics) Save() error {
	if _, err := EnsureMetricsDir(); err != nil {
		return err
	}
	path := fileutil.MetricsPath(m.ProjectID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening metrics file %s: %w", path, err)
	}
	defer f.Close()

	line, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing metrics line: %w", err)
	}
	return f.Sync()
}

// RemoveByProjectID deletes a project's metrics file, used by `fleet rm`.
func RemoveByProjectID(projectID string) error {
	err := os.Remove(fileutil.MetricsPath(projectID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
