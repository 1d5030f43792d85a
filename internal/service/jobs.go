package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a background ingest.
type Job struct {
	ID          string
	VideoID     string
	Status      JobStatus
	Stage       string
	Progress    int
	Total       int
	Result      *IngestResult
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// JobSnapshot is a point-in-time copy of a job.
type JobSnapshot struct {
	ID          string        `json:"id"`
	VideoID     string        `json:"video_id"`
	Status      JobStatus     `json:"status"`
	Stage       string        `json:"stage,omitempty"`
	Progress    int           `json:"progress"`
	Total       int           `json:"total"`
	Result      *IngestResult `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// JobManager runs ingests in the background and tracks their progress.
type JobManager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	ingest *IngestService
	sem    chan struct{}
	logger *slog.Logger
}

// NewJobManager creates a job manager running at most concurrency ingests at once.
func NewJobManager(ingest *IngestService, concurrency int, logger *slog.Logger) *JobManager {
	if concurrency <= 0 {
		concurrency = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		jobs:   make(map[string]*Job),
		ingest: ingest,
		sem:    make(chan struct{}, concurrency),
		logger: logger,
	}
}

// Start queues req and returns its job immediately. The ingest runs on ctx,
// which should outlive the request that started it.
func (m *JobManager) Start(ctx context.Context, req IngestRequest) *Job {
	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		VideoID:   req.Video.ID,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.logger.Info("job created", "job_id", job.ID, "video_id", req.Video.ID)

	go func() {
		m.sem <- struct{}{}
		defer func() { <-m.sem }()

		m.setRunning(job)
		result, err := m.ingest.Ingest(ctx, req, func(stage string, done, total int) {
			m.updateProgress(job, stage, done, total)
		})
		if err != nil {
			m.fail(job, err)
			return
		}
		m.complete(job, result)
	}()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// ListJobs returns all jobs, most recent first.
func (m *JobManager) ListJobs() []JobSnapshot {
	m.mu.RLock()
	jobs := make([]JobSnapshot, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.Snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b JobSnapshot) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return jobs
}

func (m *JobManager) setRunning(job *Job) {
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
}

func (m *JobManager) updateProgress(job *Job, stage string, done, total int) {
	job.mu.Lock()
	job.Stage = stage
	job.Progress = done
	job.Total = total
	job.mu.Unlock()
}

func (m *JobManager) complete(job *Job, result *IngestResult) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Result = result
	job.CompletedAt = &now
	job.mu.Unlock()

	m.logger.Info("job completed",
		"job_id", job.ID,
		"video_id", job.VideoID,
		"segments", result.Segments,
		"skipped", result.Skipped,
		"duration_ms", now.Sub(job.StartedAt).Milliseconds(),
	)
}

func (m *JobManager) fail(job *Job, err error) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	job.CompletedAt = &now
	job.mu.Unlock()

	m.logger.Error("job failed", "job_id", job.ID, "video_id", job.VideoID, "error", err)
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobSnapshot{
		ID:          j.ID,
		VideoID:     j.VideoID,
		Status:      j.Status,
		Stage:       j.Stage,
		Progress:    j.Progress,
		Total:       j.Total,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// Done reports whether the job has finished.
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
