package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/momentsolve/internal/store"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig is an alias to avoid duplication with the store's problem copy
type JobConfig = store.ProblemConfig

// Job represents one relaxation job
type Job struct {
	ID           string      `json:"id"`
	State        JobState    `json:"state"`
	Config       JobConfig   `json:"config"`
	Round        int         `json:"round"`
	Order        int         `json:"order"`
	Rank         int         `json:"rank"`
	Objective    float64     `json:"objective"`
	SolverStatus string      `json:"solverStatus,omitempty"`
	Converged    bool        `json:"converged"`
	Atoms        [][]float64 `json:"atoms,omitempty"`
	Weights      []float64   `json:"weights,omitempty"`
	Residual     float64     `json:"residual,omitempty"`
	StartTime    time.Time   `json:"startTime"`
	EndTime      *time.Time  `json:"endTime,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// snapshot returns a copy that is safe to read or JSON-encode outside
// the manager's lock. Fields the worker overwrites between rounds are
// deep-copied; Config is written once at creation and shared.
func (j *Job) snapshot() *Job {
	c := *j
	if j.Atoms != nil {
		c.Atoms = make([][]float64, len(j.Atoms))
		for i, a := range j.Atoms {
			c.Atoms[i] = append([]float64(nil), a...)
		}
	}
	if j.Weights != nil {
		c.Weights = append([]float64(nil), j.Weights...)
	}
	if j.EndTime != nil {
		end := *j.EndTime
		c.EndTime = &end
	}
	return &c
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]func()
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]func()),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given problem definition
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob retrieves a snapshot of a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// ListJobs returns snapshots of all jobs
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// RegisterCancel stores the cancellation hook for a running job.
// Cancellation takes effect between relaxation rounds; a round's solver
// call is atomic.
func (jm *JobManager) RegisterCancel(id string, cancel func()) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[id] = cancel
}

// Cancel requests cancellation of a running job
func (jm *JobManager) Cancel(id string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cancel, ok := jm.cancels[id]
	if ok {
		cancel()
		delete(jm.cancels, id)
	}
	return ok
}

// GetRunningJobs returns snapshots of all jobs in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.snapshot())
		}
	}
	return runningJobs
}
