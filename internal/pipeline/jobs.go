package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// JobStatus represents the state of an asynchronous ranking job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one ranking request submitted over the API.
type Job struct {
	mu sync.Mutex

	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filenames []string  `json:"filenames"`
	Query     doctree.PersonaQuery
	TopK      int

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	sources []Source
	result  *RankResult
	errors  []string
}

// NewJob creates a queued job for sources.
func NewJob(id string, sources []Source, query doctree.PersonaQuery, topK int) *Job {
	now := time.Now()
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.DocumentID()
	}
	return &Job{
		ID:        id,
		Status:    StatusQueued,
		Phase:     "queued",
		Filenames: names,
		Query:     query,
		TopK:      topK,
		CreatedAt: now,
		UpdatedAt: now,
		sources:   sources,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Sources returns the documents to rank.
func (j *Job) Sources() []Source {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sources
}

// Finish stores the run result, releases the document bytes and sets the final status.
func (j *Job) Finish(res *RankResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.sources = nil
	for _, s := range res.Skipped {
		j.errors = append(j.errors, fmt.Sprintf("%s: %s: %s", s.Document, s.Kind, s.Reason))
	}
	switch res.Status() {
	case RunComplete:
		j.Status = StatusCompleted
	case RunNoValidInput:
		j.Status = StatusFailed
	default:
		j.Status = StatusPartial
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Result returns the ranking once the job is done, or nil.
func (j *Job) Result() *RankResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filenames []string  `json:"filenames"`
	Persona   string    `json:"persona"`
	Task      string    `json:"job_to_be_done"`
	Errors    []string  `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	names := make([]string, len(j.Filenames))
	copy(names, j.Filenames)
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filenames: names,
		Persona:   j.Query.Persona,
		Task:      j.Query.Job,
		Errors:    errs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
