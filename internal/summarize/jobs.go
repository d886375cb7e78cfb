package summarize

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an asynchronous summarization.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusSummarizing JobStatus = "summarizing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress counts sections as the pipeline reports them.
type Progress struct {
	TotalSections int `json:"total_sections"`
	Processed     int `json:"sections_processed"`
	Summarized    int `json:"sections_summarized"`
}

// Job is one uploaded document moving through the queue. The exported
// fields are fixed at creation; everything else changes under mu and is
// read through Snapshot.
type Job struct {
	ID          string
	Filename    string
	Query       string
	ContentHash string
	CreatedAt   time.Time

	mu        sync.Mutex
	status    JobStatus
	phase     string
	title     string
	progress  Progress
	result    string
	errMsg    string
	updatedAt time.Time
	upload    []byte
}

// NewJob creates a queued job that holds data until it finishes.
func NewJob(filename, query string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Filename:    filename,
		Query:       query,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		status:      StatusQueued,
		phase:       "queued",
		updatedAt:   now,
		upload:      data,
	}
}

// update applies fn under the job lock and bumps the update time.
func (j *Job) update(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn()
	j.updatedAt = time.Now()
}

func (j *Job) SetStatus(status JobStatus, phase string) {
	j.update(func() { j.status, j.phase = status, phase })
}

func (j *Job) SetTitle(title string) {
	j.update(func() { j.title = title })
}

func (j *Job) SetTotalSections(n int) {
	j.update(func() { j.progress.TotalSections = n })
}

// SectionDone counts one finished section, summarized or skipped.
func (j *Job) SectionDone(summarized bool) {
	j.update(func() {
		j.progress.Processed++
		if summarized {
			j.progress.Summarized++
		}
	})
}

// Complete stores the result and drops the upload.
func (j *Job) Complete(result string) {
	j.update(func() {
		j.status, j.phase = StatusCompleted, "done"
		j.result = result
		j.upload = nil
	})
}

// Fail records a client-safe message and drops the upload.
func (j *Job) Fail(phase, msg string) {
	j.update(func() {
		j.status, j.phase = StatusFailed, phase
		j.errMsg = msg
		j.upload = nil
	})
}

// FileData returns the uploaded bytes, or nil once the job has finished.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.upload
}

// JobSnapshot is the JSON view of a job served to pollers.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	Response    string    `json:"response,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.status,
		Phase:       j.phase,
		Filename:    j.Filename,
		Title:       j.title,
		ContentHash: j.ContentHash,
		Progress:    j.progress,
		Response:    j.result,
		Error:       j.errMsg,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.updatedAt,
	}
}

// expired reports whether a finished job has been idle past ttl. Unfinished
// jobs never expire.
func (j *Job) expired(now time.Time, ttl time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status.Terminal() && now.Sub(j.updatedAt) > ttl
}

// JobStore is the in-memory registry pollers read from. Nothing survives a
// restart.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewJobStore returns an empty store. A non-positive ttl means one hour.
func NewJobStore(ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JobStore{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Cleanup evicts finished jobs idle for longer than the TTL and returns how
// many it removed.
func (s *JobStore) Cleanup() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.expired(now, s.ttl) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// ContentHashHex returns the hex SHA-256 of data.
func ContentHashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
