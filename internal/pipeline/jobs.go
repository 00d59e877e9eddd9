package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/citectx/internal/doctree"
	"github.com/dgallion1/citectx/internal/tei"
)

// JobStatus represents the state of an extraction job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusParsing    JobStatus = "parsing"
	StatusAssembling JobStatus = "assembling"
	StatusStoring    JobStatus = "storing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusDupSkipped
}

// Job tracks the state of a single document extraction.
type Job struct {
	mu sync.Mutex

	ID    string
	DocID string // Storage id assigned to the document

	Status   JobStatus
	Phase    string
	Filename string
	Force    bool // Reprocess even when the content hash is already stored

	Progress Progress

	ContentHash   string
	DuplicateOf   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	fileData      []byte
	rows          []doctree.Row
	warnings      []tei.Diagnostic
	errors        []string
	done          chan struct{}
	doneCloseOnce sync.Once
}

// Progress counts what the pipeline found in the document.
type Progress struct {
	Sections   int      `json:"sections"`
	Paragraphs int      `json:"paragraphs"`
	References int      `json:"references"`
	Rows       int      `json:"rows"`
	Warnings   int      `json:"warnings"`
	Errors     []string `json:"errors"`
}

// NewJob creates a queued job for an uploaded file.
func NewJob(filename string, data []byte, force bool) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		DocID:       uuid.NewString(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		Force:       force,
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
		done:        make(chan struct{}),
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

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Done() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically. Terminal statuses release
// anyone blocked in Wait.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	j.mu.Unlock()

	if status.Done() {
		j.doneCloseOnce.Do(func() {
			if j.done != nil {
				close(j.done)
			}
		})
	}
}

// Wait returns a channel closed once the job reaches a terminal status.
func (j *Job) Wait() <-chan struct{} {
	return j.done
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetDocument records what parsing found.
func (j *Job) SetDocument(doc *doctree.Document) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Sections = len(doc.Sections)
	for _, sec := range doc.Sections {
		j.Progress.Paragraphs += len(sec.Paragraphs)
	}
	j.Progress.References = len(doc.References)
	j.warnings = doc.Diagnostics.Items()
	j.Progress.Warnings = len(j.warnings)
	j.UpdatedAt = time.Now()
}

// SetRows stores the assembled rows.
func (j *Job) SetRows(rows []doctree.Row) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = rows
	j.Progress.Rows = len(rows)
	j.UpdatedAt = time.Now()
}

// Rows returns the assembled rows.
func (j *Job) Rows() []doctree.Row {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rows
}

// MarkDuplicate records the stored document that already has this content.
func (j *Job) MarkDuplicate(existingID string) {
	j.mu.Lock()
	j.DuplicateOf = existingID
	j.mu.Unlock()
	j.SetStatus(StatusDupSkipped, "dedup")
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// releaseFileData drops the upload once it is no longer needed.
func (j *Job) releaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string           `json:"job_id"`
	DocID       string           `json:"doc_id"`
	Status      JobStatus        `json:"status"`
	Phase       string           `json:"phase"`
	Filename    string           `json:"filename"`
	ContentHash string           `json:"content_hash"`
	DuplicateOf string           `json:"duplicate_of,omitempty"`
	Progress    Progress         `json:"progress"`
	Warnings    []tei.Diagnostic `json:"warnings"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	warnings := append([]tei.Diagnostic{}, j.warnings...)
	progress := j.Progress
	progress.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		DuplicateOf: j.DuplicateOf,
		Progress:    progress,
		Warnings:    warnings,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
