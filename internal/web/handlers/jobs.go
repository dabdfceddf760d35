package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/constants"
	"github.com/kozaktomas/photo-collage/internal/worker"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusStale marks a job whose session moved on to another photo set
	// before the layout finished. Its result is discarded.
	JobStatusStale JobStatus = "stale"
)

// LayoutJob represents an async layout job.
type LayoutJob struct {
	EventBroadcaster

	ID          string            `json:"id"`
	Session     string            `json:"session,omitempty"`
	Photos      int               `json:"photos"`
	Fingerprint string            `json:"fingerprint"`
	Status      JobStatus         `json:"status"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Result      *collage.Response `json:"result,omitempty"`

	request collage.Request
	tracker *worker.Tracker
}

// GetStatus returns the current job status (implements SSEJob).
func (j *LayoutJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Cancel cancels the layout job.
func (j *LayoutJob) Cancel() {
	j.finish(JobStatusCancelled, nil, "")
	j.EventBroadcaster.Cancel()
}

// snapshot returns a copy safe to encode while the job keeps running.
func (j *LayoutJob) snapshot() *LayoutJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return &LayoutJob{
		ID:          j.ID,
		Session:     j.Session,
		Photos:      j.Photos,
		Fingerprint: j.Fingerprint,
		Status:      j.Status,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
	}
}

// finish moves the job into a terminal state unless it already is in one.
// It reports whether the transition happened.
func (j *LayoutJob) finish(status JobStatus, result *collage.Response, message string) bool {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	if isJobTerminal(j.Status) {
		return false
	}
	j.Status = status
	j.Result = result
	j.Error = message
	j.CompletedAt = &now
	return true
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

func (b *EventBroadcaster) setCancel(cancel context.CancelFunc) {
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() JobStatus
}

// JobManager manages async layout jobs and the per-session staleness trackers.
type JobManager struct {
	jobs     map[string]*LayoutJob
	sessions map[string]*worker.Tracker
	mu       sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:     make(map[string]*LayoutJob),
		sessions: make(map[string]*worker.Tracker),
	}
}

// ErrJobExists is returned by CreateJob when the id is already taken.
var ErrJobExists = errors.New("job with this request id already exists")

// CreateJob creates a new layout job. When session is non-empty the job's
// photo set becomes the session's current one, which makes older unfinished
// jobs of that session stale.
func (m *JobManager) CreateJob(id, session string, req collage.Request) (*LayoutJob, error) {
	ids := req.PhotoIDs()
	job := &LayoutJob{
		ID:          id,
		Session:     session,
		Photos:      len(req.Photos),
		Fingerprint: collage.Fingerprint(ids),
		Status:      JobStatusPending,
		StartedAt:   time.Now(),
		request:     req,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[id]; exists {
		return nil, ErrJobExists
	}
	if session != "" {
		tracker, ok := m.sessions[session]
		if !ok {
			tracker = worker.NewTracker(ids)
			m.sessions[session] = tracker
		}
		tracker.SetPhotos(ids)
		tracker.Track(req)
		job.tracker = tracker
	}
	m.jobs[id] = job
	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *LayoutJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*LayoutJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*LayoutJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// Sweep drops jobs that finished before cutoff and sessions without pending
// requests. It returns the number of jobs removed.
func (m *JobManager) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		job.mu.RLock()
		done := job.CompletedAt != nil && job.CompletedAt.Before(cutoff)
		job.mu.RUnlock()
		if done {
			delete(m.jobs, id)
			removed++
		}
	}
	for session, tracker := range m.sessions {
		if tracker.Pending() == 0 {
			delete(m.sessions, session)
		}
	}
	return removed
}

// RunSweeper periodically sweeps finished jobs until ctx is done.
func (m *JobManager) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now.Add(-retention))
		}
	}
}
