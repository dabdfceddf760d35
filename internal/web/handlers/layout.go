package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/constants"
	"github.com/kozaktomas/photo-collage/internal/worker"
)

// LayoutRunner executes layout requests. *worker.Worker implements it.
type LayoutRunner interface {
	Submit(ctx context.Context, req collage.Request) (collage.Request, <-chan collage.Response, error)
	Do(ctx context.Context, req collage.Request) (collage.Response, error)
}

// LayoutHandler handles layout endpoints
type LayoutHandler struct {
	runner     LayoutRunner
	jobManager *JobManager
	logger     *log.Logger
}

// NewLayoutHandler creates a new layout handler
func NewLayoutHandler(runner LayoutRunner, jobManager *JobManager, logger *log.Logger) *LayoutHandler {
	return &LayoutHandler{
		runner:     runner,
		jobManager: jobManager,
		logger:     logger,
	}
}

// StartJobResponse is returned when an async layout job is accepted.
type StartJobResponse struct {
	JobID     string    `json:"jobId"`
	RequestID string    `json:"requestId"`
	Status    JobStatus `json:"status"`
}

func (h *LayoutHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (collage.Request, bool) {
	var req collage.Request
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxLayoutBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return req, false
	}
	return req, true
}

// runnerErrorStatus maps a runner error to an HTTP status.
func runnerErrorStatus(err error) int {
	switch {
	case errors.Is(err, worker.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Layout computes a layout synchronously. Failed layouts are answered with
// 422 and the response body carrying the error.
func (h *LayoutHandler) Layout(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	resp, err := h.runner.Do(ctx, req)
	if err != nil {
		h.logger.Error("layout request failed", "request", sanitizeForLog(req.RequestID), "error", err)
		respondError(w, runnerErrorStatus(err), err.Error())
		return
	}

	if !resp.OK {
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// StartJob queues an async layout job. The optional "session" query parameter
// groups jobs of one client: a newer job for the same session makes the
// older ones stale once they finish.
func (h *LayoutHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	session := r.URL.Query().Get("session")
	job, err := h.jobManager.CreateJob(req.RequestID, session, req)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	job.setCancel(cancel)
	go func() {
		defer cancel()
		h.runJob(ctx, job)
	}()

	respondJSON(w, http.StatusAccepted, StartJobResponse{
		JobID:     job.ID,
		RequestID: req.RequestID,
		Status:    JobStatusPending,
	})
}

func (h *LayoutHandler) runJob(ctx context.Context, job *LayoutJob) {
	job.mu.Lock()
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
	job.mu.Unlock()
	job.SendEvent(JobEvent{Type: "started", Message: "Layout started"})

	_, reply, err := h.runner.Submit(ctx, job.request)
	if err != nil {
		h.forget(job)
		if job.finish(JobStatusFailed, nil, err.Error()) {
			h.logger.Error("layout job failed", "job", job.ID, "error", err)
			job.SendEvent(JobEvent{Type: "job_error", Message: err.Error()})
		}
		return
	}

	var resp collage.Response
	select {
	case resp = <-reply:
	case <-ctx.Done():
		h.forget(job)
		job.finish(JobStatusCancelled, nil, "")
		return
	}

	if job.tracker != nil && !job.tracker.Accept(resp) {
		if job.finish(JobStatusStale, nil, "superseded by a newer photo set") {
			h.logger.Info("discarded stale layout", "job", job.ID, "session", sanitizeForLog(job.Session))
			job.SendEvent(JobEvent{Type: "stale", Message: "Superseded by a newer photo set"})
		}
		return
	}

	if !resp.OK {
		if job.finish(JobStatusFailed, &resp, resp.Error) {
			job.SendEvent(JobEvent{Type: "job_error", Message: resp.Error, Data: resp})
		}
		return
	}
	if job.finish(JobStatusCompleted, &resp, "") {
		job.SendEvent(JobEvent{Type: "completed", Data: resp})
	}
}

// forget drops the job's pending entry from its session tracker.
func (h *LayoutHandler) forget(job *LayoutJob) {
	if job.tracker != nil {
		job.tracker.Accept(collage.Response{RequestID: job.ID})
	}
}

// Status returns the status of a layout job
func (h *LayoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.snapshot())
}

// List returns all known layout jobs
func (h *LayoutHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobManager.ListJobs()
	out := make([]*LayoutJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.snapshot())
	}
	respondJSON(w, http.StatusOK, out)
}

// Events streams SSE events for a layout job
func (h *LayoutHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r, func(id string) SSEJob {
		job := h.jobManager.GetJob(id)
		if job == nil {
			return nil
		}
		return job
	}, func(job SSEJob) any {
		return job.(*LayoutJob).snapshot()
	})
}

// Cancel cancels a running layout job
func (h *LayoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	if isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusConflict, "job already finished")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]string{"status": string(JobStatusCancelled)})
}
