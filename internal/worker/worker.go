// Package worker runs layout requests on a dedicated goroutine.
//
// Callers submit requests over a channel and receive responses correlated by
// request id. The layout itself is synchronous and has no cancellation points;
// stopping the worker aborts requests that have not started yet.
package worker

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kozaktomas/photo-collage/internal/collage"
)

// ErrStopped is returned when submitting to a worker that is not running.
var ErrStopped = errors.New("layout worker stopped")

// Handler computes a response for a request. *collage.Engine implements it.
type Handler interface {
	Handle(req collage.Request) collage.Response
}

type job struct {
	req   collage.Request
	reply chan collage.Response
}

// Worker owns one background goroutine consuming layout jobs.
type Worker struct {
	handler Handler
	logger  *log.Logger
	jobs    chan job

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
}

// New creates a worker with a queue of the given size. A nil logger discards
// output.
func New(handler Handler, queueSize int, logger *log.Logger) *Worker {
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Worker{
		handler: handler,
		logger:  logger,
		jobs:    make(chan job, queueSize),
	}
}

// Start launches the background goroutine. It stops when ctx is cancelled or
// Stop is called. Starting a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	w.stopOnce = &sync.Once{}
	w.done = make(chan struct{})
	go w.loop(ctx, w.stop, w.done)
}

func (w *Worker) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	defer w.markStopped()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case j := <-w.jobs:
			resp := w.handle(j.req)
			j.reply <- resp
		}
	}
}

func (w *Worker) markStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// handle runs one request; a panic becomes an error response rather than
// taking the worker down.
func (w *Worker) handle(req collage.Request) (resp collage.Response) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("layout panicked", "request", req.RequestID, "panic", r)
			resp = collage.Response{RequestID: req.RequestID, Error: "internal layout error"}
		}
	}()
	resp = w.handler.Handle(req)
	if !resp.OK {
		w.logger.Warn("layout failed", "request", req.RequestID, "error", resp.Error)
	}
	return resp
}

// Stop terminates the goroutine and waits for it to exit. A request being
// processed finishes first; queued requests are abandoned.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stop, once, done := w.stop, w.stopOnce, w.done
	w.mu.Unlock()

	once.Do(func() { close(stop) })
	<-done
}

// Running reports whether the background goroutine is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Submit queues a request and returns the channel its response will be
// delivered on. Requests without an id get a generated one.
func (w *Worker) Submit(ctx context.Context, req collage.Request) (collage.Request, <-chan collage.Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	w.mu.Lock()
	running, stop := w.running, w.stop
	w.mu.Unlock()
	if !running {
		return req, nil, ErrStopped
	}

	reply := make(chan collage.Response, 1)
	select {
	case w.jobs <- job{req: req, reply: reply}:
		return req, reply, nil
	case <-stop:
		return req, nil, ErrStopped
	case <-ctx.Done():
		return req, nil, ctx.Err()
	}
}

// Do submits a request and waits for its response.
func (w *Worker) Do(ctx context.Context, req collage.Request) (collage.Response, error) {
	_, reply, err := w.Submit(ctx, req)
	if err != nil {
		return collage.Response{}, err
	}

	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	select {
	case resp := <-reply:
		return resp, nil
	case <-done:
		// The worker may have answered just before stopping.
		select {
		case resp := <-reply:
			return resp, nil
		default:
			return collage.Response{}, ErrStopped
		}
	case <-ctx.Done():
		return collage.Response{}, ctx.Err()
	}
}
