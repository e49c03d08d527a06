package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Queue feeds report ids to a pool of generation workers. Submission stays
// fast (validate + insert); the heavy fetch/render work happens here.
type Queue struct {
	jobs     chan string
	workers  int
	wg       sync.WaitGroup
	manager  *Manager
	logger   *slog.Logger
	shutdown chan struct{}
	once     sync.Once
}

// NewQueue creates a queue with the given worker count. The channel buffer
// is twice the worker count, matching submission burst tolerance to
// processing capacity.
func NewQueue(workers int, manager *Manager, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:     make(chan string, workers*2),
		workers:  workers,
		manager:  manager,
		logger:   logger.With(slog.String("component", "report.queue")),
		shutdown: make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("starting report queue", slog.Int("workers", q.workers))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Stop signals shutdown and waits for in-flight generations, bounded by
// timeout.
func (q *Queue) Stop(timeout time.Duration) error {
	q.once.Do(func() { close(q.shutdown) })

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.logger.Info("report queue stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for report workers to finish")
	}
}

// Enqueue schedules generation for the report id. A full queue fails the
// report immediately rather than blocking submission.
func (q *Queue) Enqueue(ctx context.Context, id string) error {
	select {
	case q.jobs <- id:
		q.logger.InfoContext(ctx, "report enqueued", slog.String("report_id", id))
		return nil
	default:
		now := q.manager.clock.Now()
		if _, err := q.manager.store.MarkGenerating(ctx, id, now); err != nil {
			q.logger.ErrorContext(ctx, "could not mark overflowed report",
				slog.String("report_id", id), slog.String("error", err.Error()))
		}
		if _, err := q.manager.store.FinalizeFailed(ctx, id, ErrQueueFull.Error(), now); err != nil {
			q.logger.ErrorContext(ctx, "could not fail overflowed report",
				slog.String("report_id", id), slog.String("error", err.Error()))
		}
		return ErrQueueFull
	}
}

func (q *Queue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()
	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case id := <-q.jobs:
			q.process(ctx, id, logger)
		}
	}
}

// process runs one generation, recovering panics so a bad dataset cannot
// take the pool down.
func (q *Queue) process(ctx context.Context, id string, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("generation panicked",
				slog.String("report_id", id),
				slog.Any("panic", r))
			now := q.manager.clock.Now()
			if _, err := q.manager.store.FinalizeFailed(ctx, id, fmt.Sprintf("generation panicked: %v", r), now); err != nil {
				logger.Error("could not record panic failure",
					slog.String("report_id", id),
					slog.String("error", err.Error()))
			}
		}
	}()

	logger.InfoContext(ctx, "generation started", slog.String("report_id", id))
	if err := q.manager.Generate(ctx, id); err != nil {
		logger.ErrorContext(ctx, "generation attempt errored",
			slog.String("report_id", id),
			slog.String("error", err.Error()))
	}
}

// Submit creates the report and enqueues its generation in one call. This is
// the path the HTTP handler uses.
func (q *Queue) Submit(ctx context.Context, ownerID string, req CreateRequest) (*Report, error) {
	r, err := q.manager.Create(ctx, ownerID, req)
	if err != nil {
		return nil, err
	}
	if err := q.Enqueue(ctx, r.ID); err != nil {
		// The record exists and is already marked failed; return it so the
		// caller still sees the submission.
		if failed, getErr := q.manager.store.Get(ctx, r.ID); getErr == nil {
			return failed, nil
		}
		return r, nil
	}
	return r, nil
}
