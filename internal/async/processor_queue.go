package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/metrics"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

// Processor is the pipeline stage a worker drives; *pipeline.Processor
// satisfies it.
type Processor interface {
	Process(ctx context.Context, c pipeline.Capture) (*pipeline.Result, error)
}

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	metrics *metrics.Pipeline
	workers int
	timeout time.Duration
	onDone  func(Job, *pipeline.Result, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Pipeline) Option {
	return func(q *ProcessorQueue) { q.metrics = m }
}

// WithOnDone registers a callback run by the worker after each job.
func WithOnDone(fn func(Job, *pipeline.Result, error)) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *ProcessorQueue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Info("worker started", "worker_id", workerID)

	for job := range q.ch {
		q.metrics.SetQueueDepth(len(q.ch))
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		ctx = common.WithLogger(ctx, q.logger.With("worker_id", workerID))
		if job.RequestID != "" {
			ctx = common.WithRequestID(ctx, job.RequestID)
		}
		res, err := q.proc.Process(ctx, job.Capture)
		cancel()

		switch {
		case errors.Is(err, common.ErrDuplicate):
			q.logger.Info("capture already processed", "worker_id", workerID, "path", job.Capture.Path)
		case err != nil:
			q.logger.Error("processing failed", "worker_id", workerID, "path", job.Capture.Path, "error", err)
		default:
			q.logger.Info("processed capture successfully", "worker_id", workerID,
				"path", job.Capture.Path, "doc_id", res.DocumentID, "needs_review", res.NeedsReview,
				"wait_ms", time.Since(job.SubmittedAt).Milliseconds())
		}
		if q.onDone != nil {
			q.onDone(job, res, err)
		}
	}

	q.logger.Info("worker stopped", "worker_id", workerID)
}

// Enqueue blocks when the buffer is full until a worker frees a slot or ctx
// is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Capture.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "path", job.Capture.Path)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	q.metrics.SetQueueDepth(len(q.ch))
	q.logger.Info("queued capture for processing", "path", job.Capture.Path,
		"doc_type", job.Capture.DocType, "subtype", job.Capture.Subtype)
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
