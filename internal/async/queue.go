// Package async runs captures through the pipeline on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one capture waiting for a worker.
type Job struct {
	Capture     pipeline.Capture
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
