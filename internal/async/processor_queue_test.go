package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

type fakeProcessor struct {
	mu    sync.Mutex
	seen  []string
	block chan struct{}
	err   error
}

func (f *fakeProcessor) Process(ctx context.Context, c pipeline.Capture) (*pipeline.Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.seen = append(f.seen, c.Path)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{DocumentID: "doc-" + c.Path}, nil
}

func (f *fakeProcessor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func capture(i int) Job {
	return Job{Capture: pipeline.Capture{
		Path: fmt.Sprintf("/cap/%d.jpg", i), DocType: constants.Passport, Subtype: constants.SubtypeMain,
	}}
}

func TestQueueProcessesEveryJobBeforeShutdown(t *testing.T) {
	proc := &fakeProcessor{}
	var done sync.WaitGroup
	done.Add(10)
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithQueueSize(4),
		WithOnDone(func(Job, *pipeline.Result, error) { done.Done() }))

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(context.Background(), capture(i)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	q.Shutdown(context.Background())
	done.Wait()

	if got := proc.count(); got != 10 {
		t.Fatalf("expected 10 processed jobs, got %d", got)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	if err := q.Enqueue(context.Background(), capture(1)); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestEnqueueRespectsContextWhenFull(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(proc.block)
		q.Shutdown(context.Background())
	}()

	// one in the worker, one in the buffer
	_ = q.Enqueue(context.Background(), capture(1))
	_ = q.Enqueue(context.Background(), capture(2))
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, capture(4)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestOnDoneSeesErrors(t *testing.T) {
	proc := &fakeProcessor{err: fmt.Errorf("again: %w", common.ErrDuplicate)}
	got := make(chan error, 1)
	q := NewProcessorQueue(proc, nil, WithOnDone(func(_ Job, _ *pipeline.Result, err error) { got <- err }))
	defer q.Shutdown(context.Background())

	_ = q.Enqueue(context.Background(), capture(1))
	select {
	case err := <-got:
		if !errors.Is(err, common.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}
