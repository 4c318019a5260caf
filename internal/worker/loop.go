package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clipforge/engine/internal/concurrency"
	"github.com/clipforge/engine/internal/queue"
)

// ShutdownWindow bounds how long Run waits for in-flight tasks to finish
// once it stops reserving new ones (spec §5: "waits for in-flight tasks
// up to a bounded shutdown window"). Tasks still running past the window
// are left for the broker's visibility timeout to redeliver.
const ShutdownWindow = 30 * time.Second

// Handler processes one reserved task. A nil return acks the task; a
// non-nil return Nacks it, which either schedules a backoff redelivery
// or dead-letters it once task.Policy.MaxAttempts is exhausted.
type Handler func(ctx context.Context, task *queue.Task) error

// Pool drives one named queue with bounded concurrency and an optional
// task-intake rate limiter (spec §5: DW concurrency 2, AW concurrency 1
// + rate ≤1/s, EW concurrency 2 + rate ≤5/s).
type Pool struct {
	Broker   *queue.Broker
	Queue    queue.Name
	WorkerID string
	Sem      *concurrency.Semaphore
	Limiter  *rate.Limiter // nil disables rate limiting
	Logger   *zap.Logger
	Handle   Handler
}

// Run reserves and dispatches tasks from Pool.Queue until ctx is
// canceled, then drains any in-flight handlers for up to ShutdownWindow
// before returning (spec §5 "Cancellation and timeouts").
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for {
		if p.Limiter != nil {
			if err := concurrency.Wait(ctx, p.Limiter); err != nil {
				break
			}
		}
		if err := p.Sem.Acquire(ctx); err != nil {
			break
		}

		task, err := p.Broker.Reserve(ctx, p.Queue, p.WorkerID)
		if err != nil {
			p.Sem.Release()
			break
		}
		if task == nil {
			p.Sem.Release()
			continue
		}

		wg.Add(1)
		go func(t *queue.Task) {
			defer wg.Done()
			defer p.Sem.Release()
			p.handleOne(t)
		}(task)
	}

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(ShutdownWindow):
		if p.Logger != nil {
			p.Logger.Warn("shutdown window elapsed with tasks still in flight",
				zap.String("queue", string(p.Queue)))
		}
	}
}

// handleOne runs the handler against a context detached from the
// Reserve loop's cancellation, so a task already in flight when shutdown
// begins gets to finish within ShutdownWindow instead of being killed
// outright (spec §5).
func (p *Pool) handleOne(task *queue.Task) {
	taskCtx, cancel := context.WithTimeout(context.Background(), queue.VisibilityTimeout)
	defer cancel()

	err := p.Handle(taskCtx, task)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("task handler failed",
				zap.String("queue", string(task.Queue)),
				zap.String("task_id", task.ID),
				zap.Int("attempt", task.Attempt),
				zap.Error(err))
		}
		if nerr := p.Broker.Nack(task, err); nerr != nil && p.Logger != nil {
			p.Logger.Error("nack failed", zap.Error(nerr))
		}
		return
	}
	if aerr := p.Broker.Ack(task); aerr != nil && p.Logger != nil {
		p.Logger.Error("ack failed", zap.Error(aerr))
	}
}
