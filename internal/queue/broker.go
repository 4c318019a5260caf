package queue

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// VisibilityTimeout is how long a reserved task stays invisible to
	// other reservers before it is considered abandoned and redelivered
	// (spec §4.1: "a task unacked within a visibility window returns to
	// the queue").
	VisibilityTimeout = 5 * time.Minute

	maxDeadLetterFailures   = 200
	maxDeadLetterCompletions = 100
)

type namedQueue struct {
	mu        sync.Mutex
	ready     *list.List // of *Task, in insertion order; Reserve takes the first visible one
	inFlight  map[string]*Task
	failures  []DeadLetterFailure
	completed []DeadLetterCompletion
	notify    chan struct{}
}

func newNamedQueue() *namedQueue {
	return &namedQueue{
		ready:    list.New(),
		inFlight: make(map[string]*Task),
		notify:   make(chan struct{}, 1),
	}
}

func (q *namedQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Broker is the durable multi-queue broker described in spec §4.1.
type Broker struct {
	logger *zap.Logger
	mu     sync.Mutex
	queues map[Name]*namedQueue
}

// NewBroker constructs a Broker with the four named queues declared by
// spec §4.1 pre-created (download, analysis, extraction, upload).
func NewBroker(logger *zap.Logger) *Broker {
	b := &Broker{
		logger: logger,
		queues: make(map[Name]*namedQueue),
	}
	for _, n := range []Name{Download, Analysis, Extraction, Upload} {
		b.queues[n] = newNamedQueue()
	}
	return b
}

func (b *Broker) queue(name Name) *namedQueue {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = newNamedQueue()
		b.queues[name] = q
	}
	return q
}

// Enqueue marshals payload to JSON and places it on the named queue under
// the given policy. The payload should be one of the typed structs in
// task.go.
func (b *Broker) Enqueue(queueName Name, payload any, policy Policy) (*Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}

	t := &Task{
		ID:         uuid.New().String(),
		Queue:      queueName,
		Payload:    body,
		Attempt:    0,
		Policy:     policy,
		EnqueuedAt: time.Now(),
		VisibleAt:  time.Now(),
	}

	q := b.queue(queueName)
	q.mu.Lock()
	q.ready.PushBack(t)
	q.mu.Unlock()
	q.wake()

	if b.logger != nil {
		b.logger.Debug("task enqueued",
			zap.String("queue", string(queueName)),
			zap.String("task_id", t.ID),
		)
	}
	return t, nil
}

// Reserve blocks until a visible task is available on queueName or ctx is
// canceled (then it returns ctx.Err()). While waiting it re-checks every
// 200ms, or sooner when a task is enqueued or nacked, and returns expired
// in-flight tasks to the ready list before each check.
func (b *Broker) Reserve(ctx context.Context, queueName Name, workerID string) (*Task, error) {
	q := b.queue(queueName)

	for {
		b.sweepExpired(queueName, q)

		q.mu.Lock()
		var picked *list.Element
		now := time.Now()
		for e := q.ready.Front(); e != nil; e = e.Next() {
			t := e.Value.(*Task)
			if !t.VisibleAt.After(now) {
				picked = e
				break
			}
		}
		var task *Task
		if picked != nil {
			task = picked.Value.(*Task)
			q.ready.Remove(picked)
			task.Attempt++
			task.reservedBy = workerID
			task.deadline = now.Add(VisibilityTimeout)
			q.inFlight[task.ID] = task
		}
		q.mu.Unlock()

		if task != nil {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
			continue
		case <-time.After(200 * time.Millisecond):
			continue
		}
	}
}

// Ack acknowledges successful processing of a task, removing it from the
// in-flight set and recording it in the bounded completion ring.
func (b *Broker) Ack(task *Task) error {
	q := b.queue(task.Queue)
	q.mu.Lock()
	delete(q.inFlight, task.ID)
	q.completed = append(q.completed, DeadLetterCompletion{
		TaskID:      task.ID,
		Queue:       task.Queue,
		CompletedAt: time.Now(),
	})
	if len(q.completed) > maxDeadLetterCompletions {
		q.completed = q.completed[len(q.completed)-maxDeadLetterCompletions:]
	}
	q.mu.Unlock()
	return nil
}

// Nack reports a failed attempt. If attempts remain under the task's
// policy, the task is requeued after an exponential backoff delay
// (spec §4.1: delay = base * 2^(attempt-1), jitter permitted); otherwise
// it moves to the bounded dead-letter ring.
func (b *Broker) Nack(task *Task, cause error) error {
	q := b.queue(task.Queue)

	q.mu.Lock()
	delete(q.inFlight, task.ID)

	if task.Attempt >= task.Policy.MaxAttempts {
		reason := "unknown error"
		if cause != nil {
			reason = cause.Error()
		}
		q.failures = append(q.failures, DeadLetterFailure{
			TaskID:   task.ID,
			Queue:    task.Queue,
			Payload:  task.Payload,
			Attempts: task.Attempt,
			Reason:   reason,
			FailedAt: time.Now(),
		})
		if len(q.failures) > maxDeadLetterFailures {
			q.failures = q.failures[len(q.failures)-maxDeadLetterFailures:]
		}
		q.mu.Unlock()
		if b.logger != nil {
			b.logger.Warn("task moved to dead letter",
				zap.String("queue", string(task.Queue)),
				zap.String("task_id", task.ID),
				zap.Int("attempts", task.Attempt),
			)
		}
		return nil
	}

	delay := backoffDelay(task.Policy.BaseDelay, task.Attempt)
	task.VisibleAt = time.Now().Add(delay)
	q.ready.PushBack(task)
	q.mu.Unlock()
	q.wake()
	return nil
}

// sweepExpired returns any in-flight task whose visibility window has
// elapsed back onto the ready list (spec §4.1 at-least-once redelivery).
func (b *Broker) sweepExpired(queueName Name, q *namedQueue) {
	now := time.Now()
	q.mu.Lock()
	var expired []*Task
	for id, t := range q.inFlight {
		if now.After(t.deadline) {
			expired = append(expired, t)
			delete(q.inFlight, id)
		}
	}
	for _, t := range expired {
		q.ready.PushBack(t)
	}
	q.mu.Unlock()
	if len(expired) > 0 && b.logger != nil {
		b.logger.Warn("redelivering expired tasks",
			zap.String("queue", string(queueName)),
			zap.Int("count", len(expired)),
		)
	}
}

// DeadLetterFailures returns the bounded ring of failed tasks for a queue.
func (b *Broker) DeadLetterFailures(queueName Name) []DeadLetterFailure {
	q := b.queue(queueName)
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetterFailure, len(q.failures))
	copy(out, q.failures)
	return out
}

// DeadLetterCompletions returns the bounded ring of completed tasks for a
// queue.
func (b *Broker) DeadLetterCompletions(queueName Name) []DeadLetterCompletion {
	q := b.queue(queueName)
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetterCompletion, len(q.completed))
	copy(out, q.completed)
	return out
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	// jitter: adds up to +10%
	jitter := time.Duration(float64(delay) * 0.1)
	if jitter > 0 {
		delay += time.Duration(time.Now().UnixNano() % int64(jitter))
	}
	return delay
}
