// Package concurrency provides the weighted semaphore used to cap
// per-worker concurrency (spec §5: DW 2, AW 1, EW 2).
package concurrency

import (
	"context"
)

// Semaphore provides a weighted semaphore for limiting concurrent goroutines.
type Semaphore struct {
	weights chan struct{}
}

// NewSemaphore creates a new semaphore with the given capacity.
func NewSemaphore(maxConcurrent int) *Semaphore {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Semaphore{
		weights: make(chan struct{}, maxConcurrent),
	}
}

// Acquire acquires a semaphore slot, blocking until one is available or the
// context is canceled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.weights <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a semaphore slot.
func (s *Semaphore) Release() {
	<-s.weights
}

// Available returns the number of available slots.
func (s *Semaphore) Available() int {
	return cap(s.weights) - len(s.weights)
}
