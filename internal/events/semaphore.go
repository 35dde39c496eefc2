package events

import (
	"context"
	"errors"
)

var MaxSemaphore int = 100

// SemaphoreControl bounds concurrent work (Kafka sends, snapshot writes)
// with a buffered channel.
type SemaphoreControl struct {
	ch chan struct{}
}

func NewSemaphoreControl() *SemaphoreControl {
	return &SemaphoreControl{ch: make(chan struct{}, MaxSemaphore)}
}

func (s *SemaphoreControl) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.New("semaphore acquire: reached time limit")
	}
}

func (s *SemaphoreControl) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return errors.New("semaphore release without acquire")
	}
}
