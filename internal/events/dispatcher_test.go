package events

import (
	"context"
	"testing"
	"time"
)

func TestSemaphore_AcquireRelease(t *testing.T) {
	s := NewSemaphoreControl()
	ctx := context.Background()

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if err := s.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if err := s.Release(); err == nil {
		t.Fatalf("Release without Acquire did not error")
	}
}

func TestSemaphore_BlocksWhenFull(t *testing.T) {
	s := &SemaphoreControl{ch: make(chan struct{}, 1)}
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Fatalf("Acquire on full semaphore did not time out")
	}
}

func TestDispatcher_EnqueueWithoutProducer(t *testing.T) {
	// nil producer: sends are no-ops, which is the disabled configuration.
	d := NewDispatcher(nil, "", nil, DispatcherOptions{
		QueueSize: 8,
		Workers:   1,
		MaxRetry:  1,
	})
	evt := DrawEvent{EventType: EventOpCreated, RoomID: "r", OpID: "op1", Seq: 1, AppliedAt: time.Now()}
	if err := d.Enqueue(context.Background(), evt); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
}

func TestDispatcher_EnqueueFullQueueTimesOut(t *testing.T) {
	// No workers, so nothing drains the queue.
	d := NewDispatcher(nil, "", nil, DispatcherOptions{QueueSize: 1, Workers: 0})

	if err := d.Enqueue(context.Background(), DrawEvent{RoomID: "r"}); err != nil {
		t.Fatalf("first Enqueue error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Enqueue(ctx, DrawEvent{RoomID: "r"}); err == nil {
		t.Fatalf("Enqueue on full queue did not time out")
	}
}
