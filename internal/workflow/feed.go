package workflow

import (
	"context"
	"sync"
	"time"
)

// BatchEvent summarizes one applied batch for the event feed.
type BatchEvent struct {
	Sequence  uint64        `json:"seq"`
	BatchID   string        `json:"batch_id"`
	Lane      string        `json:"lane"`
	Size      int           `json:"size"`
	Applied   int           `json:"applied"`
	Skipped   int           `json:"skipped"`
	Universe  int           `json:"universe"`
	Selected  int           `json:"selected"`
	Available int           `json:"available"`
	FlushedAt time.Time     `json:"flushed_at"`
	Duration  time.Duration `json:"duration"`
}

// Feed keeps the most recent batch events and wakes waiting readers when a
// new one arrives.
type Feed struct {
	mu       sync.Mutex
	capacity int
	buffer   []BatchEvent
	nextSeq  uint64
	changed  chan struct{}
}

// NewFeed constructs a bounded feed.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 256
	}
	return &Feed{capacity: capacity, changed: make(chan struct{})}
}

// Publish appends evt and assigns its sequence number.
func (f *Feed) Publish(evt BatchEvent) BatchEvent {
	if f == nil {
		return evt
	}
	f.mu.Lock()
	f.nextSeq++
	evt.Sequence = f.nextSeq
	if len(f.buffer) == f.capacity {
		f.buffer = append(f.buffer[:0], f.buffer[1:]...)
	}
	f.buffer = append(f.buffer, evt)
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()
	return evt
}

// Since returns buffered events newer than since, oldest first, and the
// cursor to pass on the next call.
func (f *Feed) Since(since uint64) ([]BatchEvent, uint64) {
	if f == nil {
		return nil, since
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	events, next, _ := f.snapshotLocked(since)
	return events, next
}

// Wait blocks until an event newer than since exists or ctx ends.
func (f *Feed) Wait(ctx context.Context, since uint64) ([]BatchEvent, uint64, error) {
	if f == nil {
		<-ctx.Done()
		return nil, since, ctx.Err()
	}
	for {
		f.mu.Lock()
		events, next, changed := f.snapshotLocked(since)
		f.mu.Unlock()
		if len(events) > 0 {
			return events, next, nil
		}
		select {
		case <-ctx.Done():
			return nil, since, ctx.Err()
		case <-changed:
		}
	}
}

// Latest returns the newest sequence number.
func (f *Feed) Latest() uint64 {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextSeq
}

func (f *Feed) snapshotLocked(since uint64) ([]BatchEvent, uint64, <-chan struct{}) {
	start := len(f.buffer)
	for i, evt := range f.buffer {
		if evt.Sequence > since {
			start = i
			break
		}
	}
	if start == len(f.buffer) {
		return nil, max(since, f.nextSeq), f.changed
	}
	out := make([]BatchEvent, len(f.buffer)-start)
	copy(out, f.buffer[start:])
	return out, f.nextSeq, f.changed
}
