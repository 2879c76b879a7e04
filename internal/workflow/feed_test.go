package workflow

import (
	"context"
	"testing"
	"time"
)

func TestFeedEvictsOldestBeyondCapacity(t *testing.T) {
	feed := NewFeed(2)
	for i := range 3 {
		feed.Publish(BatchEvent{BatchID: string(rune('a' + i))})
	}

	events, next := feed.Since(0)
	if len(events) != 2 || events[0].BatchID != "b" || events[1].BatchID != "c" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if next != 3 {
		t.Fatalf("cursor = %d, want 3", next)
	}
	if events, _ := feed.Since(next); len(events) != 0 {
		t.Fatalf("expected no events after cursor, got %+v", events)
	}
}

func TestFeedWaitWakesOnPublish(t *testing.T) {
	feed := NewFeed(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cursor := feed.Latest()
	done := make(chan []BatchEvent, 1)
	go func() {
		events, _, err := feed.Wait(ctx, cursor)
		if err != nil {
			done <- nil
			return
		}
		done <- events
	}()

	time.Sleep(10 * time.Millisecond)
	feed.Publish(BatchEvent{BatchID: "x", Lane: "fast"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].BatchID != "x" || events[0].Sequence != 1 {
			t.Fatalf("unexpected events: %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestFeedWaitHonoursContext(t *testing.T) {
	feed := NewFeed(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := feed.Wait(ctx, 0); err == nil {
		t.Fatal("expected context error")
	}
}
