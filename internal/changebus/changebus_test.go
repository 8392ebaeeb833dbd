package changebus

import (
	"context"
	"testing"
	"time"

	"github.com/jengzang/timeline-core/internal/models"
)

func interval(start time.Time, dur time.Duration) models.DateInterval {
	return models.DateInterval{Start: start, End: start.Add(dur)}
}

func TestBus_SubscriberReceivesPublishedInterval(t *testing.T) {
	bus := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := bus.Subscribe(ctx)

	want := interval(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
	bus.Publish(want)

	select {
	case got := <-ch:
		if got != want {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the published interval")
	}
}

func TestBus_PublishDropsOldestWhenBufferIsFull(t *testing.T) {
	bus := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := bus.Subscribe(ctx)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stale := interval(start, time.Minute)
	fresh := interval(start.Add(time.Hour), time.Minute)

	bus.Publish(stale)
	bus.Publish(fresh) // buffer already full; should drop stale and keep fresh

	select {
	case got := <-ch:
		if got != fresh {
			t.Errorf("received %+v, want the fresher notification %+v", got, fresh)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a notification")
	}

	select {
	case extra, ok := <-ch:
		if ok {
			t.Errorf("expected only one pending notification, also got %+v", extra)
		}
	default:
	}
}

func TestBus_PublishWithNoSubscribersDoesNotBlock(t *testing.T) {
	bus := New(1)
	done := make(chan struct{})
	go func() {
		bus.Publish(interval(time.Now(), time.Minute))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with zero subscribers")
	}
}

func TestBus_SubscriberChannelClosesWhenContextCancelled(t *testing.T) {
	bus := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel was not closed after context cancellation")
		}
	}
}
