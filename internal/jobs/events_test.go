package jobs

import (
	"testing"
	"time"
)

func TestEventBusPublishAssignsSequence(t *testing.T) {
	b := NewEventBus()

	e1 := b.Publish(Event{JobID: "job-1", Type: EventTypeStatus, Message: "queued"})
	e2 := b.Publish(Event{JobID: "job-1", Type: EventTypeLog, Message: "started"})

	if e1.Seq != 1 || e2.Seq != 2 {
		t.Fatalf("expected sequential seq, got %d then %d", e1.Seq, e2.Seq)
	}
	if e1.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be stamped")
	}
}

func TestEventBusSincePerJobIsolation(t *testing.T) {
	b := NewEventBus()

	b.Publish(Event{JobID: "job-1", Type: EventTypeLog, Message: "a"})
	b.Publish(Event{JobID: "job-2", Type: EventTypeLog, Message: "x"})
	b.Publish(Event{JobID: "job-1", Type: EventTypeLog, Message: "b"})

	job1Events := b.Since("job-1", 0)
	if len(job1Events) != 2 {
		t.Fatalf("expected 2 events for job-1, got %d", len(job1Events))
	}
	if job1Events[0].Message != "a" || job1Events[1].Message != "b" {
		t.Fatalf("unexpected job-1 events: %+v", job1Events)
	}

	job2Events := b.Since("job-2", 0)
	if len(job2Events) != 1 || job2Events[0].Message != "x" {
		t.Fatalf("unexpected job-2 events: %+v", job2Events)
	}

	sinceFirst := b.Since("job-1", job1Events[0].Seq)
	if len(sinceFirst) != 1 || sinceFirst[0].Message != "b" {
		t.Fatalf("expected only events after first seq, got %+v", sinceFirst)
	}
}

func TestEventBusSubscribeReceivesLiveEvents(t *testing.T) {
	b := NewEventBus()
	ch, unsub := b.Subscribe("job-1")
	defer unsub()

	b.Publish(Event{JobID: "job-1", Type: EventTypeStatus, Message: "running"})

	select {
	case evt := <-ch:
		if evt.Message != "running" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}

	// Events for a different job must not reach this subscriber.
	b.Publish(Event{JobID: "job-2", Type: EventTypeStatus, Message: "other"})
	select {
	case evt := <-ch:
		t.Fatalf("unexpected cross-job event delivered: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	b := NewEventBus()
	ch, unsub := b.Subscribe("job-1")
	unsub()

	b.Publish(Event{JobID: "job-1", Type: EventTypeLog, Message: "after-unsub"})

	select {
	case evt, ok := <-ch:
		if ok {
			t.Fatalf("expected no delivery after unsubscribe, got %+v", evt)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusForgetClearsHistory(t *testing.T) {
	b := NewEventBus()
	b.Publish(Event{JobID: "job-1", Type: EventTypeLog, Message: "a"})
	b.Forget("job-1")

	events := b.Since("job-1", 0)
	if len(events) != 0 {
		t.Fatalf("expected empty history after Forget, got %+v", events)
	}
}

func TestBusTrimsToMaxEvents(t *testing.T) {
	b := newBus(3)
	for i := 0; i < 5; i++ {
		b.publish(Event{JobID: "job-1", Type: EventTypeLog})
	}

	events := b.since(0)
	if len(events) != 3 {
		t.Fatalf("expected buffer trimmed to 3, got %d", len(events))
	}
	if events[0].Seq != 3 || events[2].Seq != 5 {
		t.Fatalf("expected seqs 3..5 retained, got %+v", events)
	}
}
