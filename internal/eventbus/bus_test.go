package eventbus

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPublishOrder(t *testing.T) {
	bus := New()
	var got []int

	bus.Subscribe(TopicStatusChange, func(e Event) { got = append(got, 1) })
	bus.Subscribe(TopicStatusChange, func(e Event) { got = append(got, 2) })

	bus.Publish(TopicStatusChange, "ready")

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("handlers called out of order: %v", got)
	}
}

func TestPublishOnlyMatchingTopic(t *testing.T) {
	bus := New()
	called := false

	bus.Subscribe(TopicWarning, func(e Event) { called = true })
	bus.Publish(TopicError, errors.New("boom"))

	if called {
		t.Error("handler for different topic was called")
	}
}

func TestWarnCarriesPayload(t *testing.T) {
	bus := New()
	var w Warning

	bus.Subscribe(TopicWarning, func(e Event) { w = e.Payload.(Warning) })
	bus.Warn("reqlog", "s1", errors.New("disk full"))

	if w.Component != "reqlog" || w.SessionID != "s1" || w.Err == nil {
		t.Errorf("unexpected warning payload: %+v", w)
	}
}

func TestPublishAsync(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	wg.Add(1)

	bus.Subscribe(TopicMemoryOptimized, func(e Event) { wg.Done() })
	bus.PublishAsync(TopicMemoryOptimized, "s1")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler not called")
	}
}
