package session

import (
	"sync"
	"testing"
	"time"
)

func TestLocksSerializeSameSession(t *testing.T) {
	locks := NewLocks()
	var inside int
	var maxInside int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire("s1")
			defer release()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected serialized access, saw %d concurrent holders", maxInside)
	}
}

func TestLocksIndependentSessions(t *testing.T) {
	locks := NewLocks()

	release1 := locks.Acquire("s1")
	defer release1()

	done := make(chan struct{})
	go func() {
		release2 := locks.Acquire("s2")
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent session blocked by unrelated lock")
	}
}
