package memoryopt

import (
	"context"
	"log"
	"sync"
	"time"

	"palaver/internal/eventbus"
	"palaver/internal/session"
)

const optimizeTimeout = 2 * time.Minute

// Scheduler runs compaction off the critical path. Submissions are debounced
// per session so a burst of exchanges costs one provider call, and each run
// takes the session lock so it never races a live exchange.
type Scheduler struct {
	opt      *Optimizer
	locks    *session.Locks
	bus      *eventbus.Bus
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with the given debounce window.
func NewScheduler(opt *Optimizer, locks *session.Locks, bus *eventbus.Bus, debounce time.Duration) *Scheduler {
	return &Scheduler{
		opt:      opt,
		locks:    locks,
		bus:      bus,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Submit schedules an optimization pass for the session. Repeated submits
// within the debounce window coalesce into one run.
func (s *Scheduler) Submit(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if timer, ok := s.pending[sessionID]; ok {
		timer.Reset(s.debounce)
		return
	}

	s.wg.Add(1)
	s.pending[sessionID] = time.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.pending, sessionID)
		s.mu.Unlock()
		s.run(sessionID)
	})
}

// Stop cancels pending timers and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.pending {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(sessionID string) {
	release := s.locks.Acquire(sessionID)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), optimizeTimeout)
	defer cancel()

	if err := s.opt.Optimize(ctx, sessionID); err != nil {
		log.Printf("[memoryopt] session %s: optimization failed: %v", sessionID, err)
		s.bus.Warn("memoryopt", sessionID, err)
	}
}
