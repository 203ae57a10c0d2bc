package reqlog

import (
	"context"
	"log"
	"sync"
	"time"

	"palaver/internal/eventbus"
)

const writeTimeout = 10 * time.Second

// AsyncLogger decouples log persistence from the exchange critical path.
// Submit never blocks: a full buffer or a failed write drops the entry and
// surfaces a warning on the event bus instead of aborting the reply.
type AsyncLogger struct {
	recorder Recorder
	bus      *eventbus.Bus
	entries  chan Entry
	stopOnce sync.Once
	done     chan struct{}
}

// NewAsyncLogger starts the background writer.
func NewAsyncLogger(recorder Recorder, bus *eventbus.Bus) *AsyncLogger {
	l := &AsyncLogger{
		recorder: recorder,
		bus:      bus,
		entries:  make(chan Entry, 256),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

// Submit queues an entry for persistence, best-effort.
func (l *AsyncLogger) Submit(e Entry) {
	select {
	case l.entries <- e:
	default:
		log.Printf("[reqlog] buffer full, dropping entry for session %s", e.SessionID)
		l.bus.Warn("reqlog", e.SessionID, ErrBufferFull)
	}
}

// Stop drains queued entries and stops the writer.
func (l *AsyncLogger) Stop() {
	l.stopOnce.Do(func() {
		close(l.entries)
		<-l.done
	})
}

func (l *AsyncLogger) run() {
	defer close(l.done)
	for e := range l.entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := l.recorder.Record(ctx, e); err != nil {
			log.Printf("[reqlog] write failed for session %s: %v", e.SessionID, err)
			l.bus.Warn("reqlog", e.SessionID, err)
		}
		cancel()
	}
}
