package reqlog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"palaver/internal/config"
	"palaver/internal/eventbus"
	"palaver/internal/llm"
	"palaver/internal/security"
)

func newTestRecorder(t *testing.T, sanitizer *security.Sanitizer) *SQLiteRecorder {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "requests.db"), sanitizer)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	return rec
}

func sampleEntry(sessionID string) Entry {
	return Entry{
		SessionID: sessionID,
		Request: &llm.ChatRequest{
			Messages: []llm.Message{{Role: "user", Content: "hello"}},
		},
		Response: &llm.ChatResponse{Content: "hi there"},
		Latency:  120 * time.Millisecond,
	}
}

func TestRecordAndReadBack(t *testing.T) {
	rec := newTestRecorder(t, nil)
	ctx := context.Background()

	if err := rec.Record(ctx, sampleEntry("s1")); err != nil {
		t.Fatal(err)
	}

	entries, err := rec.Entries(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Error("entry should receive a generated ID")
	}
	if e.Request.Messages[0].Content != "hello" {
		t.Errorf("request not preserved: %+v", e.Request)
	}
	if e.Response.Content != "hi there" {
		t.Errorf("response not preserved: %+v", e.Response)
	}
	if e.Latency != 120*time.Millisecond {
		t.Errorf("latency = %v", e.Latency)
	}
}

func TestRecordFailedExchange(t *testing.T) {
	rec := newTestRecorder(t, nil)
	ctx := context.Background()

	e := sampleEntry("s1")
	e.Response = nil
	e.ErrText = "provider_timeout: deadline exceeded"
	if err := rec.Record(ctx, e); err != nil {
		t.Fatal(err)
	}

	entries, _ := rec.Entries(ctx, "s1")
	if entries[0].Response != nil {
		t.Error("failed exchange must have no response")
	}
	if entries[0].ErrText != "provider_timeout: deadline exceeded" {
		t.Errorf("error text lost: %q", entries[0].ErrText)
	}
}

func TestRecordScrubsPII(t *testing.T) {
	sanitizer := security.NewSanitizer(config.PIIFilterConfig{Enabled: true, FilterEmails: true})
	rec := newTestRecorder(t, sanitizer)
	ctx := context.Background()

	e := sampleEntry("s1")
	e.Request.Messages[0].Content = "mail me at alice@example.com please"
	if err := rec.Record(ctx, e); err != nil {
		t.Fatal(err)
	}

	entries, _ := rec.Entries(ctx, "s1")
	got := entries[0].Request.Messages[0].Content
	if strings.Contains(got, "alice@example.com") {
		t.Errorf("address must not reach disk: %q", got)
	}
}

func TestEntriesIsolatedBySession(t *testing.T) {
	rec := newTestRecorder(t, nil)
	ctx := context.Background()

	if err := rec.Record(ctx, sampleEntry("s1")); err != nil {
		t.Fatal(err)
	}
	if err := rec.Record(ctx, sampleEntry("s2")); err != nil {
		t.Fatal(err)
	}

	entries, _ := rec.Entries(ctx, "s1")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for s1, got %d", len(entries))
	}
}

type flakyRecorder struct {
	mu    sync.Mutex
	fail  bool
	count int
}

func (r *flakyRecorder) Record(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.fail {
		return errors.New("disk full")
	}
	return nil
}

func (r *flakyRecorder) Close() error { return nil }

func TestAsyncLoggerDrainsOnStop(t *testing.T) {
	rec := &flakyRecorder{}
	logger := NewAsyncLogger(rec, eventbus.New())

	for i := 0; i < 10; i++ {
		logger.Submit(sampleEntry("s1"))
	}
	logger.Stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.count != 10 {
		t.Errorf("expected all 10 entries written before Stop returned, got %d", rec.count)
	}
}

func TestAsyncLoggerWarnsOnWriteFailure(t *testing.T) {
	rec := &flakyRecorder{fail: true}
	bus := eventbus.New()

	var mu sync.Mutex
	var warned []eventbus.Warning
	bus.Subscribe(eventbus.TopicWarning, func(e eventbus.Event) {
		mu.Lock()
		warned = append(warned, e.Payload.(eventbus.Warning))
		mu.Unlock()
	})

	logger := NewAsyncLogger(rec, bus)
	logger.Submit(sampleEntry("s1"))
	logger.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(warned) != 1 || warned[0].Component != "reqlog" {
		t.Fatalf("write failure should surface as a warning: %+v", warned)
	}
}
