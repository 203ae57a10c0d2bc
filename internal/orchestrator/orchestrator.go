package orchestrator

import (
	"context"
	"log"
	"strings"
	"time"

	"palaver/internal/config"
	"palaver/internal/continuity"
	"palaver/internal/eventbus"
	"palaver/internal/llm"
	"palaver/internal/memoryopt"
	"palaver/internal/reqlog"
	"palaver/internal/retrieval"
	"palaver/internal/session"
	"palaver/internal/tokens"
)

// Orchestrator drives one exchange end to end: context assembly, provider
// dispatch, persistence, logging, and the memory update decision. Exchanges
// for the same session are serialized; different sessions run concurrently.
type Orchestrator struct {
	provider   llm.Provider
	store      session.Store
	locks      *session.Locks
	merger     *retrieval.Merger
	classifier continuity.Classifier
	optimizer  *memoryopt.Optimizer
	scheduler  *memoryopt.Scheduler
	logger     *reqlog.AsyncLogger
	bus        *eventbus.Bus
	counter    *tokens.Counter
	cfg        config.OrchestratorConfig
	retrCfg    config.RetrievalConfig
}

// Options collects orchestrator dependencies. Classifier, Merger, Scheduler,
// and Logger may be nil; the orchestrator then skips the concern they cover.
type Options struct {
	Provider   llm.Provider
	Store      session.Store
	Locks      *session.Locks
	Merger     *retrieval.Merger
	Classifier continuity.Classifier
	Optimizer  *memoryopt.Optimizer
	Scheduler  *memoryopt.Scheduler
	Logger     *reqlog.AsyncLogger
	Bus        *eventbus.Bus
	Config     config.OrchestratorConfig
	Retrieval  config.RetrievalConfig
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		provider:   opts.Provider,
		store:      opts.Store,
		locks:      opts.Locks,
		merger:     opts.Merger,
		classifier: opts.Classifier,
		optimizer:  opts.Optimizer,
		scheduler:  opts.Scheduler,
		logger:     opts.Logger,
		bus:        opts.Bus,
		counter:    tokens.NewCounter(),
		cfg:        opts.Config,
		retrCfg:    opts.Retrieval,
	}
}

// Reply is the final result of a non-streaming exchange.
type Reply struct {
	Text           string
	Usage          llm.Usage
	Classification continuity.Result
}

// Chunk is one unit of a streaming reply. A stream always ends with a single
// terminal chunk: Done=true, with Err set when the exchange failed.
type Chunk struct {
	Text      string
	Done      bool
	Truncated bool
	Err       error
}

// Handle runs one complete non-streaming exchange. The user turn is persisted
// before dispatch, so a provider failure never loses what the user said.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, content string) (*Reply, error) {
	unlock := o.locks.Acquire(sessionID)
	defer unlock()

	o.setState(sessionID, StateReceived)

	asm, err := o.assemble(ctx, sessionID, content)
	if err != nil {
		o.setState(sessionID, StateFailed)
		return nil, err
	}
	o.setState(sessionID, StateContextAssembled)

	if _, err := o.store.AppendTurn(ctx, sessionID, session.Turn{
		Role:     session.RoleUser,
		Content:  content,
		Snippets: asm.snippets,
	}); err != nil {
		o.setState(sessionID, StateFailed)
		return nil, err
	}

	o.setState(sessionID, StateDispatched)
	o.publish(eventbus.TopicLLMRequest, asm.request)
	dctx, cancel := o.deadline(ctx)
	defer cancel()

	start := time.Now()
	resp, err := o.provider.Chat(dctx, asm.request)
	latency := time.Since(start)
	if err != nil {
		o.submitLog(sessionID, asm.request, nil, err, latency)
		o.setState(sessionID, StateFailed)
		return nil, err
	}
	o.publish(eventbus.TopicLLMResponse, resp)
	o.setState(sessionID, StateCompleted)

	if _, err := o.store.AppendTurn(ctx, sessionID, session.Turn{
		Role:    session.RoleAssistant,
		Content: resp.Content,
	}); err != nil {
		o.setState(sessionID, StateFailed)
		return nil, err
	}

	o.submitLog(sessionID, asm.request, resp, nil, latency)
	o.setState(sessionID, StateLogged)

	o.maybeOptimize(ctx, sessionID, asm.classification)
	o.setState(sessionID, StateMemoryUpdated)
	o.setState(sessionID, StateDone)

	return &Reply{
		Text:           resp.Content,
		Usage:          resp.Usage,
		Classification: asm.classification,
	}, nil
}

// HandleStream runs one streaming exchange. The returned channel delivers
// content deltas and exactly one terminal chunk; the session stays locked
// until that terminal chunk, so a concurrent exchange cannot interleave.
func (o *Orchestrator) HandleStream(ctx context.Context, sessionID, content string) (<-chan Chunk, error) {
	unlock := o.locks.Acquire(sessionID)

	o.setState(sessionID, StateReceived)

	asm, err := o.assemble(ctx, sessionID, content)
	if err != nil {
		o.setState(sessionID, StateFailed)
		unlock()
		return nil, err
	}
	o.setState(sessionID, StateContextAssembled)

	if _, err := o.store.AppendTurn(ctx, sessionID, session.Turn{
		Role:     session.RoleUser,
		Content:  content,
		Snippets: asm.snippets,
	}); err != nil {
		o.setState(sessionID, StateFailed)
		unlock()
		return nil, err
	}

	o.setState(sessionID, StateDispatched)
	o.publish(eventbus.TopicLLMRequest, asm.request)
	dctx, cancel := o.deadline(ctx)

	start := time.Now()
	events, err := o.provider.StreamChat(dctx, asm.request)
	if err != nil {
		cancel()
		o.submitLog(sessionID, asm.request, nil, err, time.Since(start))
		o.setState(sessionID, StateFailed)
		unlock()
		return nil, err
	}
	o.setState(sessionID, StateStreaming)

	out := make(chan Chunk, 16)
	go func() {
		defer unlock()
		defer cancel()
		defer close(out)

		// A consumer that abandons the stream must not pin the session lock:
		// once ctx is gone, chunks are dropped and the terminal work still runs.
		emit := func(c Chunk) {
			select {
			case out <- c:
			case <-ctx.Done():
			}
		}

		var full strings.Builder
		var usage llm.Usage
		truncated := false
		var streamErr error

		for ev := range events {
			if ev.Err != nil {
				streamErr = ev.Err
			}
			if ev.ContentDelta != "" {
				full.WriteString(ev.ContentDelta)
				emit(Chunk{Text: ev.ContentDelta})
			}
			if ev.Usage != nil {
				usage = *ev.Usage
			}
			if ev.Truncated {
				truncated = true
			}
			if ev.Done {
				break
			}
		}

		latency := time.Since(start)
		text := full.String()

		if streamErr != nil {
			// A truncated partial reply is still persisted: the user saw it.
			// The exchange itself failed regardless.
			if text != "" {
				if _, err := o.store.AppendTurn(ctx, sessionID, session.Turn{
					Role:    session.RoleAssistant,
					Content: text,
				}); err != nil {
					o.warn(sessionID, err)
				}
				o.submitLog(sessionID, asm.request, &llm.ChatResponse{Content: text, Usage: usage}, streamErr, latency)
			} else {
				o.submitLog(sessionID, asm.request, nil, streamErr, latency)
			}
			o.setState(sessionID, StateFailed)
			emit(Chunk{Done: true, Truncated: text != "" || truncated, Err: streamErr})
			return
		}
		o.setState(sessionID, StateCompleted)

		if _, err := o.store.AppendTurn(ctx, sessionID, session.Turn{
			Role:    session.RoleAssistant,
			Content: text,
		}); err != nil {
			o.setState(sessionID, StateFailed)
			emit(Chunk{Done: true, Err: err})
			return
		}

		resp := &llm.ChatResponse{Content: text, Usage: usage}
		o.publish(eventbus.TopicLLMResponse, resp)
		o.submitLog(sessionID, asm.request, resp, nil, latency)
		o.setState(sessionID, StateLogged)

		o.maybeOptimize(ctx, sessionID, asm.classification)
		o.setState(sessionID, StateMemoryUpdated)
		o.setState(sessionID, StateDone)

		emit(Chunk{Done: true, Truncated: truncated})
	}()

	return out, nil
}

func (o *Orchestrator) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.DeadlineSecs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(o.cfg.DeadlineSecs)*time.Second)
}

func (o *Orchestrator) setState(sessionID string, s State) {
	o.publish(eventbus.TopicExchangeState, StateChange{SessionID: sessionID, State: s})
}

func (o *Orchestrator) publish(topic eventbus.Topic, payload any) {
	if o.bus != nil {
		o.bus.Publish(topic, payload)
	}
}

func (o *Orchestrator) submitLog(sessionID string, req *llm.ChatRequest, resp *llm.ChatResponse, err error, latency time.Duration) {
	if o.logger == nil {
		return
	}
	e := reqlog.Entry{
		SessionID: sessionID,
		Request:   req,
		Response:  resp,
		Latency:   latency,
	}
	if err != nil {
		e.ErrText = err.Error()
	}
	o.logger.Submit(e)
}

// maybeOptimize decides whether the session's memory needs compaction and
// hands the work to the background scheduler. Failures here never surface to
// the caller; the reply is already committed.
func (o *Orchestrator) maybeOptimize(ctx context.Context, sessionID string, cls continuity.Result) {
	if o.optimizer == nil || o.scheduler == nil {
		return
	}
	var boundary int64
	sum, err := o.store.Summary(ctx, sessionID)
	if err != nil {
		o.warn(sessionID, err)
		return
	}
	if sum != nil {
		boundary = sum.Boundary
	}
	uncovered, err := o.store.TurnsAfter(ctx, sessionID, boundary)
	if err != nil {
		o.warn(sessionID, err)
		return
	}
	if o.optimizer.ShouldOptimize(len(uncovered), cls.Label == continuity.LabelNewTopic) {
		o.scheduler.Submit(sessionID)
	}
}

func (o *Orchestrator) warn(sessionID string, err error) {
	log.Printf("[orchestrator] session %s: %v", sessionID, err)
	if o.bus != nil {
		o.bus.Warn("orchestrator", sessionID, err)
	}
}
