package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"palaver/internal/channel"
	"palaver/internal/config"
	"palaver/internal/continuity"
	"palaver/internal/eventbus"
	"palaver/internal/llm"
	"palaver/internal/memoryopt"
	"palaver/internal/orchestrator"
	"palaver/internal/reqlog"
	"palaver/internal/retrieval"
	"palaver/internal/security"
	"palaver/internal/session"
)

const (
	keyringPlaceholder      = "[keyring]"
	secretNameLLMKey        = "llm_api_key"
	secretNameFallbackKey   = "fallback_llm_api_key"
	secretNameTelegramToken = "telegram_token"
)

// App wires the whole pipeline together and owns component lifecycles.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       *config.Config
	cfgLoader *config.Loader
	bus       *eventbus.Bus
	keyStore  *security.KeyStore
	sanitizer *security.Sanitizer

	store     *session.SQLiteStore
	recorder  *reqlog.SQLiteRecorder
	logger    *reqlog.AsyncLogger
	scheduler *memoryopt.Scheduler
	chanMgr   *channel.Manager
	orch      *orchestrator.Orchestrator
}

func NewApp() *App {
	return &App{bus: eventbus.New()}
}

// startup loads configuration and brings the pipeline up. A missing LLM key
// is fatal: there is nothing useful to run without a provider.
func (a *App) startup(ctx context.Context, loader *config.Loader) error {
	ctx, cancel := context.WithCancel(ctx)
	a.ctx = ctx
	a.cancel = cancel
	a.cfgLoader = loader

	cfg, err := loader.Load()
	if err != nil {
		log.Printf("[app] failed to load config: %v, using defaults", err)
		cfg = config.Defaults()
	}
	a.cfg = cfg

	ks, err := security.NewKeyStore(nil)
	if err != nil {
		log.Printf("[app] warning: key store unavailable: %v (secrets stay in config file)", err)
	}
	a.keyStore = ks
	a.resolveSecrets()

	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "local" {
		return fmt.Errorf("no API key configured for provider %q", cfg.LLM.Provider)
	}

	a.sanitizer = security.NewSanitizer(cfg.Security.PIIFiltering)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".palaver")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}

	a.store, err = session.NewSQLiteStore(filepath.Join(dataDir, "sessions.db"))
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	a.recorder, err = reqlog.NewSQLiteRecorder(filepath.Join(dataDir, "requests.db"), a.sanitizer)
	if err != nil {
		return fmt.Errorf("request log: %w", err)
	}
	a.logger = reqlog.NewAsyncLogger(a.recorder, a.bus)

	provider, err := a.buildProvider()
	if err != nil {
		return err
	}

	embedder := a.buildEmbedder()
	merger, err := a.buildRetrieval(dataDir, embedder)
	if err != nil {
		return err
	}
	classifier := a.buildClassifier(embedder)

	locks := session.NewLocks()
	opt := memoryopt.NewOptimizer(provider, a.store, a.bus, cfg.Memory)
	debounce := time.Duration(cfg.Memory.DebounceMs) * time.Millisecond
	a.scheduler = memoryopt.NewScheduler(opt, locks, a.bus, debounce)

	a.orch = orchestrator.New(orchestrator.Options{
		Provider:   provider,
		Store:      a.store,
		Locks:      locks,
		Merger:     merger,
		Classifier: classifier,
		Optimizer:  opt,
		Scheduler:  a.scheduler,
		Logger:     a.logger,
		Bus:        a.bus,
		Config:     cfg.Orchestrator,
		Retrieval:  cfg.Retrieval,
	})

	a.chanMgr = channel.NewManager(a.orch, a.bus)
	a.chanMgr.Register(channel.NewConsoleChannel())
	if cfg.Channels.Telegram != nil && cfg.Channels.Telegram.Token != "" {
		a.chanMgr.Register(channel.NewTelegramChannel(*cfg.Channels.Telegram))
	}
	if err := a.chanMgr.StartAll(ctx); err != nil {
		return err
	}

	a.bus.Subscribe(eventbus.TopicWarning, func(e eventbus.Event) {
		if w, ok := e.Payload.(eventbus.Warning); ok {
			log.Printf("[app] warning from %s (session %s): %v", w.Component, w.SessionID, w.Err)
		}
	})

	a.bus.Publish(eventbus.TopicStatusChange, "running")
	log.Printf("[app] running with provider %s", provider.Name())
	return nil
}

// shutdown stops components in dependency order: no new inbound messages,
// then pending memory work, then the log drain, then storage.
func (a *App) shutdown() {
	if a.bus != nil {
		a.bus.Publish(eventbus.TopicStatusChange, "stopping")
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.chanMgr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		a.chanMgr.StopAll(ctx)
		cancel()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.logger != nil {
		a.logger.Stop()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

func (a *App) buildProvider() (llm.Provider, error) {
	provider, err := llm.NewProvider(a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if a.cfg.FallbackLLM != nil && a.cfg.FallbackLLM.APIKey != "" {
		fallback, err := llm.NewProvider(*a.cfg.FallbackLLM)
		if err != nil {
			log.Printf("[app] fallback provider unusable: %v", err)
		} else {
			provider = llm.NewFallbackProvider(provider, fallback)
		}
	}
	return provider, nil
}

// buildEmbedder returns nil when the configured provider has no embeddings
// API; callers degrade to lexical classification and no retrieval.
func (a *App) buildEmbedder() retrieval.Embedder {
	switch a.cfg.LLM.Provider {
	case "openai", "openrouter", "local":
		return retrieval.NewOpenAIEmbedder(retrieval.OpenAIEmbedderConfig{
			APIKey:  a.cfg.LLM.APIKey,
			BaseURL: a.cfg.LLM.BaseURL,
			Model:   a.cfg.Retrieval.EmbeddingModel,
		})
	default:
		return nil
	}
}

func (a *App) buildRetrieval(dataDir string, embedder retrieval.Embedder) (*retrieval.Merger, error) {
	if !a.cfg.Retrieval.Enabled {
		return nil, nil
	}
	if embedder == nil {
		log.Printf("[app] retrieval enabled but provider %s has no embeddings API, disabling", a.cfg.LLM.Provider)
		return nil, nil
	}
	source, err := retrieval.NewPersistentChromemSource(filepath.Join(dataDir, "retrieval"), embedder)
	if err != nil {
		return nil, fmt.Errorf("retrieval source: %w", err)
	}
	if source.Len() == 0 {
		if _, err := retrieval.IngestDir(a.ctx, source, filepath.Join(dataDir, "knowledge")); err != nil {
			log.Printf("[app] knowledge ingest failed: %v", err)
		}
	}
	return retrieval.NewMerger(source, a.cfg.Retrieval.TopK), nil
}

func (a *App) buildClassifier(embedder retrieval.Embedder) continuity.Classifier {
	cc := a.cfg.Continuity
	if !cc.Enabled {
		return nil
	}
	if embedder != nil {
		cls, err := continuity.NewEmbeddingClassifier(embedder, cc.NewTopicThreshold, cc.MinConfidence, cc.RecentTurns)
		if err == nil {
			return cls
		}
		log.Printf("[app] embedding classifier init failed: %v, using lexical", err)
	}
	return continuity.NewLexicalClassifier(cc.NewTopicThreshold, cc.MinConfidence, cc.RecentTurns)
}

// resolveSecrets loads secrets from the key store into the in-memory config.
// On first run, plaintext secrets migrate out of config.json.
func (a *App) resolveSecrets() {
	if a.keyStore == nil {
		return
	}

	migrated := false
	resolve := func(current *string, name string) {
		switch {
		case *current == keyringPlaceholder:
			if val, err := a.keyStore.Get(name); err == nil {
				*current = val
			} else {
				log.Printf("[app] warning: failed to read %s from key store: %v", name, err)
			}
		case *current != "":
			if err := a.keyStore.Set(name, *current); err == nil {
				migrated = true
			}
		}
	}

	resolve(&a.cfg.LLM.APIKey, secretNameLLMKey)
	if a.cfg.FallbackLLM != nil {
		resolve(&a.cfg.FallbackLLM.APIKey, secretNameFallbackKey)
	}
	if a.cfg.Channels.Telegram != nil {
		resolve(&a.cfg.Channels.Telegram.Token, secretNameTelegramToken)
	}

	if migrated {
		if err := a.saveConfig(); err != nil {
			log.Printf("[app] warning: failed to save config after secret migration: %v", err)
		}
	}
}

// saveConfig writes the config file with secrets replaced by placeholders.
// The in-memory config keeps the real values.
func (a *App) saveConfig() error {
	onDisk := *a.cfg
	if onDisk.LLM.APIKey != "" {
		onDisk.LLM.APIKey = keyringPlaceholder
	}
	if a.cfg.FallbackLLM != nil {
		fb := *a.cfg.FallbackLLM
		if fb.APIKey != "" {
			fb.APIKey = keyringPlaceholder
		}
		onDisk.FallbackLLM = &fb
	}
	if a.cfg.Channels.Telegram != nil {
		tg := *a.cfg.Channels.Telegram
		if tg.Token != "" {
			tg.Token = keyringPlaceholder
		}
		onDisk.Channels.Telegram = &tg
	}
	return a.cfgLoader.Save(&onDisk)
}
