package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	l := NewLoaderAt(filepath.Join(t.TempDir(), "config.json"))

	cfg, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider openai, got %q", cfg.LLM.Provider)
	}
	if cfg.Memory.CompactAfterTurns != 40 {
		t.Errorf("expected default compact threshold 40, got %d", cfg.Memory.CompactAfterTurns)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	l := NewLoaderAt(path)

	cfg := Defaults()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Model = "claude-sonnet-4-5-20250514"
	cfg.Retrieval.Enabled = true
	cfg.Retrieval.TopK = 3

	if err := l.Save(cfg); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewLoaderAt(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.LLM.Provider != "anthropic" {
		t.Errorf("provider not persisted: %q", reloaded.LLM.Provider)
	}
	if !reloaded.Retrieval.Enabled || reloaded.Retrieval.TopK != 3 {
		t.Errorf("retrieval config not persisted: %+v", reloaded.Retrieval)
	}
}

func TestGetBeforeLoad(t *testing.T) {
	l := NewLoaderAt(filepath.Join(t.TempDir(), "config.json"))
	if l.Get() == nil {
		t.Fatal("Get returned nil before Load")
	}
}
