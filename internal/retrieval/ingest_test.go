package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIngestDirIndexesTextFiles(t *testing.T) {
	dir := t.TempDir()
	content := "cats\n\nfinance"
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte("binary"), 0644); err != nil {
		t.Fatal(err)
	}

	src := newTestSource(t)
	n, err := IngestDir(context.Background(), src, dir)
	if err != nil {
		t.Fatal(err)
	}
	// Both paragraphs fit one chunk; the png is skipped.
	if n != 1 || src.Len() != 1 {
		t.Errorf("indexed %d chunks (len %d), want 1", n, src.Len())
	}
}

func TestIngestDirMissingIsEmpty(t *testing.T) {
	src := newTestSource(t)
	n, err := IngestDir(context.Background(), src, filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("missing dir should index nothing, got %d", n)
	}
}

func TestChunksPacksParagraphs(t *testing.T) {
	big := strings.Repeat("x", maxChunkChars)
	got := chunks("first\n\n" + big + "\n\nlast")
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(got), got)
	}
	if got[0] != "first" || got[2] != "last" {
		t.Errorf("unexpected chunk order: %v", got)
	}
}
