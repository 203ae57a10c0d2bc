package retrieval

import (
	"context"
	"fmt"
	"log"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Document is a unit of indexable context.
type Document struct {
	ID       string
	Text     string
	SourceID string
}

// ChromemSource implements Source over chromem-go, a pure Go embedded
// vector database. Documents are embedded on ingest; queries are embedded
// on fetch.
type ChromemSource struct {
	mu       sync.Mutex
	col      *chromem.Collection
	embedder Embedder
	count    int
}

// NewChromemSource creates an in-memory vector source.
func NewChromemSource(embedder Embedder) (*ChromemSource, error) {
	db := chromem.NewDB()
	// Embeddings are supplied by us, so no collection-level embedding func.
	col, err := db.CreateCollection("context", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemSource{col: col, embedder: embedder}, nil
}

// NewPersistentChromemSource creates a vector source backed by an on-disk
// database, so the index survives restarts.
func NewPersistentChromemSource(path string, embedder Embedder) (*ChromemSource, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	col, err := db.GetOrCreateCollection("context", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return &ChromemSource{col: col, embedder: embedder, count: col.Count()}, nil
}

// Index embeds and stores a document.
func (s *ChromemSource) Index(ctx context.Context, doc Document) error {
	embedding, err := s.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.col.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Text,
		Embedding: embedding,
		Metadata:  map[string]string{"source": doc.SourceID},
	})
	if err != nil {
		return fmt.Errorf("add document %s: %w", doc.ID, err)
	}
	s.count++
	return nil
}

// Len returns the number of indexed documents.
func (s *ChromemSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Fetch returns up to topK snippets ranked descending by similarity.
func (s *ChromemSource) Fetch(ctx context.Context, query string, topK int) ([]Snippet, error) {
	s.mu.Lock()
	n := s.count
	s.mu.Unlock()

	if n == 0 || topK <= 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.col.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, Snippet{
			Text:     r.Content,
			Score:    float64(r.Similarity),
			SourceID: r.Metadata["source"],
		})
	}
	log.Printf("[retrieval] %d snippets for query %q", len(snippets), truncate(query, 60))
	return snippets, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
