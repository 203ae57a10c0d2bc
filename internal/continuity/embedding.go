package continuity

import (
	"context"
	"log"
	"math"

	"github.com/dgraph-io/ristretto"

	"palaver/internal/retrieval"
	"palaver/internal/session"
)

// EmbeddingClassifier scores topic continuity by cosine similarity between
// the new turn and the most recent turns. Turn vectors are cached so a busy
// session embeds each turn once.
type EmbeddingClassifier struct {
	embedder      retrieval.Embedder
	cache         *ristretto.Cache
	threshold     float64 // max similarity below this suggests a topic shift
	minConfidence float64 // new_topic below this is demoted to continue
	window        int     // how many recent turns to compare against
}

// NewEmbeddingClassifier creates an embedding-based classifier.
func NewEmbeddingClassifier(embedder retrieval.Embedder, threshold, minConfidence float64, window int) (*EmbeddingClassifier, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     16 << 20, // 16MB of cached vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = 6
	}
	return &EmbeddingClassifier{
		embedder:      embedder,
		cache:         cache,
		threshold:     threshold,
		minConfidence: minConfidence,
		window:        window,
	}, nil
}

func (c *EmbeddingClassifier) Classify(ctx context.Context, content string, recent []session.Turn) Result {
	if len(recent) == 0 {
		return Result{Label: LabelContinue, Confidence: 1}
	}

	query, err := c.embed(ctx, content)
	if err != nil {
		log.Printf("[continuity] embed failed, defaulting to continue: %v", err)
		return Result{Label: LabelContinue}
	}

	if len(recent) > c.window {
		recent = recent[len(recent)-c.window:]
	}

	maxSim := -1.0
	for _, t := range recent {
		vec, err := c.embed(ctx, t.Content)
		if err != nil {
			log.Printf("[continuity] embed failed, defaulting to continue: %v", err)
			return Result{Label: LabelContinue}
		}
		if sim := cosine(query, vec); sim > maxSim {
			maxSim = sim
		}
	}

	if maxSim >= c.threshold {
		return Result{Label: LabelContinue, Confidence: clamp01(0.5 + (maxSim - c.threshold))}
	}

	confidence := clamp01(0.5 + (c.threshold - maxSim))
	if confidence < c.minConfidence {
		// Not sure enough to segment memory.
		return Result{Label: LabelContinue, Confidence: 1 - confidence}
	}
	return Result{Label: LabelNewTopic, Confidence: confidence}
}

func (c *EmbeddingClassifier) embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
