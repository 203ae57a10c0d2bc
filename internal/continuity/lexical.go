package continuity

import (
	"context"
	"strings"

	"palaver/internal/session"
)

// LexicalClassifier is the no-embedder fallback: it measures word overlap
// between the new turn and recent turns. Crude, but cheap and local.
type LexicalClassifier struct {
	threshold     float64
	minConfidence float64
	window        int
}

// NewLexicalClassifier creates an overlap-based classifier.
func NewLexicalClassifier(threshold, minConfidence float64, window int) *LexicalClassifier {
	if window <= 0 {
		window = 6
	}
	return &LexicalClassifier{
		threshold:     threshold,
		minConfidence: minConfidence,
		window:        window,
	}
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"i": true, "you": true, "it": true, "me": true, "my": true, "to": true,
	"of": true, "in": true, "on": true, "and": true, "or": true, "what": true,
	"how": true, "do": true, "does": true, "can": true, "please": true,
	"that": true, "this": true, "for": true, "with": true, "about": true,
}

func (c *LexicalClassifier) Classify(_ context.Context, content string, recent []session.Turn) Result {
	if len(recent) == 0 {
		return Result{Label: LabelContinue, Confidence: 1}
	}

	query := wordSet(content)
	if len(query) == 0 {
		// Nothing to compare; keep the context.
		return Result{Label: LabelContinue, Confidence: 1}
	}

	if len(recent) > c.window {
		recent = recent[len(recent)-c.window:]
	}

	best := 0.0
	for _, t := range recent {
		if overlap := jaccard(query, wordSet(t.Content)); overlap > best {
			best = overlap
		}
	}

	if best >= c.threshold {
		return Result{Label: LabelContinue, Confidence: clamp01(0.5 + (best - c.threshold))}
	}

	confidence := clamp01(0.5 + (c.threshold - best))
	if confidence < c.minConfidence {
		return Result{Label: LabelContinue, Confidence: 1 - confidence}
	}
	return Result{Label: LabelNewTopic, Confidence: confidence}
}

func wordSet(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if b[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}
