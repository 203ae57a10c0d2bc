package continuity

import (
	"context"
	"errors"
	"testing"

	"palaver/internal/session"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func turns(contents ...string) []session.Turn {
	var out []session.Turn
	for _, c := range contents {
		out = append(out, session.Turn{Role: session.RoleUser, Content: c})
	}
	return out
}

func TestEmbeddingContinuesOnSimilarTopic(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"tell me about cats":  {1, 0, 0},
		"do cats like water?": {0.95, 0.05, 0},
	}}
	c, err := NewEmbeddingClassifier(emb, 0.25, 0.6, 6)
	if err != nil {
		t.Fatal(err)
	}

	res := c.Classify(context.Background(), "do cats like water?", turns("tell me about cats"))
	if res.Label != LabelContinue {
		t.Errorf("expected continue, got %s (%.2f)", res.Label, res.Confidence)
	}
}

func TestEmbeddingDetectsTopicShift(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"tell me about cats": {1, 0, 0},
		"explain my taxes":   {0, 1, 0},
	}}
	c, err := NewEmbeddingClassifier(emb, 0.25, 0.6, 6)
	if err != nil {
		t.Fatal(err)
	}

	res := c.Classify(context.Background(), "explain my taxes", turns("tell me about cats"))
	if res.Label != LabelNewTopic {
		t.Errorf("expected new_topic, got %s (%.2f)", res.Label, res.Confidence)
	}
	if res.Confidence < 0.6 {
		t.Errorf("confidence below threshold should not yield new_topic: %.2f", res.Confidence)
	}
}

func TestEmbeddingFailsOpenOnError(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("embeddings down")}
	c, err := NewEmbeddingClassifier(emb, 0.25, 0.6, 6)
	if err != nil {
		t.Fatal(err)
	}

	res := c.Classify(context.Background(), "anything", turns("prior turn"))
	if res.Label != LabelContinue {
		t.Errorf("errors must fail open to continue, got %s", res.Label)
	}
}

func TestEmptyHistoryContinues(t *testing.T) {
	c := NewLexicalClassifier(0.1, 0.6, 6)

	res := c.Classify(context.Background(), "first message ever", nil)
	if res.Label != LabelContinue || res.Confidence != 1 {
		t.Errorf("first turn should continue with full confidence, got %+v", res)
	}
}

func TestLexicalContinue(t *testing.T) {
	c := NewLexicalClassifier(0.1, 0.6, 6)

	res := c.Classify(context.Background(), "what breed of dog is fastest?",
		turns("I love my dog", "which dog breed sheds least?"))
	if res.Label != LabelContinue {
		t.Errorf("expected continue, got %s (%.2f)", res.Label, res.Confidence)
	}
}

func TestLexicalNewTopic(t *testing.T) {
	c := NewLexicalClassifier(0.1, 0.6, 6)

	res := c.Classify(context.Background(), "summarize quarterly revenue figures",
		turns("I love my dog", "which dog breed sheds least?"))
	if res.Label != LabelNewTopic {
		t.Errorf("expected new_topic, got %s (%.2f)", res.Label, res.Confidence)
	}
}

func TestLexicalEmptyContentContinues(t *testing.T) {
	c := NewLexicalClassifier(0.1, 0.6, 6)

	res := c.Classify(context.Background(), "???", turns("hello there"))
	if res.Label != LabelContinue {
		t.Errorf("content with no signal should continue, got %s", res.Label)
	}
}
