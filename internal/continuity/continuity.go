package continuity

import (
	"context"

	"palaver/internal/session"
)

// Label is the classification outcome for a new turn.
type Label string

const (
	LabelContinue Label = "continue"
	LabelNewTopic Label = "new_topic"
)

// Result is a classification with its confidence in [0, 1]. Results are
// consumed once per exchange and not persisted.
type Result struct {
	Label      Label
	Confidence float64
}

// Classifier decides whether a new user turn continues the current topic.
// Implementations fail open: on any internal error they return continue,
// since a wrong new_topic segments memory and loses context.
type Classifier interface {
	Classify(ctx context.Context, content string, recent []session.Turn) Result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
