package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for context-budget decisions. It uses the
// cl100k_base encoding, a close-enough approximation across vendors.
// When the encoding cannot be loaded it falls back to a chars/4 estimate.
type Counter struct {
	mu      sync.Mutex
	encoder *tiktoken.Tiktoken
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Counter{}
	}
	return &Counter{encoder: enc}
}

// Count returns the token count for text.
func (c *Counter) Count(text string) int {
	if c.encoder == nil {
		return len(text) / 4
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoder.Encode(text, nil, nil))
}

// CountAll sums token counts across segments, adding a small per-segment
// overhead for message framing.
func (c *Counter) CountAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += 4 + c.Count(t)
	}
	return total
}
