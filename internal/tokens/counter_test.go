package tokens

import "testing"

func TestCountGrowsWithText(t *testing.T) {
	c := NewCounter()

	short := c.Count("hello")
	long := c.Count("hello there, this is a much longer sentence about nothing in particular")
	if short <= 0 {
		t.Errorf("expected positive count, got %d", short)
	}
	if long <= short {
		t.Errorf("longer text should count more tokens: %d vs %d", long, short)
	}
}

func TestCountAllIncludesOverhead(t *testing.T) {
	c := NewCounter()

	single := c.Count("hi")
	framed := c.CountAll("hi")
	if framed <= single {
		t.Errorf("CountAll should add framing overhead: %d vs %d", framed, single)
	}
}

func TestFallbackEstimate(t *testing.T) {
	c := &Counter{} // no encoder

	if got := c.Count("12345678"); got != 2 {
		t.Errorf("expected chars/4 fallback = 2, got %d", got)
	}
}
