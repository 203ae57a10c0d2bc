package security

import (
	"strings"
	"testing"

	"palaver/internal/config"
)

func allFiltersOn() config.PIIFilterConfig {
	return config.PIIFilterConfig{
		Enabled:      true,
		FilterEmails: true,
		FilterPhones: true,
		FilterCards:  true,
		FilterIPs:    true,
		FilterSSN:    true,
	}
}

func TestSanitizeEmail(t *testing.T) {
	s := NewSanitizer(allFiltersOn())

	out := s.Sanitize("contact me at alice@example.com please")
	if strings.Contains(out, "alice@example.com") {
		t.Errorf("email not masked: %q", out)
	}
	if !strings.Contains(out, "[EMAIL_1]") {
		t.Errorf("expected placeholder, got %q", out)
	}
}

func TestSanitizeStablePlaceholders(t *testing.T) {
	s := NewSanitizer(allFiltersOn())

	first := s.Sanitize("mail: bob@example.com")
	second := s.Sanitize("again: bob@example.com")
	if !strings.Contains(first, "[EMAIL_1]") || !strings.Contains(second, "[EMAIL_1]") {
		t.Errorf("same value should map to same placeholder: %q vs %q", first, second)
	}
}

func TestDisabledSanitizerPassesThrough(t *testing.T) {
	s := NewSanitizer(config.PIIFilterConfig{Enabled: false})

	in := "alice@example.com 192.168.0.1"
	if out := s.Sanitize(in); out != in {
		t.Errorf("disabled sanitizer modified text: %q", out)
	}
}

func TestSelectiveFilters(t *testing.T) {
	s := NewSanitizer(config.PIIFilterConfig{Enabled: true, FilterEmails: true})

	out := s.Sanitize("ip 10.0.0.1 mail carol@example.com")
	if !strings.Contains(out, "10.0.0.1") {
		t.Errorf("IP should be untouched when filter off: %q", out)
	}
	if strings.Contains(out, "carol@example.com") {
		t.Errorf("email should be masked: %q", out)
	}
}
