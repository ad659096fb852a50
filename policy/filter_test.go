package policy

import "testing"

func TestApplyResponseFiltersNilPassesThrough(t *testing.T) {
	data := map[string]any{"a": "b"}
	result := ApplyResponseFilters(nil, data)
	m, ok := result.(map[string]any)
	if !ok || m["a"] != "b" {
		t.Fatalf("expected passthrough, got %+v", result)
	}
}

func TestApplyResponseFiltersRedactsField(t *testing.T) {
	filters := &ResponseFilters{RedactFields: []string{"ssn"}}
	data := map[string]any{"ssn": "123-45-6789", "name": "alice"}

	result := ApplyResponseFilters(filters, data)
	m := result.(map[string]any)
	if m["ssn"] != "[REDACTED]" {
		t.Fatalf("expected redaction, got %+v", m)
	}
	if m["name"] != "alice" {
		t.Fatalf("expected unrelated field untouched, got %+v", m)
	}
}

func TestApplyResponseFiltersTruncatesField(t *testing.T) {
	filters := &ResponseFilters{TruncateFields: []TruncateField{{Field: "body", MaxLength: 5}}}
	data := map[string]any{"body": "0123456789"}

	result := ApplyResponseFilters(filters, data)
	m := result.(map[string]any)
	if m["body"] != "01234" {
		t.Fatalf("expected truncated field, got %+v", m["body"])
	}
}

func TestApplyResponseFiltersBlocksOnPatternMatch(t *testing.T) {
	filters := &ResponseFilters{BlockPatterns: []string{"forbidden-token"}}
	data := map[string]any{"body": "contains forbidden-token here"}

	result := ApplyResponseFilters(filters, data)
	blocked, ok := result.(BlockedEnvelope)
	if !ok || !blocked.Blocked || blocked.Pattern != "forbidden-token" {
		t.Fatalf("expected blocked envelope, got %+v", result)
	}
}
