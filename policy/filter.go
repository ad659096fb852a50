package policy

import "strings"

// BlockedEnvelope replaces an entire response when a block pattern matches.
type BlockedEnvelope struct {
	Blocked bool   `json:"blocked"`
	Pattern string `json:"pattern"`
}

// ApplyResponseFilters runs the three response-filtering steps, in order, over data (an
// adapter's decoded JSON response): field redaction, length truncation, then a naive
// substring block-pattern scan that, on a hit, discards the filtered result entirely and
// returns a BlockedEnvelope instead.
func ApplyResponseFilters(filters *ResponseFilters, data map[string]any) (result any) {
	if filters == nil {
		return data
	}

	for _, field := range filters.RedactFields {
		if _, ok := data[field]; ok {
			data[field] = "[REDACTED]"
		}
	}

	for _, tf := range filters.TruncateFields {
		if v, ok := data[tf.Field].(string); ok && len(v) > tf.MaxLength {
			data[tf.Field] = v[:tf.MaxLength]
		}
	}

	if pattern, hit := scanBlockPatterns(filters.BlockPatterns, data); hit {
		return BlockedEnvelope{Blocked: true, Pattern: pattern}
	}

	return data
}

// scanBlockPatterns does a naive substring scan over every
// string-valued field in data.
func scanBlockPatterns(patterns []string, data map[string]any) (string, bool) {
	for _, pattern := range patterns {
		for _, v := range data {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if strings.Contains(s, pattern) {
				return pattern, true
			}
		}
	}
	return "", false
}
