package policy

import (
	"fmt"

	"github.com/byteness/toolgateway/validate"
)

// IssueSeverity is the severity of a single Lint finding.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ValidationIssue is a single problem found while linting a Spec document: location-tagged,
// with an optional fix suggestion.
type ValidationIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Location   string        `json:"location"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// ValidationResult aggregates the issues found for one Spec document.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
}

// Lint checks a Spec document for structural problems beyond what YAML unmarshaling alone
// catches — it does not duplicate Evaluate's runtime semantics, only the document shape an
// admin CLI would want flagged before activation.
func Lint(spec Spec) ValidationResult {
	result := ValidationResult{Valid: true}

	if len(spec.Scopes) == 0 && spec.Intent != "default_deny" {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity:   SeverityWarning,
			Location:   "scopes",
			Message:    "no scopes granted; this policy allows nothing",
			Suggestion: `add at least one "tool:action" scope or set intent to "default_deny" to make the denial explicit`,
		})
	}

	for i, scope := range spec.Scopes {
		if err := validate.ValidateIdentifier(scope); err != nil {
			result.Valid = false
			result.Issues = append(result.Issues, ValidationIssue{
				Severity:   SeverityError,
				Location:   fmt.Sprintf("scopes[%d]", i),
				Message:    fmt.Sprintf("invalid scope %q: %v", scope, err),
				Suggestion: `scopes must look like "tool:action", using only alphanumerics, hyphen, underscore, slash, colon`,
			})
		}
	}

	for i, q := range spec.Quotas {
		if _, ok := q.Window.Duration(); !ok {
			result.Valid = false
			result.Issues = append(result.Issues, ValidationIssue{
				Severity:   SeverityError,
				Location:   fmt.Sprintf("quotas[%d].window", i),
				Message:    fmt.Sprintf("unknown quota window %q", q.Window),
				Suggestion: "use one of: 1h, 24h, 7d",
			})
		}
		if q.Limit <= 0 {
			result.Valid = false
			result.Issues = append(result.Issues, ValidationIssue{
				Severity: SeverityError,
				Location: fmt.Sprintf("quotas[%d].limit", i),
				Message:  "limit must be positive",
			})
		}
	}

	if spec.Guards != nil && spec.Guards.TimeWindow != nil {
		checkTimeWindowShape(*spec.Guards.TimeWindow, "guards.time_window", &result)
	}
	if spec.Schedule != nil && spec.Schedule.AllowedHours != nil {
		checkTimeWindowShape(*spec.Schedule.AllowedHours, "schedule.allowed_hours", &result)
	}
	if spec.Schedule != nil {
		for _, d := range spec.Schedule.AllowedDays {
			if d < 0 || d > 6 {
				result.Valid = false
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: SeverityError,
					Location: "schedule.allowed_days",
					Message:  fmt.Sprintf("day %d out of range 0-6", d),
				})
			}
		}
	}

	return result
}

func checkTimeWindowShape(w TimeWindow, location string, result *ValidationResult) {
	if len(w.Start) != 5 || len(w.End) != 5 || w.Start[2] != ':' || w.End[2] != ':' {
		result.Valid = false
		result.Issues = append(result.Issues, ValidationIssue{
			Severity:   SeverityError,
			Location:   location,
			Message:    "start/end must be HH:MM",
			Suggestion: `e.g. "09:00"`,
		})
		return
	}
	if w.Start > w.End {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity:   SeverityWarning,
			Location:   location,
			Message:    "start is after end; this window crosses midnight and will never match (lexicographic comparison, no wraparound)",
			Suggestion: "split into two windows if overnight coverage is intended",
		})
	}
}
