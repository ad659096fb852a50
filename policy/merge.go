package policy

import "sort"

// Merge combines role-bound specs and agent-bound specs into the single effective Spec used
// for evaluation: role policies apply first, agent policies last. Each
// slice may contain zero or more specs; within a slice, later entries also win over earlier
// ones for the "last wins" fields, since admins may bind multiple policies to the same role
// or agent.
func Merge(roleSpecs, agentSpecs []Spec) Spec {
	all := make([]Spec, 0, len(roleSpecs)+len(agentSpecs))
	all = append(all, roleSpecs...)
	all = append(all, agentSpecs...)

	if len(all) == 0 {
		return DefaultDenySpec()
	}

	merged := Spec{}
	scopeSet := map[string]struct{}{}
	allowedDomains := map[string]struct{}{}
	blockedDomains := map[string]struct{}{}
	piiFilters := map[string]struct{}{}
	redactFields := map[string]struct{}{}
	blockPatterns := map[string]struct{}{}

	for _, s := range all {
		for _, scope := range s.Scopes {
			scopeSet[scope] = struct{}{}
		}
		if s.Intent != "" {
			merged.Intent = s.Intent
		}
		if s.Guards != nil {
			for _, d := range s.Guards.AllowedDomains {
				allowedDomains[d] = struct{}{}
			}
			for _, d := range s.Guards.BlockedDomains {
				blockedDomains[d] = struct{}{}
			}
			for _, f := range s.Guards.PIIFilters {
				piiFilters[f] = struct{}{}
			}
			if s.Guards.MaxRequestSize > 0 {
				mergedMaxSize := s.Guards.MaxRequestSize
				if merged.Guards == nil {
					merged.Guards = &Guards{}
				}
				merged.Guards.MaxRequestSize = mergedMaxSize
			}
			if s.Guards.TimeWindow != nil {
				if merged.Guards == nil {
					merged.Guards = &Guards{}
				}
				merged.Guards.TimeWindow = s.Guards.TimeWindow
			}
		}
		merged.Quotas = append(merged.Quotas, s.Quotas...)
		if s.Schedule != nil {
			merged.Schedule = s.Schedule
		}
		if s.ResponseFilters != nil {
			for _, f := range s.ResponseFilters.RedactFields {
				redactFields[f] = struct{}{}
			}
			for _, p := range s.ResponseFilters.BlockPatterns {
				blockPatterns[p] = struct{}{}
			}
			if merged.ResponseFilters == nil {
				merged.ResponseFilters = &ResponseFilters{}
			}
			merged.ResponseFilters.TruncateFields = append(merged.ResponseFilters.TruncateFields, s.ResponseFilters.TruncateFields...)
		}
	}

	merged.Scopes = setToSortedSlice(scopeSet)

	if merged.Guards != nil || len(allowedDomains) > 0 || len(blockedDomains) > 0 || len(piiFilters) > 0 {
		if merged.Guards == nil {
			merged.Guards = &Guards{}
		}
		merged.Guards.AllowedDomains = setToSortedSlice(allowedDomains)
		merged.Guards.BlockedDomains = setToSortedSlice(blockedDomains)
		merged.Guards.PIIFilters = setToSortedSlice(piiFilters)
	}

	if merged.ResponseFilters != nil || len(redactFields) > 0 || len(blockPatterns) > 0 {
		if merged.ResponseFilters == nil {
			merged.ResponseFilters = &ResponseFilters{}
		}
		merged.ResponseFilters.RedactFields = setToSortedSlice(redactFields)
		merged.ResponseFilters.BlockPatterns = setToSortedSlice(blockPatterns)
	}

	return merged
}

func setToSortedSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
