package policy

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gobwas/glob"

	"github.com/byteness/toolgateway/cryptoutil"
	"github.com/byteness/toolgateway/gatewayerr"
	"github.com/byteness/toolgateway/store"
)

// DenyReason is the stable kind attached to a deny audit log entry.
type DenyReason string

const (
	ReasonScope          DenyReason = "SCOPE"
	ReasonIntent         DenyReason = "INTENT"
	ReasonSize           DenyReason = "SIZE"
	ReasonDomainBlocked  DenyReason = "DOMAIN_BLOCKED"
	ReasonDomainNotAllowed DenyReason = "DOMAIN_NOT_ALLOWED"
	ReasonTimeWindow     DenyReason = "TIME_WINDOW"
	ReasonSchedule       DenyReason = "SCHEDULE"
	ReasonQuota          DenyReason = "QUOTA"
)

// Request is the input to Evaluate: everything the policy engine needs to know about one
// proposed tool invocation.
type Request struct {
	Tool          string
	Action        string
	Params        map[string]any
	CallerIntent  string
	Now           time.Time
}

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Detail  map[string]any
}

// Evaluate runs the merged spec against req in a fixed order: scope, intent,
// guards, schedule, quotas. The first failure wins. quotas is typically a store.QuotaStore;
// it is accepted as an interface here so tests can substitute a fake.
func Evaluate(ctx context.Context, spec Spec, policyID string, req Request, quotas store.QuotaStore) (Decision, error) {
	scopeKey := fmt.Sprintf("%s:%s", req.Tool, req.Action)

	if !containsString(spec.Scopes, scopeKey) {
		return Decision{Allowed: false, Reason: ReasonScope, Detail: map[string]any{"scope": scopeKey}}, nil
	}

	if spec.Intent != "" && req.CallerIntent != "" && spec.Intent != req.CallerIntent {
		return Decision{Allowed: false, Reason: ReasonIntent, Detail: map[string]any{"expected": spec.Intent, "got": req.CallerIntent}}, nil
	}

	if spec.Guards != nil {
		if d, ok, err := evaluateGuards(*spec.Guards, req); err != nil {
			return Decision{}, err
		} else if !ok {
			return d, nil
		}
	}

	if spec.Schedule != nil && spec.Schedule.Enabled {
		if !scheduleAllows(*spec.Schedule, req.Now) {
			return Decision{Allowed: false, Reason: ReasonSchedule}, nil
		}
	}

	for _, q := range spec.Quotas {
		if q.Action != scopeKey {
			continue
		}
		window, ok := q.Window.Duration()
		if !ok {
			continue
		}
		quotaKey := fmt.Sprintf("%s|%s", q.Action, q.Window)
		before, admitted, err := quotas.IncrementQuota(ctx, policyID, quotaKey, q.Limit, time.Duration(window)*time.Second, req.Now)
		if err != nil {
			return Decision{}, err
		}
		if !admitted {
			return Decision{Allowed: false, Reason: ReasonQuota, Detail: map[string]any{
				"current": before.Current, "limit": q.Limit, "reset_at": before.ResetAt,
			}}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

func evaluateGuards(g Guards, req Request) (Decision, bool, error) {
	if g.MaxRequestSize > 0 {
		canonical, err := cryptoutil.Canonical(req.Params)
		if err != nil {
			return Decision{}, false, gatewayerr.Wrap(gatewayerr.Validation, "canonicalize params for size guard", err)
		}
		if len(canonical) > g.MaxRequestSize {
			return Decision{Allowed: false, Reason: ReasonSize, Detail: map[string]any{"size": len(canonical), "max": g.MaxRequestSize}}, false, nil
		}
	}

	if req.Tool == "http_fetch" && req.Action == "get" {
		rawURL, _ := req.Params["url"].(string)
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return Decision{Allowed: false, Reason: ReasonDomainBlocked, Detail: map[string]any{"error": "unparseable url"}}, false, nil
		}
		host := parsed.Hostname()

		for _, pattern := range g.BlockedDomains {
			if domainMatches(pattern, host) {
				return Decision{Allowed: false, Reason: ReasonDomainBlocked, Detail: map[string]any{"host": host}}, false, nil
			}
		}
		if len(g.AllowedDomains) > 0 {
			matched := false
			for _, pattern := range g.AllowedDomains {
				if domainMatches(pattern, host) {
					matched = true
					break
				}
			}
			if !matched {
				return Decision{Allowed: false, Reason: ReasonDomainNotAllowed, Detail: map[string]any{"host": host}}, false, nil
			}
		}
	}

	if g.TimeWindow != nil {
		if !timeWindowAllows(*g.TimeWindow, req.Now) {
			return Decision{Allowed: false, Reason: ReasonTimeWindow}, false, nil
		}
	}

	return Decision{}, true, nil
}

// domainMatches supports both exact hostnames and glob patterns (e.g. "*.example.com").
func domainMatches(pattern, host string) bool {
	if pattern == host {
		return true
	}
	g, err := glob.Compile(pattern, '.')
	if err != nil {
		return false
	}
	return g.Match(host)
}

// timeWindowAllows implements the lexicographic, non-wrap-aware HH:MM comparison fixed by
// a window crossing midnight (start > end) never matches, by design.
func timeWindowAllows(w TimeWindow, now time.Time) bool {
	loc := time.UTC
	if w.Timezone != "" {
		if l, err := time.LoadLocation(w.Timezone); err == nil {
			loc = l
		}
	}
	clock := now.In(loc).Format("15:04")
	return w.Start <= clock && clock <= w.End
}

func scheduleAllows(s Schedule, now time.Time) bool {
	weekday := int(now.UTC().Weekday())
	if len(s.AllowedDays) > 0 && !containsInt(s.AllowedDays, weekday) {
		return false
	}
	if s.AllowedHours != nil {
		return timeWindowAllows(*s.AllowedHours, now)
	}
	return true
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(is []int, i int) bool {
	for _, v := range is {
		if v == i {
			return true
		}
	}
	return false
}
