package policy

// DriftStatus reports whether a PolicyRecord's content has changed since it was last
// checked. Never consulted on the request path.
type DriftStatus string

const (
	DriftStatusUnchanged DriftStatus = "unchanged"
	DriftStatusChanged   DriftStatus = "changed"
	DriftStatusUnknown   DriftStatus = "unknown"
)

// DriftResult is the outcome of DetectDrift.
type DriftResult struct {
	Status  DriftStatus
	Message string
}

// DetectDrift compares a PolicyRecord's current spec_hash against a previously recorded hash
// supplied by the caller; PolicyRecord itself stores no last-known hash. Never called by the
// request pipeline, and no gatewayctl command calls it.
func DetectDrift(currentHash, lastKnownHash [32]byte, hasLastKnown bool) DriftResult {
	if !hasLastKnown {
		return DriftResult{Status: DriftStatusUnknown, Message: "no previously recorded hash to compare against"}
	}
	if currentHash == lastKnownHash {
		return DriftResult{Status: DriftStatusUnchanged, Message: "policy document unchanged since last check"}
	}
	return DriftResult{Status: DriftStatusChanged, Message: "policy document has changed since last recorded hash"}
}
