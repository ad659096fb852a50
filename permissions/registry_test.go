package permissions

import (
	"sort"
	"testing"
)

func TestGetFeaturePermissions(t *testing.T) {
	tests := []struct {
		name    string
		feature Feature
		wantOK  bool
	}{
		{"agent_crud found", FeatureAgentCRUD, true},
		{"token_crud found", FeatureTokenCRUD, true},
		{"policy_crud found", FeaturePolicyCRUD, true},
		{"quota_increment found", FeatureQuotaIncrement, true},
		{"credential_crud found", FeatureCredentialCRUD, true},
		{"credential_unwrap found", FeatureCredentialUnwrap, true},
		{"audit_append found", FeatureAuditAppend, true},
		{"metrics_export found", FeatureMetricsExport, true},
		{"infra_provision found", FeatureInfraProvision, true},
		{"unknown not found", Feature("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, ok := GetFeaturePermissions(tt.feature)
			if ok != tt.wantOK {
				t.Fatalf("GetFeaturePermissions(%s) ok = %v, want %v", tt.feature, ok, tt.wantOK)
			}
			if ok && fp.Feature != tt.feature {
				t.Errorf("GetFeaturePermissions(%s).Feature = %v, want %v", tt.feature, fp.Feature, tt.feature)
			}
		})
	}
}

func TestGetFeaturePermissions_NonEmptyPermissions(t *testing.T) {
	for _, f := range AllFeatures() {
		fp, ok := GetFeaturePermissions(f)
		if !ok {
			t.Errorf("feature %s missing from registry", f)
			continue
		}
		if len(fp.Permissions) == 0 {
			t.Errorf("feature %s has no permissions", f)
		}
		for _, p := range fp.Permissions {
			if p.Service == "" {
				t.Errorf("feature %s has permission with empty service", f)
			}
			if len(p.Actions) == 0 {
				t.Errorf("feature %s has permission with no actions", f)
			}
			if p.Resource == "" {
				t.Errorf("feature %s has permission with empty resource", f)
			}
			if p.Description == "" {
				t.Errorf("feature %s has permission with empty description", f)
			}
		}
	}
}

func TestGetSubsystemPermissions(t *testing.T) {
	tests := []struct {
		subsystem    Subsystem
		wantFeatures []Feature
	}{
		{SubsystemAgentStore, []Feature{FeatureAgentCRUD}},
		{SubsystemTokenStore, []Feature{FeatureTokenCRUD}},
		{SubsystemPolicyStore, []Feature{FeaturePolicyCRUD}},
		{SubsystemQuotaStore, []Feature{FeatureQuotaIncrement}},
		{SubsystemCredentialVault, []Feature{FeatureCredentialCRUD, FeatureCredentialUnwrap}},
		{SubsystemAuditLog, []Feature{FeatureAuditAppend}},
		{SubsystemObservability, []Feature{FeatureMetricsExport}},
		{SubsystemInfra, []Feature{FeatureInfraProvision}},
	}

	for _, tt := range tests {
		t.Run(string(tt.subsystem), func(t *testing.T) {
			got := GetSubsystemPermissions(tt.subsystem)
			if len(got) != len(tt.wantFeatures) {
				t.Fatalf("GetSubsystemPermissions(%s) returned %d entries, want %d", tt.subsystem, len(got), len(tt.wantFeatures))
			}
			for i, fp := range got {
				if fp.Feature != tt.wantFeatures[i] {
					t.Errorf("GetSubsystemPermissions(%s)[%d].Feature = %v, want %v", tt.subsystem, i, fp.Feature, tt.wantFeatures[i])
				}
				if fp.Subsystem != tt.subsystem {
					t.Errorf("GetSubsystemPermissions(%s)[%d].Subsystem = %v, want %v", tt.subsystem, i, fp.Subsystem, tt.subsystem)
				}
			}
		})
	}
}

func TestGetAllPermissions(t *testing.T) {
	all := GetAllPermissions()
	if len(all) != len(AllFeatures()) {
		t.Fatalf("GetAllPermissions() returned %d entries, want %d", len(all), len(AllFeatures()))
	}

	seen := make(map[Feature]bool)
	for _, fp := range all {
		seen[fp.Feature] = true
	}
	for _, f := range AllFeatures() {
		if !seen[f] {
			t.Errorf("GetAllPermissions() missing feature %s", f)
		}
	}
}

func TestRuntimePermissions(t *testing.T) {
	runtime := RuntimePermissions()

	wantOptionalOut := map[Feature]bool{
		FeatureMetricsExport:  true,
		FeatureInfraProvision: true,
	}

	for _, fp := range runtime {
		if wantOptionalOut[fp.Feature] {
			t.Errorf("RuntimePermissions() unexpectedly included optional feature %s", fp.Feature)
		}
		if fp.Optional {
			t.Errorf("RuntimePermissions() included an Optional feature permission: %s", fp.Feature)
		}
	}

	wantIncluded := []Feature{
		FeatureAgentCRUD,
		FeatureTokenCRUD,
		FeaturePolicyCRUD,
		FeatureQuotaIncrement,
		FeatureCredentialCRUD,
		FeatureCredentialUnwrap,
		FeatureAuditAppend,
	}
	seen := make(map[Feature]bool)
	for _, fp := range runtime {
		seen[fp.Feature] = true
	}
	for _, f := range wantIncluded {
		if !seen[f] {
			t.Errorf("RuntimePermissions() missing required feature %s", f)
		}
	}
}

func TestUniqueActions(t *testing.T) {
	perms := []FeaturePermissions{
		{
			Permissions: []Permission{
				{Service: "dynamodb", Actions: []string{"dynamodb:GetItem", "dynamodb:PutItem"}},
			},
		},
		{
			Permissions: []Permission{
				{Service: "dynamodb", Actions: []string{"dynamodb:PutItem", "dynamodb:UpdateItem"}},
			},
		},
	}

	got := UniqueActions(perms)
	want := []string{"dynamodb:GetItem", "dynamodb:PutItem", "dynamodb:UpdateItem"}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("UniqueActions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UniqueActions()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUniqueActions_AcrossRegistry(t *testing.T) {
	actions := UniqueActions(GetAllPermissions())
	if len(actions) == 0 {
		t.Fatal("UniqueActions(GetAllPermissions()) returned no actions")
	}
	for i := 1; i < len(actions); i++ {
		if actions[i-1] >= actions[i] {
			t.Errorf("UniqueActions() not sorted: %v >= %v", actions[i-1], actions[i])
		}
	}
}

func TestByService(t *testing.T) {
	perms := []FeaturePermissions{
		{
			Permissions: []Permission{
				{Service: "dynamodb", Resource: "table/a"},
				{Service: "kms", Resource: "key/a"},
			},
		},
		{
			Permissions: []Permission{
				{Service: "dynamodb", Resource: "table/b"},
			},
		},
	}

	got := ByService(perms)
	if len(got["dynamodb"]) != 2 {
		t.Errorf("ByService()[dynamodb] has %d entries, want 2", len(got["dynamodb"]))
	}
	if len(got["kms"]) != 1 {
		t.Errorf("ByService()[kms] has %d entries, want 1", len(got["kms"]))
	}
}

func TestByService_AcrossRegistry(t *testing.T) {
	byService := ByService(GetAllPermissions())

	for _, want := range []string{"dynamodb", "kms", "cloudwatch"} {
		if _, ok := byService[want]; !ok {
			t.Errorf("ByService(GetAllPermissions()) missing service %s", want)
		}
	}
}

func TestRegistry_FeatureSubsystemConsistency(t *testing.T) {
	for _, f := range AllFeatures() {
		fp, ok := GetFeaturePermissions(f)
		if !ok {
			t.Errorf("feature %s missing from registry", f)
			continue
		}
		if !fp.Subsystem.IsValid() {
			t.Errorf("feature %s has invalid subsystem %v", f, fp.Subsystem)
		}

		belongs := false
		for _, sf := range fp.Subsystem.Features() {
			if sf == f {
				belongs = true
				break
			}
		}
		if !belongs {
			t.Errorf("feature %s claims subsystem %s but subsystem's Features() doesn't include it", f, fp.Subsystem)
		}
	}
}

func TestRegistry_OptionalFeatures(t *testing.T) {
	wantOptional := map[Feature]bool{
		FeatureMetricsExport:  true,
		FeatureInfraProvision: true,
	}

	for _, f := range AllFeatures() {
		fp, ok := GetFeaturePermissions(f)
		if !ok {
			continue
		}
		if fp.Optional != wantOptional[f] {
			t.Errorf("feature %s Optional = %v, want %v", f, fp.Optional, wantOptional[f])
		}
	}
}
