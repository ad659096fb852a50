package permissions

import "sort"

// registry maps features to their required AWS IAM permissions. This is the source of truth
// for the gateway's own permission requirements — distinct from the policy/quota/guard
// permissions the gateway enforces on agents, which live in package policy.
var registry = map[Feature]FeaturePermissions{
	FeatureAgentCRUD: {
		Feature:   FeatureAgentCRUD,
		Subsystem: SubsystemAgentStore,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:PutItem",
					"dynamodb:GetItem",
					"dynamodb:UpdateItem",
					"dynamodb:Scan",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-agents",
				Description: "Create, read, list, and suspend/reactivate agents",
			},
		},
		Optional: false,
	},

	FeatureTokenCRUD: {
		Feature:   FeatureTokenCRUD,
		Subsystem: SubsystemTokenStore,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:PutItem",
					"dynamodb:GetItem",
					"dynamodb:UpdateItem",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-tokens",
				Description: "Issue, look up, and revoke tokens",
			},
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:Query",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-tokens/index/gsi-agent-id",
				Description: "List a single agent's tokens (ActiveTokenCount, rotation checks)",
			},
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:PutItem",
					"dynamodb:GetItem",
					"dynamodb:UpdateItem",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-token-registry",
				Description: "Record and check token provenance (payload hash binding)",
			},
		},
		Optional: false,
	},

	FeaturePolicyCRUD: {
		Feature:   FeaturePolicyCRUD,
		Subsystem: SubsystemPolicyStore,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:PutItem",
					"dynamodb:GetItem",
					"dynamodb:UpdateItem",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-policies",
				Description: "Bind, update, and activate/deactivate policy documents",
			},
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:Query",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-policies/index/gsi-binding",
				Description: "Resolve the policies bound to an agent or role",
			},
		},
		Optional: false,
	},

	FeatureQuotaIncrement: {
		Feature:   FeatureQuotaIncrement,
		Subsystem: SubsystemQuotaStore,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:UpdateItem",
					"dynamodb:GetItem",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-quotas",
				Description: "Atomically increment a quota counter with a bound check",
			},
		},
		Optional: false,
	},

	FeatureCredentialCRUD: {
		Feature:   FeatureCredentialCRUD,
		Subsystem: SubsystemCredentialVault,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:PutItem",
					"dynamodb:GetItem",
					"dynamodb:UpdateItem",
					"dynamodb:DeleteItem",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-credentials",
				Description: "Create, activate, delete, and list tool credential versions",
			},
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:Query",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-credentials/index/gsi-tool",
				Description: "List or fetch the active credential for a tool",
			},
		},
		Optional: false,
	},

	FeatureCredentialUnwrap: {
		Feature:   FeatureCredentialUnwrap,
		Subsystem: SubsystemCredentialVault,
		Permissions: []Permission{
			{
				Service: "kms",
				Actions: []string{
					"kms:Decrypt",
				},
				Resource:    "arn:aws:kms:*:*:key/*",
				Description: "Unwrap the vault's key-encryption-key (vault.KMSKeyProvider)",
			},
		},
		Optional: false,
	},

	FeatureAuditAppend: {
		Feature:   FeatureAuditAppend,
		Subsystem: SubsystemAuditLog,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:PutItem",
					"dynamodb:Scan",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-audit",
				Description: "Append audit entries and list recent ones (gatewayctl audit tail)",
			},
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:Query",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*-audit/index/gsi-instance",
				Description: "Query audit entries for a single gateway instance",
			},
		},
		Optional: false,
	},

	FeatureMetricsExport: {
		Feature:   FeatureMetricsExport,
		Subsystem: SubsystemObservability,
		Permissions: []Permission{
			{
				Service: "cloudwatch",
				Actions: []string{
					"cloudwatch:PutMetricData",
				},
				Resource:    "*",
				Description: "Export gateway metrics via observability.CloudWatchSink (CloudWatch has no resource-level ARNs for PutMetricData)",
			},
		},
		Optional: true,
	},

	FeatureInfraProvision: {
		Feature:   FeatureInfraProvision,
		Subsystem: SubsystemInfra,
		Permissions: []Permission{
			{
				Service: "dynamodb",
				Actions: []string{
					"dynamodb:CreateTable",
					"dynamodb:DescribeTable",
					"dynamodb:UpdateTimeToLive",
				},
				Resource:    "arn:aws:dynamodb:*:*:table/*",
				Description: "Provision the gateway's tables (gatewayctl infra provision); deployer-only, never needed by the running gateway",
			},
		},
		Optional: true,
	},
}

// GetFeaturePermissions returns the permissions for a feature, and whether it was found.
func GetFeaturePermissions(f Feature) (FeaturePermissions, bool) {
	fp, ok := registry[f]
	return fp, ok
}

// GetSubsystemPermissions returns the permissions for every feature in a subsystem.
func GetSubsystemPermissions(s Subsystem) []FeaturePermissions {
	var out []FeaturePermissions
	for _, f := range s.Features() {
		if fp, ok := registry[f]; ok {
			out = append(out, fp)
		}
	}
	return out
}

// GetAllPermissions returns the permissions for every registered feature.
func GetAllPermissions() []FeaturePermissions {
	out := make([]FeaturePermissions, 0, len(registry))
	for _, f := range AllFeatures() {
		if fp, ok := registry[f]; ok {
			out = append(out, fp)
		}
	}
	return out
}

// RuntimePermissions returns the permissions the gateway's own running process needs —
// every non-optional feature, i.e. everything except infra_provision and metrics_export.
func RuntimePermissions() []FeaturePermissions {
	var out []FeaturePermissions
	for _, f := range AllFeatures() {
		fp, ok := registry[f]
		if !ok || fp.Optional {
			continue
		}
		out = append(out, fp)
	}
	return out
}

// UniqueActions returns the sorted, deduplicated set of IAM actions across all given
// feature permissions.
func UniqueActions(perms []FeaturePermissions) []string {
	seen := make(map[string]bool)
	for _, fp := range perms {
		for _, p := range fp.Permissions {
			for _, a := range p.Actions {
				seen[a] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ByService groups the permissions across all given feature permissions by AWS service name.
func ByService(perms []FeaturePermissions) map[string][]Permission {
	out := make(map[string][]Permission)
	for _, fp := range perms {
		for _, p := range fp.Permissions {
			out[p.Service] = append(out[p.Service], p)
		}
	}
	return out
}
