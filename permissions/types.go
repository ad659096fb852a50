// Package permissions provides permission types and a registry for the gateway's own AWS
// footprint. It enables programmatic discovery of what IAM actions each gateway subsystem
// needs, supporting `gatewayctl permissions` and guided deployment setup.
package permissions

// Subsystem identifies a functional grouping of gateway components.
type Subsystem string

const (
	// SubsystemAgentStore persists Agent records.
	SubsystemAgentStore Subsystem = "agent_store"
	// SubsystemTokenStore persists TokenRecord and TokenRegistryEntry records.
	SubsystemTokenStore Subsystem = "token_store"
	// SubsystemPolicyStore persists PolicyRecord records.
	SubsystemPolicyStore Subsystem = "policy_store"
	// SubsystemQuotaStore persists QuotaCounter records.
	SubsystemQuotaStore Subsystem = "quota_store"
	// SubsystemCredentialVault persists ToolCredential records and unwraps the KEK.
	SubsystemCredentialVault Subsystem = "credential_vault"
	// SubsystemAuditLog persists AuditRecord entries.
	SubsystemAuditLog Subsystem = "audit_log"
	// SubsystemObservability exports metrics to CloudWatch.
	SubsystemObservability Subsystem = "observability"
	// SubsystemInfra provisions the gateway's own DynamoDB tables.
	SubsystemInfra Subsystem = "infra"
)

// IsValid returns true if the Subsystem is a known value.
func (s Subsystem) IsValid() bool {
	switch s {
	case SubsystemAgentStore, SubsystemTokenStore, SubsystemPolicyStore, SubsystemQuotaStore,
		SubsystemCredentialVault, SubsystemAuditLog, SubsystemObservability, SubsystemInfra:
		return true
	}
	return false
}

// String returns the string representation of the Subsystem.
func (s Subsystem) String() string {
	return string(s)
}

// AllSubsystems returns all valid subsystem values.
func AllSubsystems() []Subsystem {
	return []Subsystem{
		SubsystemAgentStore,
		SubsystemTokenStore,
		SubsystemPolicyStore,
		SubsystemQuotaStore,
		SubsystemCredentialVault,
		SubsystemAuditLog,
		SubsystemObservability,
		SubsystemInfra,
	}
}

// Feature identifies a specific gateway capability that requires AWS permissions.
type Feature string

const (
	// FeatureAgentCRUD reads and writes Agent records.
	FeatureAgentCRUD Feature = "agent_crud"
	// FeatureTokenCRUD reads and writes TokenRecord/TokenRegistryEntry records, including the
	// agent-id GSI lookup used by ListTokensByAgent.
	FeatureTokenCRUD Feature = "token_crud"
	// FeaturePolicyCRUD reads and writes PolicyRecord records, including the binding-id GSI
	// lookup used by ListPoliciesForAgent.
	FeaturePolicyCRUD Feature = "policy_crud"
	// FeatureQuotaIncrement performs the atomic conditional update IncrementQuota requires.
	FeatureQuotaIncrement Feature = "quota_increment"
	// FeatureCredentialCRUD reads and writes ToolCredential records, including the tool GSI
	// lookup used by ListCredentials/GetActiveCredential.
	FeatureCredentialCRUD Feature = "credential_crud"
	// FeatureCredentialUnwrap decrypts the key-encryption-key via KMS (vault.KMSKeyProvider).
	FeatureCredentialUnwrap Feature = "credential_unwrap"
	// FeatureAuditAppend appends and lists AuditRecord entries.
	FeatureAuditAppend Feature = "audit_append"
	// FeatureMetricsExport publishes gateway metrics to CloudWatch (observability.CloudWatchSink).
	FeatureMetricsExport Feature = "metrics_export"
	// FeatureInfraProvision creates and configures the gateway's own DynamoDB tables
	// (infrastructure.TableProvisioner). Only the deployer's role needs this, not the gateway's
	// runtime role.
	FeatureInfraProvision Feature = "infra_provision"
)

// IsValid returns true if the Feature is a known value.
func (f Feature) IsValid() bool {
	switch f {
	case FeatureAgentCRUD, FeatureTokenCRUD, FeaturePolicyCRUD, FeatureQuotaIncrement,
		FeatureCredentialCRUD, FeatureCredentialUnwrap, FeatureAuditAppend,
		FeatureMetricsExport, FeatureInfraProvision:
		return true
	}
	return false
}

// String returns the string representation of the Feature.
func (f Feature) String() string {
	return string(f)
}

// AllFeatures returns all valid feature values.
func AllFeatures() []Feature {
	return []Feature{
		FeatureAgentCRUD,
		FeatureTokenCRUD,
		FeaturePolicyCRUD,
		FeatureQuotaIncrement,
		FeatureCredentialCRUD,
		FeatureCredentialUnwrap,
		FeatureAuditAppend,
		FeatureMetricsExport,
		FeatureInfraProvision,
	}
}

// subsystemFeatures maps subsystems to their features.
var subsystemFeatures = map[Subsystem][]Feature{
	SubsystemAgentStore:      {FeatureAgentCRUD},
	SubsystemTokenStore:      {FeatureTokenCRUD},
	SubsystemPolicyStore:     {FeaturePolicyCRUD},
	SubsystemQuotaStore:      {FeatureQuotaIncrement},
	SubsystemCredentialVault: {FeatureCredentialCRUD, FeatureCredentialUnwrap},
	SubsystemAuditLog:        {FeatureAuditAppend},
	SubsystemObservability:   {FeatureMetricsExport},
	SubsystemInfra:           {FeatureInfraProvision},
}

// Features returns the features belonging to this subsystem.
func (s Subsystem) Features() []Feature {
	return subsystemFeatures[s]
}

// Permission represents a single AWS IAM permission requirement.
type Permission struct {
	// Service is the AWS service name (e.g., "dynamodb", "kms", "cloudwatch").
	Service string
	// Actions are the IAM actions required (e.g., "dynamodb:PutItem").
	Actions []string
	// Resource is the ARN pattern for the resource.
	Resource string
	// Description provides human-readable context for this permission.
	Description string
}

// FeaturePermissions contains the permissions required for a specific feature.
type FeaturePermissions struct {
	// Feature identifies which feature these permissions are for.
	Feature Feature
	// Subsystem identifies which subsystem this feature belongs to.
	Subsystem Subsystem
	// Permissions lists all AWS permissions required for this feature.
	Permissions []Permission
	// Optional indicates if the feature works without these permissions. True for the
	// deployer-only infra_provision feature, which the gateway's own runtime role never needs,
	// and for metrics_export, which only a deployment using observability.CloudWatchSink needs.
	Optional bool
}
