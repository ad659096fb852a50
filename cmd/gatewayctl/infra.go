package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/byteness/toolgateway/infrastructure"
)

type infraInput struct {
	tablePrefix string
	region      string
}

func configureInfraCommand(app *kingpin.Application, g *gatewayctl) {
	infraCmd := app.Command("infra", "Provision the gateway's DynamoDB tables")

	input := infraInput{}
	infraCmd.Flag("table-prefix", "Table name prefix, see dynamodbstore.TableNames").
		Envar("GATEWAY_DYNAMODB_PREFIX").
		Required().
		StringVar(&input.tablePrefix)
	infraCmd.Flag("region", "AWS region").Envar("AWS_REGION").StringVar(&input.region)

	planCmd := infraCmd.Command("plan", "Show what would be created without making changes")
	planCmd.Action(func(*kingpin.ParseContext) error {
		err := infraPlanCommand(context.Background(), input)
		app.FatalIfError(err, "infra plan")
		return nil
	})

	provisionCmd := infraCmd.Command("provision", "Create every table the store expects, idempotently")
	provisionCmd.Action(func(*kingpin.ParseContext) error {
		err := infraProvisionCommand(context.Background(), input)
		app.FatalIfError(err, "infra provision")
		return nil
	})
}

func infraSchemas(prefix string) []infrastructure.TableSchema {
	return []infrastructure.TableSchema{
		infrastructure.AgentsTableSchema(prefix + "-agents"),
		infrastructure.TokensTableSchema(prefix + "-tokens"),
		infrastructure.TokenRegistryTableSchema(prefix + "-token-registry"),
		infrastructure.PoliciesTableSchema(prefix + "-policies"),
		infrastructure.QuotasTableSchema(prefix + "-quotas"),
		infrastructure.CredentialsTableSchema(prefix + "-credentials"),
		infrastructure.AuditTableSchema(prefix + "-audit"),
	}
}

func newProvisioner(ctx context.Context, input infraInput) (*infrastructure.TableProvisioner, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if input.region != "" {
		opts = append(opts, awsconfig.WithRegion(input.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return infrastructure.NewTableProvisioner(cfg, input.region), nil
}

func infraPlanCommand(ctx context.Context, input infraInput) error {
	provisioner, err := newProvisioner(ctx, input)
	if err != nil {
		return err
	}
	plans := make([]*infrastructure.ProvisionPlan, 0, 7)
	for _, schema := range infraSchemas(input.tablePrefix) {
		plan, err := provisioner.Plan(ctx, schema)
		if err != nil {
			return fmt.Errorf("plan %s: %w", schema.TableName, err)
		}
		plans = append(plans, plan)
	}
	return printJSON(plans)
}

func infraProvisionCommand(ctx context.Context, input infraInput) error {
	provisioner, err := newProvisioner(ctx, input)
	if err != nil {
		return err
	}
	results := make([]*infrastructure.ProvisionResult, 0, 7)
	for _, schema := range infraSchemas(input.tablePrefix) {
		result, err := provisioner.Create(ctx, schema)
		if err != nil {
			return fmt.Errorf("provision %s: %w", schema.TableName, err)
		}
		results = append(results, result)
	}
	return printJSON(results)
}
