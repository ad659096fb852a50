package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/byteness/toolgateway/permissions"
)

type permissionsCheckInput struct {
	features []string
	region   string
}

type permissionsDetectInput struct {
	tablePrefix string
	region      string
}

type permissionsPlanInput struct {
	features []string
	format   string
}

func configurePermissionsCommand(app *kingpin.Application, g *gatewayctl) {
	permCmd := app.Command("permissions", "Inspect and plan the gateway's own AWS IAM footprint")

	check := permissionsCheckInput{}
	checkCmd := permCmd.Command("check", "Simulate IAM permissions for one or more features against the caller's principal")
	checkCmd.Flag("feature", "Feature to check (repeatable); defaults to every runtime feature").StringsVar(&check.features)
	checkCmd.Flag("region", "AWS region").Envar("AWS_REGION").StringVar(&check.region)
	checkCmd.Action(func(*kingpin.ParseContext) error {
		err := permissionsCheckCommand(context.Background(), check)
		app.FatalIfError(err, "permissions check")
		return nil
	})

	detect := permissionsDetectInput{}
	detectCmd := permCmd.Command("detect", "Probe DynamoDB to see which gateway tables already exist for a table prefix")
	detectCmd.Flag("table-prefix", "Table name prefix, see dynamodbstore.TableNames").
		Envar("GATEWAY_DYNAMODB_PREFIX").Required().StringVar(&detect.tablePrefix)
	detectCmd.Flag("region", "AWS region").Envar("AWS_REGION").StringVar(&detect.region)
	detectCmd.Action(func(*kingpin.ParseContext) error {
		err := permissionsDetectCommand(context.Background(), detect)
		app.FatalIfError(err, "permissions detect")
		return nil
	})

	plan := permissionsPlanInput{}
	planCmd := permCmd.Command("plan", "Emit the IAM policy document a deployment needs, in the requested format")
	planCmd.Flag("feature", "Feature to include (repeatable); defaults to every registered feature").StringsVar(&plan.features)
	planCmd.Flag("format", "human, json, terraform, or cloudformation").Default("human").
		EnumVar(&plan.format, "human", "json", "terraform", "cloudformation")
	planCmd.Action(func(*kingpin.ParseContext) error {
		err := permissionsPlanCommand(plan)
		app.FatalIfError(err, "permissions plan")
		return nil
	})
}

func resolveFeatures(names []string) ([]permissions.Feature, error) {
	if len(names) == 0 {
		return featuresFromPermissions(permissions.RuntimePermissions()), nil
	}
	out := make([]permissions.Feature, 0, len(names))
	for _, n := range names {
		f := permissions.Feature(n)
		if !f.IsValid() {
			return nil, fmt.Errorf("unknown feature %q (want one of %v)", n, permissions.AllFeatures())
		}
		out = append(out, f)
	}
	return out, nil
}

func featuresFromPermissions(perms []permissions.FeaturePermissions) []permissions.Feature {
	out := make([]permissions.Feature, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.Feature)
	}
	return out
}

func permissionsCheckCommand(ctx context.Context, input permissionsCheckInput) error {
	features, err := resolveFeatures(input.features)
	if err != nil {
		return err
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if input.region != "" {
		opts = append(opts, awsconfig.WithRegion(input.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	checker := permissions.NewChecker(cfg)
	summary, err := checker.Check(ctx, features)
	if err != nil {
		return err
	}
	if err := printJSON(summary); err != nil {
		return err
	}
	if summary.FailCount > 0 || summary.ErrorCount > 0 {
		os.Exit(1)
	}
	return nil
}

func permissionsDetectCommand(ctx context.Context, input permissionsDetectInput) error {
	opts := []func(*awsconfig.LoadOptions) error{}
	if input.region != "" {
		opts = append(opts, awsconfig.WithRegion(input.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	detector := permissions.NewDetector(cfg, input.tablePrefix)
	result, err := detector.Detect(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func permissionsPlanCommand(input permissionsPlanInput) error {
	features, err := resolveFeaturesForPlan(input.features)
	if err != nil {
		return err
	}
	var perms []permissions.FeaturePermissions
	for _, f := range features {
		if fp, ok := permissions.GetFeaturePermissions(f); ok {
			perms = append(perms, fp)
		}
	}

	switch input.format {
	case "human":
		fmt.Println(permissions.FormatHuman(perms))
	case "json":
		out, err := permissions.FormatJSON(perms)
		if err != nil {
			return err
		}
		fmt.Println(out)
	case "terraform":
		fmt.Println(permissions.FormatTerraform(perms))
	case "cloudformation":
		fmt.Println(permissions.FormatCloudFormation(perms))
	}
	return nil
}

func resolveFeaturesForPlan(names []string) ([]permissions.Feature, error) {
	if len(names) == 0 {
		return permissions.AllFeatures(), nil
	}
	out := make([]permissions.Feature, 0, len(names))
	for _, n := range names {
		f := permissions.Feature(n)
		if !f.IsValid() {
			return nil, fmt.Errorf("unknown feature %q (want one of %v)", n, permissions.AllFeatures())
		}
		out = append(out, f)
	}
	return out, nil
}
