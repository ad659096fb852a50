package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/google/uuid"

	"github.com/byteness/toolgateway/policy"
	"github.com/byteness/toolgateway/store"
	"github.com/byteness/toolgateway/validate"
)

type policyPutInput struct {
	file    string
	agentID string
	role    string
}

type policyListInput struct {
	agentID string
	role    string
}

func configurePolicyCommand(app *kingpin.Application, g *gatewayctl) {
	policyCmd := app.Command("policy", "Bind and inspect policy documents")

	put := policyPutInput{}
	putCmd := policyCmd.Command("put", "Parse a YAML policy document and bind it to an agent or role")
	putCmd.Flag("file", "Path to the YAML policy document").Required().StringVar(&put.file)
	putCmd.Flag("agent-id", "Bind to a single agent").StringVar(&put.agentID)
	putCmd.Flag("role", "Bind to a role").StringVar(&put.role)
	putCmd.Action(func(*kingpin.ParseContext) error {
		err := policyPutCommand(context.Background(), put, g)
		app.FatalIfError(err, "policy put")
		return nil
	})

	list := policyListInput{}
	listCmd := policyCmd.Command("list", "List policies bound to an agent/role and the effective merged spec")
	listCmd.Flag("agent-id", "Agent ID").StringVar(&list.agentID)
	listCmd.Flag("role", "Role").StringVar(&list.role)
	listCmd.Action(func(*kingpin.ParseContext) error {
		err := policyListCommand(context.Background(), list, g)
		app.FatalIfError(err, "policy list")
		return nil
	})
}

func policyPutCommand(ctx context.Context, input policyPutInput, g *gatewayctl) error {
	if (input.agentID == "") == (input.role == "") {
		return fmt.Errorf("exactly one of --agent-id or --role is required")
	}
	if input.role != "" {
		if err := validate.ValidateIdentifier(input.role); err != nil {
			return fmt.Errorf("invalid --role: %w", err)
		}
	}

	data, err := os.ReadFile(input.file)
	if err != nil {
		return fmt.Errorf("read policy document: %w", err)
	}
	spec, err := policy.Parse(data)
	if err != nil {
		return err
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}
	hash, err := policy.HashSpec(spec)
	if err != nil {
		return fmt.Errorf("hash spec: %w", err)
	}

	_, policyStore, err := g.Policies(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec := store.PolicyRecord{
		ID:        uuid.NewString(),
		Binding:   store.PolicyBinding{AgentID: input.agentID, Role: input.role},
		SpecJSON:  specJSON,
		SpecHash:  hash,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := policyStore.CreatePolicy(ctx, rec); err != nil {
		return fmt.Errorf("persist policy: %w", err)
	}
	resolver, _, _ := g.Policies(ctx)
	resolver.Invalidate(input.agentID, input.role)

	return printJSON(struct {
		ID       string `json:"id"`
		SpecHash string `json:"spec_hash"`
	}{ID: rec.ID, SpecHash: fmt.Sprintf("%x", rec.SpecHash)})
}

func policyListCommand(ctx context.Context, input policyListInput, g *gatewayctl) error {
	resolver, policyStore, err := g.Policies(ctx)
	if err != nil {
		return err
	}
	records, err := policyStore.ListPoliciesForAgent(ctx, input.agentID, input.role)
	if err != nil {
		return err
	}
	merged, err := resolver.Resolve(ctx, input.agentID, input.role)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Bindings []store.PolicyRecord `json:"bindings"`
		Merged   policy.Spec          `json:"merged"`
	}{Bindings: records, Merged: merged})
}
