package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/toolgateway/store"
	"github.com/byteness/toolgateway/validate"
)

type agentCreateInput struct {
	name              string
	createdBy         string
	role              string
	publicKeyFile     string
	deviceFingerprint string
}

type agentIDInput struct {
	id string
}

func configureAgentCommand(app *kingpin.Application, g *gatewayctl) {
	agentCmd := app.Command("agent", "Manage agent identities")

	create := agentCreateInput{}
	createCmd := agentCmd.Command("create", "Register a new agent")
	createCmd.Flag("name", "Human-readable agent name").Required().StringVar(&create.name)
	createCmd.Flag("created-by", "Operator registering this agent").StringVar(&create.createdBy)
	createCmd.Flag("role", "Role used for policy binding").Required().StringVar(&create.role)
	createCmd.Flag("public-key-file", "Path to the agent's RSA public key (PEM)").Required().StringVar(&create.publicKeyFile)
	createCmd.Flag("device-fingerprint", "Optional device fingerprint, audit metadata only").StringVar(&create.deviceFingerprint)
	createCmd.Action(func(*kingpin.ParseContext) error {
		err := agentCreateCommand(context.Background(), create, g)
		app.FatalIfError(err, "agent create")
		return nil
	})

	listCmd := agentCmd.Command("list", "List all registered agents")
	listCmd.Action(func(*kingpin.ParseContext) error {
		err := agentListCommand(context.Background(), g)
		app.FatalIfError(err, "agent list")
		return nil
	})

	show := agentIDInput{}
	showCmd := agentCmd.Command("show", "Show a single agent, including active token count")
	showCmd.Arg("id", "Agent ID").Required().StringVar(&show.id)
	showCmd.Action(func(*kingpin.ParseContext) error {
		err := agentShowCommand(context.Background(), show, g)
		app.FatalIfError(err, "agent show")
		return nil
	})

	suspend := agentIDInput{}
	suspendCmd := agentCmd.Command("suspend", "Suspend an agent, invalidating future token validation")
	suspendCmd.Arg("id", "Agent ID").Required().StringVar(&suspend.id)
	suspendCmd.Action(func(*kingpin.ParseContext) error {
		err := agentSuspendCommand(context.Background(), suspend, g)
		app.FatalIfError(err, "agent suspend")
		return nil
	})

	reactivate := agentIDInput{}
	reactivateCmd := agentCmd.Command("reactivate", "Reactivate a suspended agent")
	reactivateCmd.Arg("id", "Agent ID").Required().StringVar(&reactivate.id)
	reactivateCmd.Action(func(*kingpin.ParseContext) error {
		err := agentReactivateCommand(context.Background(), reactivate, g)
		app.FatalIfError(err, "agent reactivate")
		return nil
	})
}

func agentCreateCommand(ctx context.Context, input agentCreateInput, g *gatewayctl) error {
	if err := validate.ValidateIdentifier(input.role); err != nil {
		return fmt.Errorf("invalid --role: %w", err)
	}

	keyPEM, err := os.ReadFile(input.publicKeyFile)
	if err != nil {
		return fmt.Errorf("read public key file: %w", err)
	}

	agents, err := g.Agents(ctx)
	if err != nil {
		return err
	}
	a, err := agents.Create(ctx, input.name, input.createdBy, input.role, string(keyPEM), input.deviceFingerprint)
	if err != nil {
		return err
	}
	return printJSON(a)
}

func agentListCommand(ctx context.Context, g *gatewayctl) error {
	agents, err := g.Agents(ctx)
	if err != nil {
		return err
	}
	list, err := agents.List(ctx)
	if err != nil {
		return err
	}
	return printJSON(list)
}

func agentShowCommand(ctx context.Context, input agentIDInput, g *gatewayctl) error {
	agents, err := g.Agents(ctx)
	if err != nil {
		return err
	}
	a, err := agents.Get(ctx, input.id)
	if err != nil {
		return err
	}
	activeTokens, err := agents.ActiveTokenCount(ctx, input.id)
	if err != nil {
		return err
	}
	return printJSON(struct {
		store.Agent
		ActiveTokenCount int `json:"active_token_count"`
	}{Agent: a, ActiveTokenCount: activeTokens})
}

func agentSuspendCommand(ctx context.Context, input agentIDInput, g *gatewayctl) error {
	agents, err := g.Agents(ctx)
	if err != nil {
		return err
	}
	if isInteractive() {
		count, err := agents.ActiveTokenCount(ctx, input.id)
		if err == nil && count > 0 {
			if !confirm(fmt.Sprintf("agent %s has %d live token(s); suspend anyway?", input.id, count)) {
				fmt.Fprintln(os.Stderr, "aborted")
				return nil
			}
		}
	}
	if err := agents.Suspend(ctx, input.id); err != nil {
		return err
	}
	fmt.Println("suspended")
	return nil
}

func agentReactivateCommand(ctx context.Context, input agentIDInput, g *gatewayctl) error {
	agents, err := g.Agents(ctx)
	if err != nil {
		return err
	}
	if err := agents.Reactivate(ctx, input.id); err != nil {
		return err
	}
	fmt.Println("reactivated")
	return nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(b))
	return nil
}
