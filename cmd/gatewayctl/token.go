package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/toolgateway/token"
)

type tokenIssueInput struct {
	agentID     string
	tools       string
	permissions string
	ttl         time.Duration
}

type tokenRevokeInput struct {
	tokenID string
}

func configureTokenCommand(app *kingpin.Application, g *gatewayctl) {
	tokenCmd := app.Command("token", "Issue and revoke agent tokens")

	issue := tokenIssueInput{}
	issueCmd := tokenCmd.Command("issue", "Mint a token for an agent")
	issueCmd.Flag("agent-id", "Agent ID to issue the token for").Required().StringVar(&issue.agentID)
	issueCmd.Flag("tools", "Comma-separated list of tools the token may call").StringVar(&issue.tools)
	issueCmd.Flag("permissions", "Comma-separated list of permissions").StringVar(&issue.permissions)
	issueCmd.Flag("ttl", "Token lifetime").Default("15m").DurationVar(&issue.ttl)
	issueCmd.Action(func(*kingpin.ParseContext) error {
		err := tokenIssueCommand(context.Background(), issue, g)
		app.FatalIfError(err, "token issue")
		return nil
	})

	revoke := tokenRevokeInput{}
	revokeCmd := tokenCmd.Command("revoke", "Revoke a token by ID")
	revokeCmd.Arg("token-id", "Token ID").Required().StringVar(&revoke.tokenID)
	revokeCmd.Action(func(*kingpin.ParseContext) error {
		err := tokenRevokeCommand(context.Background(), revoke, g)
		app.FatalIfError(err, "token revoke")
		return nil
	})
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func tokenIssueCommand(ctx context.Context, input tokenIssueInput, g *gatewayctl) error {
	tokens, err := g.Tokens(ctx)
	if err != nil {
		return err
	}
	opaque, record, err := tokens.Issue(ctx, input.agentID, splitCSV(input.tools), splitCSV(input.permissions), time.Now().UTC().Add(input.ttl))
	if err != nil {
		return err
	}
	return printJSON(struct {
		Token       string `json:"token"`
		TokenID     string `json:"token_id"`
		AgentID     string `json:"agent_id"`
		ExpiresAt   string `json:"expires_at"`
	}{
		Token:     opaque,
		TokenID:   record.ID,
		AgentID:   record.AgentID,
		ExpiresAt: record.ExpiresAt.Format(time.RFC3339),
	})
}

func tokenRevokeCommand(ctx context.Context, input tokenRevokeInput, g *gatewayctl) error {
	var tokens *token.Service
	var err error
	if tokens, err = g.Tokens(ctx); err != nil {
		return err
	}
	if err := tokens.Revoke(ctx, input.tokenID); err != nil {
		return err
	}
	fmt.Println("revoked")
	return nil
}
