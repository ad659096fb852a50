package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/byteness/toolgateway/store/dynamodbstore"
)

type auditTailInput struct {
	limit      int
	instanceID string
}

func configureAuditCommand(app *kingpin.Application, g *gatewayctl) {
	auditCmd := app.Command("audit", "Inspect the audit log")

	tail := auditTailInput{}
	tailCmd := auditCmd.Command("tail", "Show the most recent audit entries")
	tailCmd.Flag("limit", "Maximum number of entries to return").Default("50").IntVar(&tail.limit)
	tailCmd.Flag("instance", "Restrict to entries written by one gateway instance (--store=dynamodb only)").
		StringVar(&tail.instanceID)
	tailCmd.Action(func(*kingpin.ParseContext) error {
		err := auditTailCommand(context.Background(), tail, g)
		app.FatalIfError(err, "audit tail")
		return nil
	})
}

func auditTailCommand(ctx context.Context, input auditTailInput, g *gatewayctl) error {
	st, err := g.Store(ctx)
	if err != nil {
		return err
	}

	if input.instanceID != "" {
		ddb, ok := st.(*dynamodbstore.DynamoDBStore)
		if !ok {
			return fmt.Errorf("--instance requires --store=dynamodb")
		}
		entries, err := ddb.ListAuditByInstance(ctx, input.instanceID, input.limit)
		if err != nil {
			return err
		}
		return printJSON(entries)
	}

	entries, err := st.ListAudit(ctx, input.limit)
	if err != nil {
		return err
	}
	return printJSON(entries)
}
