package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type credentialSetInput struct {
	tool     string
	secret   string
	metadata string
	activate bool
}

type credentialActivateInput struct {
	id string
}

type credentialListInput struct {
	tool string
}

type credentialDeleteInput struct {
	id    string
	force bool
}

func configureCredentialCommand(app *kingpin.Application, g *gatewayctl) {
	credCmd := app.Command("credential", "Manage tool credentials in the vault")

	set := credentialSetInput{}
	setCmd := credCmd.Command("set", "Store a new credential version for a tool")
	setCmd.Flag("tool", "Tool name").Required().StringVar(&set.tool)
	setCmd.Flag("secret", "Plaintext secret to seal").Required().StringVar(&set.secret)
	setCmd.Flag("metadata", "Optional non-secret metadata stored alongside the secret").StringVar(&set.metadata)
	setCmd.Flag("activate", "Activate this version immediately").BoolVar(&set.activate)
	setCmd.Action(func(*kingpin.ParseContext) error {
		err := credentialSetCommand(context.Background(), set, g)
		app.FatalIfError(err, "credential set")
		return nil
	})

	activate := credentialActivateInput{}
	activateCmd := credCmd.Command("activate", "Activate a credential version, deactivating its siblings")
	activateCmd.Arg("id", "Credential ID").Required().StringVar(&activate.id)
	activateCmd.Action(func(*kingpin.ParseContext) error {
		err := credentialActivateCommand(context.Background(), activate, g)
		app.FatalIfError(err, "credential activate")
		return nil
	})

	list := credentialListInput{}
	listCmd := credCmd.Command("list", "List credential versions for a tool")
	listCmd.Flag("tool", "Tool name").Required().StringVar(&list.tool)
	listCmd.Action(func(*kingpin.ParseContext) error {
		err := credentialListCommand(context.Background(), list, g)
		app.FatalIfError(err, "credential list")
		return nil
	})

	del := credentialDeleteInput{}
	delCmd := credCmd.Command("delete", "Delete a credential version")
	delCmd.Arg("id", "Credential ID").Required().StringVar(&del.id)
	delCmd.Flag("force", "Required to delete the only active credential for a tool").BoolVar(&del.force)
	delCmd.Action(func(*kingpin.ParseContext) error {
		err := credentialDeleteCommand(context.Background(), del, g)
		app.FatalIfError(err, "credential delete")
		return nil
	})
}

func credentialSetCommand(ctx context.Context, input credentialSetInput, g *gatewayctl) error {
	v, err := g.Vault(ctx)
	if err != nil {
		return err
	}
	cred, err := v.Create(ctx, input.tool, input.secret, input.metadata)
	if err != nil {
		return err
	}
	if input.activate {
		if err := v.Activate(ctx, cred.ID); err != nil {
			return err
		}
		cred.IsActive = true
	}
	cred.EncryptedCredential = "" // never echo ciphertext back to the terminal
	cred.EncryptedMetadata = ""
	return printJSON(cred)
}

func credentialActivateCommand(ctx context.Context, input credentialActivateInput, g *gatewayctl) error {
	v, err := g.Vault(ctx)
	if err != nil {
		return err
	}
	if err := v.Activate(ctx, input.id); err != nil {
		return err
	}
	fmt.Println("activated")
	return nil
}

func credentialListCommand(ctx context.Context, input credentialListInput, g *gatewayctl) error {
	v, err := g.Vault(ctx)
	if err != nil {
		return err
	}
	creds, err := v.List(ctx, input.tool)
	if err != nil {
		return err
	}
	for i := range creds {
		creds[i].EncryptedCredential = ""
		creds[i].EncryptedMetadata = ""
	}
	return printJSON(creds)
}

func credentialDeleteCommand(ctx context.Context, input credentialDeleteInput, g *gatewayctl) error {
	v, err := g.Vault(ctx)
	if err != nil {
		return err
	}
	if err := v.Delete(ctx, input.id, input.force); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}
