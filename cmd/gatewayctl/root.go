// Package main implements gatewayctl, the reference admin CLI for the agent tool gateway. It
// calls the core packages (agent, token, policy, vault, store) in process — it is a client of
// the gateway's persistence layer, not a server, and is never on the request hot path.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	isatty "github.com/mattn/go-isatty"

	"github.com/byteness/toolgateway/agent"
	"github.com/byteness/toolgateway/cryptoutil"
	"github.com/byteness/toolgateway/policy"
	"github.com/byteness/toolgateway/store"
	"github.com/byteness/toolgateway/store/dynamodbstore"
	"github.com/byteness/toolgateway/token"
	"github.com/byteness/toolgateway/vault"
)

// gatewayctl is the shared root context every command builds its services from: global flags
// are parsed once, backing clients are constructed lazily and memoized.
type gatewayctl struct {
	storeBackend  string
	dynamoPrefix  string
	awsRegion     string
	kekBase64     string
	signingSecret string

	st store.Store

	agents   *agent.Service
	tokens   *token.Service
	policies *policy.Resolver
	creds    *vault.Vault
}

func isInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Store lazily builds the backing store: the in-process MemoryStore for local exploration
// (state does not survive the process, since each invocation of this CLI is a new process —
// useful only for "seed and list in one command" demos) or DynamoDBStore for talking to a
// real, already-provisioned gateway deployment.
func (g *gatewayctl) Store(ctx context.Context) (store.Store, error) {
	if g.st != nil {
		return g.st, nil
	}
	switch g.storeBackend {
	case "memory", "":
		g.st = store.NewMemoryStore()
	case "dynamodb":
		if g.dynamoPrefix == "" {
			return nil, fmt.Errorf("--dynamodb-table-prefix is required with --store=dynamodb")
		}
		awsCfgOpts := []func(*awsconfig.LoadOptions) error{}
		if g.awsRegion != "" {
			awsCfgOpts = append(awsCfgOpts, awsconfig.WithRegion(g.awsRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsCfgOpts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		g.st = dynamodbstore.New(awsCfg, g.tableNames())
	default:
		return nil, fmt.Errorf("unknown --store backend %q (want memory or dynamodb)", g.storeBackend)
	}
	return g.st, nil
}

func (g *gatewayctl) tableNames() dynamodbstore.TableNames {
	p := g.dynamoPrefix
	return dynamodbstore.TableNames{
		Agents:        p + "-agents",
		Tokens:        p + "-tokens",
		TokenRegistry: p + "-token-registry",
		Policies:      p + "-policies",
		Quotas:        p + "-quotas",
		Credentials:   p + "-credentials",
		Audit:         p + "-audit",
	}
}

func (g *gatewayctl) Agents(ctx context.Context) (*agent.Service, error) {
	if g.agents == nil {
		st, err := g.Store(ctx)
		if err != nil {
			return nil, err
		}
		g.agents = agent.New(st, st)
	}
	return g.agents, nil
}

func (g *gatewayctl) Tokens(ctx context.Context) (*token.Service, error) {
	if g.tokens == nil {
		st, err := g.Store(ctx)
		if err != nil {
			return nil, err
		}
		if g.signingSecret == "" {
			return nil, fmt.Errorf("--signing-secret (or SIGNING_SECRET) is required for token operations")
		}
		signer, err := cryptoutil.NewSigner([]byte(g.signingSecret))
		if err != nil {
			return nil, fmt.Errorf("build signer: %w", err)
		}
		g.tokens = token.New(st, st, signer)
	}
	return g.tokens, nil
}

func (g *gatewayctl) Policies(ctx context.Context) (*policy.Resolver, store.PolicyStore, error) {
	st, err := g.Store(ctx)
	if err != nil {
		return nil, nil, err
	}
	if g.policies == nil {
		g.policies = policy.NewResolver(st, 0)
	}
	return g.policies, st, nil
}

func (g *gatewayctl) Vault(ctx context.Context) (*vault.Vault, error) {
	if g.creds == nil {
		st, err := g.Store(ctx)
		if err != nil {
			return nil, err
		}
		if g.kekBase64 == "" {
			return nil, fmt.Errorf("--kek (or KEK_BASE64) is required for credential operations")
		}
		keys, err := vault.NewStaticKeyProvider(g.kekBase64)
		if err != nil {
			return nil, fmt.Errorf("build key provider: %w", err)
		}
		g.creds = vault.New(st, keys)
	}
	return g.creds, nil
}

func configureGlobals(app *kingpin.Application) *gatewayctl {
	g := &gatewayctl{}

	app.Flag("store", "Backing store: memory (ephemeral, single process) or dynamodb").
		Default("memory").
		Envar("GATEWAY_STORE_BACKEND").
		EnumVar(&g.storeBackend, "memory", "dynamodb")

	app.Flag("dynamodb-table-prefix", "Table name prefix when --store=dynamodb (see dynamodbstore.TableNames)").
		Envar("GATEWAY_DYNAMODB_PREFIX").
		StringVar(&g.dynamoPrefix)

	app.Flag("region", "AWS region for --store=dynamodb").
		Envar("AWS_REGION").
		StringVar(&g.awsRegion)

	app.Flag("kek", "Base64-encoded 32-byte key-encryption-key for credential vault operations").
		Envar("KEK_BASE64").
		StringVar(&g.kekBase64)

	app.Flag("signing-secret", "HMAC signing secret for token operations").
		Envar("SIGNING_SECRET").
		StringVar(&g.signingSecret)

	return g
}

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	app := kingpin.New("gatewayctl", "Admin CLI for the agent tool gateway")
	app.Version(Version)

	g := configureGlobals(app)

	configureAgentCommand(app, g)
	configureTokenCommand(app, g)
	configurePolicyCommand(app, g)
	configureCredentialCommand(app, g)
	configureAuditCommand(app, g)
	configureInfraCommand(app, g)
	configureMetricsCommand(app, g)
	configurePermissionsCommand(app, g)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
