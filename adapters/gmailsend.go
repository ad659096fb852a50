package adapters

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/byteness/toolgateway/gatewayerr"
)

// GmailSend adapts outbound mail delivery through Gmail's SMTP submission
// endpoint. The credential is an app password for the configured sender
// account; live mode dials smtp.gmail.com directly rather than going through
// the Gmail REST API, keeping the adapter to a single stdlib dependency.
type GmailSend struct {
	mode   Mode
	sender string
}

// NewGmailSend returns an adapter for the "gmail_send" tool in the given
// mode. sender is the authenticated account's address, used as both the SMTP
// username and the message's From header.
func NewGmailSend(mode Mode, sender string) *GmailSend {
	return &GmailSend{mode: mode, sender: sender}
}

func (g *GmailSend) Tool() string              { return "gmail_send" }
func (g *GmailSend) Actions() []string         { return []string{"send"} }
func (g *GmailSend) Cacheable(string) bool     { return false }
func (g *GmailSend) NeedsCredential(string) bool { return true }

func (g *GmailSend) Validate(action string, params map[string]any) error {
	if action != "send" {
		return gatewayerr.New(gatewayerr.BadRequest, "gmail_send: unsupported action").WithDetail("action", action)
	}
	for _, key := range []string{"to", "subject", "body"} {
		if _, err := requireString(params, action, key); err != nil {
			return err
		}
	}
	return nil
}

func (g *GmailSend) Invoke(ctx context.Context, action string, params map[string]any, creds string) (Result, error) {
	to, _ := stringParam(params, "to")
	subject, _ := stringParam(params, "subject")
	body, _ := stringParam(params, "body")

	if g.mode == ModeMock {
		return Result{Body: map[string]any{
			"message_id": "mock-" + to,
			"status":     "sent",
		}}, nil
	}

	if creds == "" {
		return Result{}, gatewayerr.New(gatewayerr.CredNotFound, "gmail_send: no active credential")
	}

	msg := buildRFC822Message(g.sender, to, subject, body)
	auth := smtp.PlainAuth("", g.sender, creds, "smtp.gmail.com")

	if err := smtp.SendMail("smtp.gmail.com:587", auth, g.sender, []string{to}, msg); err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Network, "gmail_send: delivery failed", err)
	}

	return Result{Body: map[string]any{
		"status": "sent",
	}}, nil
}

func buildRFC822Message(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

var _ Adapter = (*GmailSend)(nil)
