package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/byteness/toolgateway/gatewayerr"
)

// OpenAI adapts the chat completions endpoint for a single configured model.
type OpenAI struct {
	mode   Mode
	model  string
	client *http.Client
}

// NewOpenAI returns an adapter for the "openai" tool in the given mode.
func NewOpenAI(mode Mode, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		mode:   mode,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *OpenAI) Tool() string          { return "openai" }
func (o *OpenAI) Actions() []string     { return []string{"chat"} }
func (o *OpenAI) Cacheable(string) bool { return false }

func (o *OpenAI) NeedsCredential(string) bool { return true }

func (o *OpenAI) Validate(action string, params map[string]any) error {
	if action != "chat" {
		return gatewayerr.New(gatewayerr.BadRequest, "openai: unsupported action").WithDetail("action", action)
	}
	if _, err := requireString(params, action, "message"); err != nil {
		return err
	}
	return nil
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Invoke(ctx context.Context, action string, params map[string]any, creds string) (Result, error) {
	message, _ := stringParam(params, "message")

	if o.mode == ModeMock {
		return Result{Body: map[string]any{
			"content": "mock reply to: " + message,
			"model":   o.model,
		}}, nil
	}

	if creds == "" {
		return Result{}, gatewayerr.New(gatewayerr.CredNotFound, "openai: no active credential")
	}

	reqBody := openAIChatRequest{
		Model:    o.model,
		Messages: []openAIMessage{{Role: "user", Content: message}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Internal, "openai: marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Internal, "openai: build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Network, "openai: request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return Result{}, gatewayerr.New(gatewayerr.Upstream5xx, fmt.Sprintf("openai: upstream status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, gatewayerr.New(gatewayerr.Validation, fmt.Sprintf("openai: upstream status %d", resp.StatusCode))
	}

	var decoded openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, gatewayerr.Wrap(gatewayerr.Internal, "openai: decode response", err)
	}
	if len(decoded.Choices) == 0 {
		return Result{}, gatewayerr.New(gatewayerr.Internal, "openai: empty choices in response")
	}

	return Result{Body: map[string]any{
		"content": decoded.Choices[0].Message.Content,
		"model":   o.model,
	}}, nil
}

var _ Adapter = (*OpenAI)(nil)
