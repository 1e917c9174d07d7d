// Package llm provides the reasoning-model boundary. Agents treat the model
// as an opaque function from a prompt to one structured object; responses
// may be wrapped in prose or markdown and are parsed tolerantly, and callers
// must supply a fallback for parse failures rather than crash.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/swingdesk/swingdesk/config"
)

// Client is the minimal completion surface agents depend on. Tests and
// offline runs substitute a deterministic implementation.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAI is a Client backed by any OpenAI-compatible endpoint (Groq in the
// default configuration).
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	hasKey      bool
}

// NewOpenAI creates a client from config.
func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		hasKey:      cfg.APIKey != "",
	}
}

// Complete sends a system + user prompt pair and returns the text response.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: o.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStructured sends a prompt expecting JSON and unmarshals the
// response into result. JSON formatting instructions are appended to the
// system prompt, and the response is scanned for a single JSON object even
// when the model wraps it in prose or markdown fences.
func CompleteStructured(ctx context.Context, c Client, system, user string, result any) error {
	system += "\n\nIMPORTANT: Respond with ONLY the JSON object. " +
		"No markdown, no code blocks, no explanations. " +
		"Start with { and end with }."

	content, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}

	extracted := ExtractJSON(content)
	if err := json.Unmarshal([]byte(extracted), result); err != nil {
		return fmt.Errorf("llm: unmarshal structured response: %w", err)
	}
	return nil
}

// ExtractJSON pulls a JSON object from model output that may contain
// markdown fences or surrounding prose.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Strip markdown code fences
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s[3:], "\n"); idx >= 0 {
			s = s[3+idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Find first { and last }
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
