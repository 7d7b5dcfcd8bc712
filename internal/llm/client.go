package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/agentchat/pkg/models"
)

const (
	// maxTitleLength caps generated conversation titles
	maxTitleLength = 100
	// titlePreviewLength caps each context line fed to the title prompt
	titlePreviewLength = 200

	titleTemperature = 0.3
	titleMaxTokens   = 30
)

// Turn is one role/content pair of conversation history
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces agent responses and conversation titles
type Generator interface {
	// Generate sends the system-prompt-prefixed history to the agent's
	// model and returns the generated text
	Generate(ctx context.Context, agent *models.Agent, history []Turn) (string, error)

	// GenerateTitle derives a short title from the earliest turns of a
	// conversation
	GenerateTitle(ctx context.Context, agent *models.Agent, context []Turn) (string, error)
}

// ProviderError wraps a transport or provider failure. It is surfaced to
// the caller without retry.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Client is a langchaingo-backed Generator
type Client struct {
	catalog *Catalog
	apiKey  string
	baseURL string
}

// NewClient creates a client resolving model ids against the given catalog
func NewClient(catalog *Catalog, apiKey, baseURL string) *Client {
	return &Client{
		catalog: catalog,
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

// newModel builds a langchaingo model for the agent's configured model id
func (c *Client) newModel(agent *models.Agent) (llms.Model, error) {
	cfg, err := c.catalog.Resolve(agent.LLMModel)
	if err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithModel(cfg.ModelName),
		openai.WithToken(c.apiKey),
	}
	if c.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.baseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	return model, nil
}

// buildMessages converts history into langchaingo message content with the
// system prompt first
func buildMessages(systemPrompt string, history []Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	}
	for _, turn := range history {
		switch turn.Role {
		case models.RoleHuman:
			messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, turn.Content))
		case models.RoleAI:
			messages = append(messages, llms.TextParts(schema.ChatMessageTypeAI, turn.Content))
		}
	}
	return messages
}

// Generate implements Generator
func (c *Client) Generate(ctx context.Context, agent *models.Agent, history []Turn) (string, error) {
	model, err := c.newModel(agent)
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("agent", agent.Name).
		Str("model", agent.LLMModel).
		Int("history", len(history)).
		Msg("Generating agent response")

	resp, err := model.GenerateContent(ctx, buildMessages(agent.SystemPrompt, history),
		llms.WithTemperature(agent.Temperature),
		llms.WithMaxTokens(agent.MaxTokens),
	)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Err: fmt.Errorf("empty completion for model %s", agent.LLMModel)}
	}

	return resp.Choices[0].Content, nil
}

// GenerateTitle implements Generator. It uses a low temperature and a small
// token cap, then normalizes the result.
func (c *Client) GenerateTitle(ctx context.Context, agent *models.Agent, turns []Turn) (string, error) {
	model, err := c.newModel(agent)
	if err != nil {
		return "", err
	}

	prompt := BuildTitlePrompt(turns)

	resp, err := model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	},
		llms.WithTemperature(titleTemperature),
		llms.WithMaxTokens(titleMaxTokens),
	)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Err: fmt.Errorf("empty title completion for model %s", agent.LLMModel)}
	}

	return NormalizeTitle(resp.Choices[0].Content), nil
}

// BuildTitlePrompt formats the earliest conversation turns into the title
// generation prompt
func BuildTitlePrompt(turns []Turn) string {
	var lines []string
	for _, turn := range turns {
		label := "Assistant"
		if turn.Role == models.RoleHuman {
			label = "User"
		}
		content := turn.Content
		if len(content) > titlePreviewLength {
			content = content[:titlePreviewLength] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, content))
	}

	return fmt.Sprintf(`Generate a short title (maximum 6 words) for this conversation.
The title must be concise and descriptive.

Messages:
%s

Title:`, strings.Join(lines, "\n"))
}

// NormalizeTitle strips surrounding quotes and enforces the length cap
func NormalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	return title
}
