package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"screen-ai-assistant/src/artifact"
)

var (
	ErrMissingAPIKey = errors.New("API key is required")
	ErrMissingModel  = errors.New("model is required")
	ErrNoChoices     = errors.New("no choices in API response")
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// HTTPClient is optional; the default client has no timeout, deadlines come from ctx.
	HTTPClient *http.Client
}

// Request is one single-turn multimodal analysis request.
type Request struct {
	Prompt   string
	ImagePNG []byte
}

// DataURI returns the request image embedded as a PNG data URI.
func (r Request) DataURI() string {
	return artifact.DataURI(r.ImagePNG)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	api   *openai.Client
	model string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrMissingModel
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &Client{api: openai.NewClientWithConfig(oc), model: cfg.Model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Describe sends the prompt and image and returns the first choice's message text.
func (c *Client) Describe(ctx context.Context, req Request) (string, error) {
	if len(req.ImagePNG) == 0 {
		return "", errors.New("image data is empty")
	}

	resp, err := c.api.CreateChatCompletion(ctx, BuildChatRequest(c.model, req))
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildChatRequest builds one user message with a text part followed by an image part.
func BuildChatRequest(model string, req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: req.DataURI(),
						},
					},
				},
			},
		},
	}
}
