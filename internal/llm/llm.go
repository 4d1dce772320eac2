package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model used for article generation
	// and evaluation.
	DefaultModel = "gemini-flash-lite-latest"
)

// TextGenerator is the interface the composer and evaluator depend on.
// A request is a prompt (plus optional identity) and the response is text.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options contains per-call text generation options.
type Options struct {
	MaxTokens   int32   // Maximum number of tokens to generate (0 = backend default)
	Temperature float32 // Temperature for randomness (0.0 to 1.0)
	Model       string  // Model to use (optional, defaults to client's model)
	Identity    string  // Optional system identity/profile for the call
}

// Client is a text-generation client backed by the Gemini API.
type Client struct {
	apiKey    string
	modelName string
	gClient   *genai.Client
}

// NewClient creates a new LLM client.
// It supports multiple ways to get the API key (in order of preference):
// 1. Environment variable: GEMINI_API_KEY (or alternatives)
// 2. Viper configuration: ai.gemini.api_key
func NewClient(ctx context.Context, modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			apiKey = viper.GetString("ai.gemini.api_key")
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}

	if modelName == "" {
		modelName = viper.GetString("ai.gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:    apiKey,
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// GenerateText sends a single prompt and returns the response text.
// JSON-looking payloads are the caller's responsibility to parse.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.modelName
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	var cfg *genai.GenerateContentConfig
	if opts.MaxTokens > 0 || opts.Temperature > 0 || opts.Identity != "" {
		cfg = &genai.GenerateContentConfig{}
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			temp := opts.Temperature
			cfg.Temperature = &temp
		}
		if opts.Identity != "" {
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: opts.Identity}},
			}
		}
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
