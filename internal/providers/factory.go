package providers

import (
	"fmt"

	"github.com/hbenali/csvchat/internal/engine"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// NewLLMClient creates an engine.LLMClient for the named provider.
// baseURL overrides the provider default and is mainly useful for
// OpenAI-compatible gateways and local servers.
func NewLLMClient(provider, apiKey, modelName, baseURL string) (engine.LLMClient, error) {
	switch provider {
	case "", "groq":
		if apiKey == "" {
			return nil, fmt.Errorf("groq API key not set")
		}
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
		client, err := NewOpenAIClient(apiKey, modelName, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Groq client: %w", err)
		}
		return client, nil

	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key not set")
		}
		client, err := NewOpenAIClient(apiKey, modelName, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return client, nil

	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("Anthropic API key not set")
		}
		client, err := NewAnthropicClient(apiKey, modelName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: groq, openai, anthropic)", provider)
	}
}
