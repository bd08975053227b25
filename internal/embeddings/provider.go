package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/consultkit/fwassist/internal/config"
)

// ErrUnavailable indicates the embedding provider could not serve a request
// (network failure, quota, auth). Callers decide whether to abort a batch
// refresh or keep serving the previously built index.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider embeds text into a fixed-length float vector.
//
// Implementations must be deterministic for the same input text and model.
type Provider interface {
	ModelID() string
	Dim() int
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch embeds texts in one provider call where the backend supports
	// it, returning one vector per input in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config contains the resolved embeddings configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// LoadConfig resolves embeddings config from environment variables first,
// then ~/.fwassist/.env.
func LoadConfig() (*Config, error) {
	provider, err := config.GetConfigValue("FWASSIST_EMBEDDINGS_PROVIDER")
	if err != nil {
		return nil, err
	}
	model, err := config.GetConfigValue("FWASSIST_EMBEDDINGS_MODEL")
	if err != nil {
		return nil, err
	}
	apiKey, err := config.GetConfigValue("FWASSIST_EMBEDDINGS_API_KEY")
	if err != nil {
		return nil, err
	}
	baseURL, err := config.GetConfigValue("FWASSIST_EMBEDDINGS_BASE_URL")
	if err != nil {
		return nil, err
	}
	if provider == "" {
		provider = "openai"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Config{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
		BaseURL:  baseURL,
	}, nil
}

// NewFromConfig returns an embeddings provider.
func NewFromConfig(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embeddings config is nil")
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embeddings provider: %s", cfg.Provider)
	}
}
