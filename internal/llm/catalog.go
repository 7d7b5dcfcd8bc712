package llm

import (
	"fmt"
	"sort"
)

// ErrUnknownModel is returned when a model id is not in the catalog
var ErrUnknownModel = fmt.Errorf("unknown llm model")

// ModelConfig describes one entry of the model catalog
type ModelConfig struct {
	DisplayName       string `json:"display_name"`
	Provider          string `json:"provider"`
	ModelName         string `json:"model_name"`
	MaxTokensLimit    int    `json:"max_tokens_limit"`
	SupportsStreaming bool   `json:"supports_streaming"`
}

// Catalog is an immutable lookup from model id to provider configuration.
// It is built once at startup and injected wherever models are resolved.
type Catalog struct {
	models map[string]ModelConfig
}

// NewCatalog builds a catalog from the given entries
func NewCatalog(models map[string]ModelConfig) *Catalog {
	copied := make(map[string]ModelConfig, len(models))
	for id, cfg := range models {
		copied[id] = cfg
	}
	return &Catalog{models: copied}
}

// DefaultCatalog returns the catalog of supported models
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]ModelConfig{
		"gpt-4o": {
			DisplayName:       "GPT-4o",
			Provider:          "openai",
			ModelName:         "gpt-4o",
			MaxTokensLimit:    4096,
			SupportsStreaming: true,
		},
		"gpt-4o-mini": {
			DisplayName:       "GPT-4o Mini",
			Provider:          "openai",
			ModelName:         "gpt-4o-mini",
			MaxTokensLimit:    4096,
			SupportsStreaming: true,
		},
		"gpt-4-turbo": {
			DisplayName:       "GPT-4 Turbo",
			Provider:          "openai",
			ModelName:         "gpt-4-turbo",
			MaxTokensLimit:    4096,
			SupportsStreaming: true,
		},
		"gpt-4": {
			DisplayName:       "GPT-4",
			Provider:          "openai",
			ModelName:         "gpt-4",
			MaxTokensLimit:    8192,
			SupportsStreaming: true,
		},
		"gpt-3.5-turbo": {
			DisplayName:       "GPT-3.5 Turbo",
			Provider:          "openai",
			ModelName:         "gpt-3.5-turbo",
			MaxTokensLimit:    4096,
			SupportsStreaming: true,
		},
	})
}

// Resolve returns the configuration for a model id
func (c *Catalog) Resolve(modelID string) (ModelConfig, error) {
	cfg, ok := c.models[modelID]
	if !ok {
		return ModelConfig{}, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return cfg, nil
}

// Has reports whether a model id is registered
func (c *Catalog) Has(modelID string) bool {
	_, ok := c.models[modelID]
	return ok
}

// All returns every catalog entry keyed by model id
func (c *Catalog) All() map[string]ModelConfig {
	out := make(map[string]ModelConfig, len(c.models))
	for id, cfg := range c.models {
		out[id] = cfg
	}
	return out
}

// IDs returns the registered model ids in sorted order
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
