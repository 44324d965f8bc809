// Package llm builds the OpenAI client shared by script drafting and speech
// synthesis.
package llm

import (
	"net/http"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	openai "github.com/sashabaranov/go-openai"
)

const requestTimeout = 2 * time.Minute

// NewClient returns nil when apiKey is empty so callers can fall back to
// their offline behavior.
func NewClient(apiKey, baseURL string) *openai.Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return openai.NewClientWithConfig(cfg)
}

// Schema reflects T into the JSON schema subset accepted by structured outputs.
func Schema[T any]() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
