// Package ollama is a thin client for the Ollama embedding and
// generation endpoints.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL       = "http://localhost:11434"
	DefaultEmbedModel    = "nomic-embed-text"
	DefaultGenerateModel = "llama3.1:8b-instruct"
	DefaultTimeout       = 120 * time.Second
)

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// EmbedModel is the embedding model (default: nomic-embed-text).
	EmbedModel string

	// GenerateModel is the generation model (default: llama3.1:8b-instruct).
	GenerateModel string

	// Timeout is the per-request timeout (default: 120s).
	Timeout time.Duration
}

// Client calls the Ollama HTTP API for embeddings and text generation.
type Client struct {
	client        *http.Client
	baseURL       string
	embedModel    string
	generateModel string
}

// NewClient creates a client, filling unset config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.GenerateModel == "" {
		cfg.GenerateModel = DefaultGenerateModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client:        &http.Client{Timeout: cfg.Timeout},
		baseURL:       cfg.BaseURL,
		embedModel:    cfg.EmbedModel,
		generateModel: cfg.GenerateModel,
	}
}

// embedRequest is the /api/embed request format.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the /api/embed response format. Depending on the
// Ollama version the vector arrives as a single "embedding" or as an
// "embeddings" list of lists.
type embedResponse struct {
	Embedding  []float32   `json:"embedding"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed maps text to an embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	err := c.postJSON(ctx, "/api/embed", embedRequest{
		Model: c.embedModel,
		Input: text,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Embedding) > 0 {
		return resp.Embedding, nil
	}
	if len(resp.Embeddings) > 0 {
		return resp.Embeddings[0], nil
	}

	return nil, fmt.Errorf("ollama: unexpected embed response shape for model %s", c.embedModel)
}

// generateRequest is the /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs the generation model on prompt in non-streaming mode
// and returns its text response verbatim.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var resp generateResponse
	err := c.postJSON(ctx, "/api/generate", generateRequest{
		Model:  c.generateModel,
		Prompt: prompt,
		Stream: false,
	}, &resp)
	if err != nil {
		return "", err
	}

	return resp.Response, nil
}

// Ping checks the service is reachable via the /api/tags endpoint,
// which validates connectivity without running inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d", resp.StatusCode)
	}

	return nil
}

// WaitReady polls Ping until the service responds, retrying up to
// attempts times and sleeping interval between tries.
func (c *Client) WaitReady(ctx context.Context, attempts int, interval time.Duration) error {
	var lastErr error
	for range attempts {
		lastErr = c.Ping(ctx)
		if lastErr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("ollama: not ready after %d attempts: %w", attempts, lastErr)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
