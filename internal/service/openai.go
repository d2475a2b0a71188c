package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/config"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
)

// OpenAIClient handles OpenAI-compatible API interactions. The completion
// and embedding endpoints are the only suspension points in the service,
// so every call runs under the configured timeout with one retry.
type OpenAIClient struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg *config.OpenAIConfig, log zerolog.Logger) *OpenAIClient {
	return &OpenAIClient{
		config: cfg,
		log:    log.With().Str("component", "openai").Logger(),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// IsEnabled returns whether the client is configured and ready.
func (c *OpenAIClient) IsEnabled() bool {
	return c != nil && c.config != nil && c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request.
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response.
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request.
type EmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// EmbeddingResponse represents the embedding API response.
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// ChatCompletion performs a chat completion request.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}

	body, err := c.postJSON(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}
	return &result, nil
}

// CreateEmbedding generates the embedding for a single query text.
func (c *OpenAIClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	req := EmbeddingRequest{
		Model:      c.config.EmbeddingModel,
		Input:      []string{text},
		Dimensions: c.config.EmbeddingDimensions,
	}

	body, err := c.postJSON(ctx, "/embeddings", req)
	if err != nil {
		return nil, err
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}
	return result.Data[0].Embedding, nil
}

// postJSON sends one request with a single retry on timeout or 5xx, then
// maps the failure to model.ErrUpstreamUnavailable so callers surface a
// generic retryable reply instead of internal detail.
func (c *OpenAIClient) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.APIBase + path
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, ctx.Err())
			case <-time.After(500 * time.Millisecond):
			}
		}

		body, retryable, err := c.doOnce(ctx, url, reqBody)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn().Str("url", url).Int("attempt", attempt+1).Err(err).
			Msg("upstream request failed, retrying")
	}

	return nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, lastErr)
}

func (c *OpenAIClient) doOnce(ctx context.Context, url string, reqBody []byte) (body []byte, retryable bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, true, fmt.Errorf("request timed out: %w", err)
		}
		return nil, true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, false, nil
}
