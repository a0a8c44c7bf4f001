// Package llm wraps an OpenAI-compatible chat completions API for text and
// vision calls, recording token usage per invocation.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/pkg/models"
)

// Config holds LLM client configuration.
type Config struct {
	BaseURL     string // e.g. "https://api.openai.com/v1"
	APIKey      string
	Model       string // text extraction model
	VisionModel string // logo detection model; defaults to Model
	Timeout     time.Duration
}

// UsageRecorder receives one record per model call that returned metrics.
type UsageRecorder interface {
	RecordLLMUsage(ctx context.Context, record *models.UsageRecord) error
}

// Client calls the chat completions API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	recorder    UsageRecorder
}

// New creates a new LLM client. The recorder may be nil, in which case usage
// is not persisted.
func New(config Config, recorder UsageRecorder) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config.VisionModel == "" {
		config.VisionModel = config.Model
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: config.Timeout},
		baseURL:     strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:      config.APIKey,
		model:       config.Model,
		visionModel: config.VisionModel,
		recorder:    recorder,
	}, nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imagePayload `json:"image_url,omitempty"`
}

type imagePayload struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a text prompt to the extraction model.
// sourceID tags the usage record and may be nil.
func (c *Client) Complete(ctx context.Context, prompt string, sourceID *uuid.UUID) (string, error) {
	messages := []chatMessage{{Role: "user", Content: prompt}}
	return c.send(ctx, c.model, messages, sourceID)
}

// CompleteVision sends a prompt plus a PNG screenshot to the vision model.
func (c *Client) CompleteVision(ctx context.Context, prompt string, screenshot []byte, sourceID *uuid.UUID) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(screenshot)
	messages := []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imagePayload{URL: dataURL}},
		},
	}}
	return c.send(ctx, c.visionModel, messages, sourceID)
}

func (c *Client) send(ctx context.Context, model string, messages []chatMessage, sourceID *uuid.UUID) (string, error) {
	req := chatRequest{
		Model:    model,
		Messages: messages,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response returned")
	}

	c.recordUsage(ctx, model, &chatResp, sourceID)

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// recordUsage appends a usage row when the API returned metrics. Failures
// are logged; an unrecorded audit row never fails the model call.
func (c *Client) recordUsage(ctx context.Context, model string, resp *chatResponse, sourceID *uuid.UUID) {
	if c.recorder == nil || resp.Usage == nil {
		return
	}

	record := &models.UsageRecord{
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Cost:             Cost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		SourceID:         sourceID,
		CreatedAt:        time.Now().UTC(),
	}

	if err := c.recorder.RecordLLMUsage(ctx, record); err != nil {
		slog.Warn("failed to record LLM usage", "model", model, "error", err)
	}
}
