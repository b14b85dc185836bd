package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel     = "gpt-4"
	defaultMaxTokens = 500
	maxErrorBodySize = 512

	systemDirective = "You are a helpful assistant that generates exactly one valid, read-only PostgreSQL " +
		"SELECT query that best matches the user request and is consistent with the following schema. " +
		"Never modify data or schema. Return only the SQL, optionally inside a ```sql fenced block."
	userPromptPrefix = "Generate a single SQL query for this request: "
)

type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// OpenAIGenerator talks to an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &OpenAIGenerator{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		model:     model,
		maxTokens: maxTokens,
		client:    client,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	N           int           `json:"n"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) Generate(ctx context.Context, userText, schemaContext string) (GeneratedQuery, error) {
	body, err := json.Marshal(buildChatRequest(g.model, g.maxTokens, userText, schemaContext))
	if err != nil {
		return GeneratedQuery{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return GeneratedQuery{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return GeneratedQuery{}, &UpstreamError{Err: fmt.Errorf("request chat completion: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return GeneratedQuery{}, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read chat response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return GeneratedQuery{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("chat completion returned %s: %s", http.StatusText(resp.StatusCode), truncate(rawRespBody)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return GeneratedQuery{}, &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode chat completion response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return GeneratedQuery{}, &UpstreamError{StatusCode: resp.StatusCode, Err: errors.New("empty chat completion choices")}
	}

	raw := ""
	if content := parsed.Choices[0].Message.Content; content != nil {
		raw = *content
	}
	return GeneratedQuery{
		RawModelText: raw,
		ExtractedSQL: ExtractSQL(raw),
		Provider:     "openai-compatible",
		Model:        g.model,
	}, nil
}

func buildChatRequest(model string, maxTokens int, userText, schemaContext string) chatRequest {
	system := systemDirective
	if schemaContext != "" {
		system += "\n\n" + schemaContext
	}
	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userPromptPrefix + userText},
		},
		Temperature: 0,
		N:           1,
		MaxTokens:   maxTokens,
	}
}

func truncate(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodySize {
		return text[:maxErrorBodySize] + "..."
	}
	return text
}
