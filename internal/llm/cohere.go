package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultCohereURL = "https://api.cohere.ai"

// CohereClient calls the Cohere generate API.
type CohereClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewCohereClient creates a client for model. An empty baseURL uses the public API.
// Generation calls carry no client-side timeout; the caller's context bounds them.
func NewCohereClient(apiKey, model, baseURL string) *CohereClient {
	if baseURL == "" {
		baseURL = defaultCohereURL
	}
	return &CohereClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type cohereRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	K             *int     `json:"k,omitempty"`
	P             *float64 `json:"p,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

type cohereResponse struct {
	Generations []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"generations"`
	Message string `json:"message"`
}

// Generate submits req to /v1/generate.
func (c *CohereClient) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(cohereRequest{
		Model:         c.model,
		Prompt:        req.Prompt,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		K:             req.TopK,
		P:             req.TopP,
		StopSequences: req.StopSequences,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cohere api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var apiResp cohereResponse
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiResp) == nil && apiResp.Message != "" {
			msg = apiResp.Message
		}
		return nil, &StatusError{Provider: "cohere", StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &Response{Generations: make([]Generation, 0, len(apiResp.Generations))}
	for _, g := range apiResp.Generations {
		out.Generations = append(out.Generations, Generation{Text: g.Text})
	}
	return out, nil
}

// Model returns the configured model name.
func (c *CohereClient) Model() string {
	return c.model
}

// Close releases resources.
func (c *CohereClient) Close() {
	c.httpClient.CloseIdleConnections()
}
