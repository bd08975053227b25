// Package llm provides the chat-completions client used to phrase final
// answers from retrieved framework entries. Discovery itself never depends
// on it; the chat shell degrades to plain result cards when no key is set.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/consultkit/fwassist/internal/config"
)

// Client is an OpenAI-compatible chat-completions client.
type Client struct {
	model      string
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries int
}

// NewFromConfig resolves the chat client from env / ~/.fwassist/.env.
// It returns (nil, nil) when no API key is configured so callers can fall
// back to unphrased output.
func NewFromConfig(model string) (*Client, error) {
	apiKey, err := config.GetConfigValue("FWASSIST_CHAT_API_KEY")
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		apiKey, err = config.GetConfigValue("FWASSIST_EMBEDDINGS_API_KEY")
		if err != nil {
			return nil, err
		}
	}
	if apiKey == "" {
		return nil, nil
	}
	baseURL, err := config.GetConfigValue("FWASSIST_CHAT_BASE_URL")
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		model:      model,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
	}, nil
}

// Chat sends one system+user exchange and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.3,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}
		reply, retryable, err := c.doChat(ctx, body)
		if err == nil {
			return reply, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) doChat(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("chat request failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("chat request failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("cannot parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("chat response has no choices")
	}
	return parsed.Choices[0].Message.Content, false, nil
}
