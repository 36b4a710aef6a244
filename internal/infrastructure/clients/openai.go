// Package clients holds HTTP clients for third-party SaaS APIs.
package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when a client is missing its credentials
var ErrNotConfigured = errors.New("client not configured")

// ChatMessage OpenAI 对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// OpenAIClient OpenAI chat completions 客户端
type OpenAIClient struct {
	httpClient *resty.Client
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewOpenAIClient 创建 OpenAI 客户端，baseURL 为空时使用官方地址
func NewOpenAIClient(baseURL, apiKey, model string, logger *zap.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(60*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &OpenAIClient{
		httpClient: client,
		apiKey:     apiKey,
		model:      model,
		logger:     logger,
	}
}

// Configured reports whether an API key is set
func (c *OpenAIClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Chat 发送对话并返回第一条回复内容
func (c *OpenAIClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(chatRequest{Model: c.model, Messages: messages, Temperature: 0.3}).
		Post("/chat/completions")
	if err != nil {
		c.logger.Error("OpenAI request failed", zap.Error(err))
		return "", fmt.Errorf("openai request: %w", err)
	}
	if resp.IsError() {
		msg := gjson.GetBytes(resp.Body(), "error.message").String()
		c.logger.Error("OpenAI returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", msg),
		)
		return "", fmt.Errorf("openai error: %s (status: %d)", msg, resp.StatusCode())
	}

	content := gjson.GetBytes(resp.Body(), "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("openai response has no choices")
	}
	return strings.TrimSpace(content.String()), nil
}
