package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chefsire/internal/infrastructure/config"
	"chefsire/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const upstreamName = "openrouter"

// Message 消息結構
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示 API 請求
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Usage   UsageInfo `json:"usage"`
}

// Choice 選擇結構
type Choice struct {
	Message Message `json:"message"`
}

// UsageInfo 使用量信息
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error 表示 API 錯誤
type Error struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// Client OpenRouter API 客戶端
type Client struct {
	http      *resty.Client
	model     string
	maxTokens int
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg *config.OpenRouterConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "Chefsire")

	return &Client{
		http:      client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Complete 發送對話並回傳第一個回覆的內容
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	req := &Request{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
	}

	var result Response
	var apiErr Error
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err == nil && !resp.IsSuccess() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		err = fmt.Errorf("OpenRouter API returned %d: %s", resp.StatusCode(), msg)
	}
	common.LogUpstreamCall(upstreamName, "chat", time.Since(start), err)
	if err != nil {
		return "", common.ErrAIServiceError.Wrap(err)
	}

	if len(result.Choices) == 0 {
		return "", common.ErrAIServiceError.Wrap(fmt.Errorf("no choices in OpenRouter response"))
	}

	common.LogDebug("OpenRouter usage",
		zap.String("model", c.model),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
