package service

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

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultAITimeout = 60 * time.Second

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type aiChatRequest struct {
	SystemPrompt string
	// History 为此前的对话轮次，按时间顺序排列
	History     []chatMessage
	UserPrompt  string
	MaxTokens   int
	Temperature float64
}

type aiChatResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type aiProviderEndpoint struct {
	label   string
	baseURL string
	model   string
}

// aiChatClient 调用 OpenAI 兼容的 /chat/completions 接口，三个平台共享同一熔断器
type aiChatClient struct {
	settings  *SystemSettingService
	http      httpDoer
	endpoints map[string]*aiProviderEndpoint
	breaker   *gobreaker.CircuitBreaker
}

func newAIChatClient(settings *SystemSettingService) *aiChatClient {
	return &aiChatClient{
		settings: settings,
		http:     &http.Client{Timeout: defaultAITimeout},
		endpoints: map[string]*aiProviderEndpoint{
			AIProviderOpenAI:   {label: "OpenAI", baseURL: defaultOpenAIBaseURL, model: "gpt-4o-mini"},
			AIProviderDeepSeek: {label: "DeepSeek", baseURL: defaultDeepSeekBaseURL, model: "deepseek-chat"},
			AIProviderGemini:   {label: "Gemini", baseURL: defaultGeminiBaseURL, model: "gemini-2.0-flash"},
		},
		breaker: newAIBreaker("ai-chat"),
	}
}

func newAIBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// 缺少 Key 属于配置问题，不计入熔断
			return err == nil || errors.Is(err, ErrAIAPIKeyMissing)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("ai circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// SetHTTPClient 覆盖 HTTP 客户端，nil 恢复默认。
func (c *aiChatClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: defaultAITimeout}
		return
	}
	c.http = client
}

// SetTimeout 调整默认客户端的超时。
func (c *aiChatClient) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	c.http = &http.Client{Timeout: timeout}
}

func (c *aiChatClient) SetBaseURL(provider, base string) {
	if endpoint, ok := c.endpoints[normalizeAIProvider(provider)]; ok {
		endpoint.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

func (c *aiChatClient) SetModel(provider, model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	if endpoint, ok := c.endpoints[normalizeAIProvider(provider)]; ok {
		endpoint.model = model
	}
}

func (c *aiChatClient) callWithSettings(ctx context.Context, settings SystemSettings, req aiChatRequest) (aiChatResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doCall(ctx, settings, req)
	})
	if err != nil {
		return aiChatResponse{}, err
	}
	return result.(aiChatResponse), nil
}

func (c *aiChatClient) doCall(ctx context.Context, settings SystemSettings, req aiChatRequest) (aiChatResponse, error) {
	provider := normalizeAIProvider(settings.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}
	endpoint := c.endpoints[provider]

	apiKey := settings.APIKeyFor(provider)
	if apiKey == "" {
		return aiChatResponse{}, ErrAIAPIKeyMissing
	}

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	maxTokens := req.MaxTokens
	if maxTokens < 0 {
		maxTokens = 0
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	messages = append(messages, chatMessage{Role: "system", Content: strings.TrimSpace(req.SystemPrompt)})
	messages = append(messages, req.History...)
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	payload := chatCompletionRequest{
		Model:       endpoint.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("构造请求失败: %w", err)
	}

	url := strings.TrimRight(endpoint.baseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("创建 %s 请求失败: %w", endpoint.label, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "medilog-ai/1.0")

	resp, err := client.Do(httpReq)
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("请求 %s 接口失败: %w", endpoint.label, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return aiChatResponse{}, fmt.Errorf("读取 %s 响应失败: %w", endpoint.label, err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return aiChatResponse{}, fmt.Errorf("%s 接口返回错误：%s", endpoint.label, resp.Status)
		}
		return aiChatResponse{}, fmt.Errorf("解析 %s 响应失败: %w", endpoint.label, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		errMsg := strings.TrimSpace(completion.Error.Message)
		if errMsg == "" {
			errMsg = resp.Status
		}
		return aiChatResponse{}, fmt.Errorf("%s 接口返回错误：%s", endpoint.label, errMsg)
	}

	if len(completion.Choices) == 0 {
		return aiChatResponse{}, fmt.Errorf("%s 接口未返回结果", endpoint.label)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return aiChatResponse{}, fmt.Errorf("%s 返回了空内容", endpoint.label)
	}
	return aiChatResponse{
		Content:          content,
		Model:            endpoint.model,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}, nil
}
