package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medilog/internal/db"
	"github.com/medilog/internal/metrics"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// ExplanationFallback 在生成解释失败时返回，不写入缓存
	ExplanationFallback = "설명을 불러오는 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	// ChatFallback 在问答失败时返回
	ChatFallback = "대화 중에 문제가 발생했습니다."

	defaultExplanationSystemPrompt = "당신은 의학 정보를 일반인도 이해하기 아주 쉽게 설명해주는 건강 비서입니다. " +
		"어려운 전문 용어를 피하고 비유를 들어 초등학생도 이해할 수 있게 설명하세요. " +
		"3문장 내외로 짧고 친절하게, 반드시 한국어로 답변하세요."
	defaultChatSystemPrompt = "당신은 복약 정보를 안내하는 건강 비서입니다. " +
		"주어진 맥락 정보를 바탕으로 짧고 이해하기 쉽게 한국어로 답변하고, " +
		"전문적인 진단은 의사와 상담하라는 권고를 포함하세요."

	defaultExplanationMaxTokens   = 400
	defaultChatMaxTokens          = 500
	defaultExplanationTemperature = 0.3
	maxChatHistoryTurns           = 20
	maxChatQueryRunes             = 1000
)

// ErrInvalidExplanationInput 缺少目标类型或 ID
var ErrInvalidExplanationInput = errors.New("invalid explanation input")

// ExplanationInput 描述需要通俗解释的参考条目
type ExplanationInput struct {
	TargetType  string
	TargetID    uint
	TargetName  string
	MedicalTerm string
}

// Explanation 为解释结果；Fallback=true 时 Content 为固定提示语
type Explanation struct {
	Content  string `json:"content"`
	HTML     string `json:"html"`
	Model    string `json:"model,omitempty"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback"`
}

// ChatTurn 是一轮对话
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatInput 描述一次追问
type ChatInput struct {
	History    []ChatTurn
	Query      string
	TargetName string
	Context    string
}

// ChatReply 为问答结果
type ChatReply struct {
	Content  string `json:"content"`
	HTML     string `json:"html"`
	Fallback bool   `json:"fallback"`
}

// ExplanationGenerator 定义解释与问答能力，便于 handler 注入替身
type ExplanationGenerator interface {
	Explain(ctx context.Context, input ExplanationInput) (Explanation, error)
	Chat(ctx context.Context, input ChatInput) (ChatReply, error)
}

var (
	explanationMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	explanationSanitizer = bluemonday.UGCPolicy()
)

// ExplanationService 基于大模型生成通俗解释，并以 ai_explanations 表做旁路缓存
type ExplanationService struct {
	db      *gorm.DB
	client  *aiChatClient
	metrics *metrics.Collector
}

var _ ExplanationGenerator = (*ExplanationService)(nil)

// NewExplanationService 构造 ExplanationService
func NewExplanationService(gdb *gorm.DB, settings *SystemSettingService, collector *metrics.Collector) *ExplanationService {
	return &ExplanationService{
		db:      gdb,
		client:  newAIChatClient(settings),
		metrics: collector,
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *ExplanationService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetTimeout 调整 AI 请求超时。
func (s *ExplanationService) SetTimeout(timeout time.Duration) {
	s.client.SetTimeout(timeout)
}

// SetBaseURL 覆盖指定平台的 API 地址。
func (s *ExplanationService) SetBaseURL(provider, base string) {
	s.client.SetBaseURL(provider, base)
}

// SetModel 指定平台使用的模型名称。
func (s *ExplanationService) SetModel(provider, model string) {
	s.client.SetModel(provider, model)
}

// Explain 先查缓存，未命中时调用模型生成并写入缓存；生成失败返回固定提示语且不缓存
func (s *ExplanationService) Explain(ctx context.Context, input ExplanationInput) (Explanation, error) {
	targetType := NormalizeReferenceType(input.TargetType)
	if targetType == "" || input.TargetID == 0 {
		return Explanation{}, ErrInvalidExplanationInput
	}

	var cached db.AIExplanation
	err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, input.TargetID).
		First(&cached).Error
	switch {
	case err == nil:
		s.metrics.ExplanationLookup(true)
		return Explanation{
			Content: cached.Content,
			HTML:    renderMarkdown(cached.Content),
			Model:   cached.Model,
			Cached:  true,
		}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		zap.L().Warn("read explanation cache failed", zap.String("target_type", targetType), zap.Uint("target_id", input.TargetID), zap.Error(err))
	}
	s.metrics.ExplanationLookup(false)

	userPrompt := buildExplanationPrompt(targetType, input.TargetName, input.MedicalTerm)
	logAIExchange("EXPLANATION", "prompt", userPrompt)

	settings, err := s.client.settings.GetSettings()
	if err != nil {
		return s.explanationFallback(fmt.Errorf("读取系统设置失败: %w", err)), nil
	}

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: settings.AIExplanationPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultExplanationMaxTokens,
		Temperature:  defaultExplanationTemperature,
	})
	if err != nil {
		return s.explanationFallback(err), nil
	}
	logAIExchange("EXPLANATION", "response", result.Content)

	record := db.AIExplanation{
		TargetType: targetType,
		TargetID:   input.TargetID,
		Content:    result.Content,
		Model:      result.Model,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		zap.L().Warn("write explanation cache failed", zap.String("target_type", targetType), zap.Uint("target_id", input.TargetID), zap.Error(err))
	}

	return Explanation{
		Content: result.Content,
		HTML:    renderMarkdown(result.Content),
		Model:   result.Model,
	}, nil
}

// Chat 结合历史对话回答追问，失败时返回固定提示语
func (s *ExplanationService) Chat(ctx context.Context, input ChatInput) (ChatReply, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return ChatReply{}, fmt.Errorf("%w: query is required", ErrInvalidExplanationInput)
	}

	userPrompt := buildChatPrompt(input.TargetName, input.Context, truncateRunes(query, maxChatQueryRunes))
	logAIExchange("CHAT", "prompt", userPrompt)

	settings, err := s.client.settings.GetSettings()
	if err != nil {
		return s.chatFallback(fmt.Errorf("读取系统设置失败: %w", err)), nil
	}

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: settings.AIChatPrompt,
		History:      normalizeChatHistory(input.History),
		UserPrompt:   userPrompt,
		MaxTokens:    defaultChatMaxTokens,
		Temperature:  defaultExplanationTemperature,
	})
	if err != nil {
		return s.chatFallback(err), nil
	}
	logAIExchange("CHAT", "response", result.Content)

	return ChatReply{Content: result.Content, HTML: renderMarkdown(result.Content)}, nil
}

func (s *ExplanationService) explanationFallback(err error) Explanation {
	zap.L().Warn("ai explanation failed", zap.Error(err))
	s.metrics.AIFailed("explanation")
	return Explanation{Content: ExplanationFallback, HTML: renderMarkdown(ExplanationFallback), Fallback: true}
}

func (s *ExplanationService) chatFallback(err error) ChatReply {
	zap.L().Warn("ai chat failed", zap.Error(err))
	s.metrics.AIFailed("chat")
	return ChatReply{Content: ChatFallback, HTML: renderMarkdown(ChatFallback), Fallback: true}
}

func buildExplanationPrompt(targetType, name, term string) string {
	kind := "약품"
	if targetType == db.ReferenceTypeDisease {
		kind = "질환"
	}
	var builder strings.Builder
	builder.WriteString("대상: ")
	builder.WriteString(strings.TrimSpace(name))
	builder.WriteString(" (")
	builder.WriteString(kind)
	builder.WriteString(")\n")
	builder.WriteString("어려운 의학 용어/설명: ")
	builder.WriteString(strings.TrimSpace(term))
	builder.WriteString("\n\n위 내용을 쉬운 한국어로 설명해 주세요.")
	return builder.String()
}

func buildChatPrompt(name, contextInfo, query string) string {
	var builder strings.Builder
	if name = strings.TrimSpace(name); name != "" {
		builder.WriteString("대상: ")
		builder.WriteString(name)
		builder.WriteString("\n")
	}
	if contextInfo = strings.TrimSpace(contextInfo); contextInfo != "" {
		builder.WriteString("맥락 정보: ")
		builder.WriteString(contextInfo)
		builder.WriteString("\n")
	}
	builder.WriteString("질문: ")
	builder.WriteString(query)
	return builder.String()
}

// normalizeChatHistory 只保留最近的若干轮，角色统一为 user/assistant
func normalizeChatHistory(history []ChatTurn) []chatMessage {
	if len(history) > maxChatHistoryTurns {
		history = history[len(history)-maxChatHistoryTurns:]
	}
	messages := make([]chatMessage, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := "user"
		if r := strings.ToLower(strings.TrimSpace(turn.Role)); r == "assistant" || r == "model" {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: content})
	}
	return messages
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := explanationMarkdown.Convert([]byte(content), &buf); err != nil {
		return explanationSanitizer.Sanitize(content)
	}
	return string(explanationSanitizer.SanitizeBytes(buf.Bytes()))
}
