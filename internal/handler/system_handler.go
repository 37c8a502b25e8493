package handler

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/service"
)

// HealthCheck 提供监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "pong",
		"status":   "ok",
		"database": "up",
	})
}

type aiSettingsRequest struct {
	AIProvider          string `json:"ai_provider" binding:"omitempty,oneof=openai deepseek gemini"`
	OpenAIAPIKey        string `json:"openai_api_key"`
	DeepSeekAPIKey      string `json:"deepseek_api_key"`
	GeminiAPIKey        string `json:"gemini_api_key"`
	AIExplanationPrompt string `json:"ai_explanation_prompt" binding:"max=4000"`
	AIChatPrompt        string `json:"ai_chat_prompt" binding:"max=4000"`
}

type aiTestRequest struct {
	Provider string `json:"provider" binding:"required,oneof=openai deepseek gemini"`
	APIKey   string `json:"api_key"`
}

// GetAISettings 返回当前 AI 设置，API Key 仅显示末尾四位。
func (a *API) GetAISettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "AI 설정을 불러오지 못했습니다")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": aiSettingsPayload(settings)})
}

// UpdateAISettings 保存 AI 设置；Key 留空表示保持原值。
func (a *API) UpdateAISettings(c *gin.Context) {
	var payload aiSettingsRequest
	if !bindJSON(c, &payload, "AI 설정을 확인해 주세요") {
		return
	}

	settings, err := a.system.UpdateSettings(payload.toInput())
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "AI 설정을 저장하지 못했습니다")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "AI 설정이 저장되었습니다",
		"settings": aiSettingsPayload(settings),
	})
}

// TestAIConnection 测试不同 AI 平台 API Key 的连通性；未提供 Key 时使用已保存的值。
func (a *API) TestAIConnection(c *gin.Context) {
	var payload aiTestRequest
	if !bindJSON(c, &payload, "AI 설정을 확인해 주세요") {
		return
	}

	apiKey := strings.TrimSpace(payload.APIKey)
	if apiKey == "" {
		if settings, err := a.system.GetSettings(); err == nil {
			apiKey = settings.APIKeyFor(payload.Provider)
		}
	}

	if err := a.system.TestAIConnection(c.Request.Context(), payload.Provider, apiKey); err != nil {
		switch {
		case errors.Is(err, service.ErrAIAPIKeyMissing):
			respondError(c, http.StatusBadRequest, "유효한 AI API Key를 입력해 주세요")
		default:
			respondError(c, http.StatusBadGateway, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "AI 연결이 정상입니다"})
}

func (r aiSettingsRequest) toInput() service.SystemSettingsInput {
	return service.SystemSettingsInput{
		AIProvider:          r.AIProvider,
		OpenAIAPIKey:        r.OpenAIAPIKey,
		DeepSeekAPIKey:      r.DeepSeekAPIKey,
		GeminiAPIKey:        r.GeminiAPIKey,
		AIExplanationPrompt: r.AIExplanationPrompt,
		AIChatPrompt:        r.AIChatPrompt,
	}
}

func aiSettingsPayload(settings service.SystemSettings) gin.H {
	return gin.H{
		"ai_provider":           settings.AIProvider,
		"openai_api_key":        maskAPIKey(settings.OpenAIAPIKey),
		"deepseek_api_key":      maskAPIKey(settings.DeepSeekAPIKey),
		"gemini_api_key":        maskAPIKey(settings.GeminiAPIKey),
		"ai_explanation_prompt": settings.AIExplanationPrompt,
		"ai_chat_prompt":        settings.AIChatPrompt,
	}
}

func maskAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if utf8.RuneCountInString(key) <= 4 {
		return "****"
	}
	runes := []rune(key)
	return "****" + string(runes[len(runes)-4:])
}
