package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medilog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"
	// AIProviderGemini 表示通过 OpenAI 兼容接口使用 Gemini。
	AIProviderGemini = "gemini"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultDeepSeekBaseURL = "https://api.deepseek.com/v1"
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/openai"
)

var supportedAIProviders = []string{AIProviderOpenAI, AIProviderDeepSeek, AIProviderGemini}

// SystemSettings 描述可配置的 AI 设置。
type SystemSettings struct {
	AIProvider          string
	OpenAIAPIKey        string
	DeepSeekAPIKey      string
	GeminiAPIKey        string
	AIExplanationPrompt string
	AIChatPrompt        string
}

// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	AIProvider          string
	OpenAIAPIKey        string
	DeepSeekAPIKey      string
	GeminiAPIKey        string
	AIExplanationPrompt string
	AIChatPrompt        string
}

// SystemSettingService 提供系统设置的读取与更新能力。
// 数据库中没有值的键回退到 SetDefaults 注入的环境配置。
type SystemSettingService struct {
	db         *gorm.DB
	defaults   SystemSettings
	httpClient httpDoer
	baseURLs   map[string]string
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{
		db:         gdb,
		defaults:   SystemSettings{AIProvider: AIProviderOpenAI},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURLs: map[string]string{
			AIProviderOpenAI:   defaultOpenAIBaseURL,
			AIProviderDeepSeek: defaultDeepSeekBaseURL,
			AIProviderGemini:   defaultGeminiBaseURL,
		},
	}
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var settingKeys = []string{
	db.SettingKeyAIProvider,
	db.SettingKeyOpenAIAPIKey,
	db.SettingKeyDeepSeekAPIKey,
	db.SettingKeyGeminiAPIKey,
	db.SettingKeyAIExplanationPrompt,
	db.SettingKeyAIChatPrompt,
}

// SetDefaults 指定数据库未保存时使用的默认值，一般来自环境变量。
func (s *SystemSettingService) SetDefaults(defaults SystemSettings) {
	if provider := normalizeAIProvider(defaults.AIProvider); provider != "" {
		defaults.AIProvider = provider
	} else {
		defaults.AIProvider = AIProviderOpenAI
	}
	s.defaults = defaults
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := s.defaults
	if result.AIProvider == "" {
		result.AIProvider = AIProviderOpenAI
	}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		if value == "" {
			continue
		}
		switch record.Key {
		case db.SettingKeyAIProvider:
			if provider := normalizeAIProvider(value); provider != "" {
				result.AIProvider = provider
			}
		case db.SettingKeyOpenAIAPIKey:
			result.OpenAIAPIKey = value
		case db.SettingKeyDeepSeekAPIKey:
			result.DeepSeekAPIKey = value
		case db.SettingKeyGeminiAPIKey:
			result.GeminiAPIKey = value
		case db.SettingKeyAIExplanationPrompt:
			result.AIExplanationPrompt = record.Value
		case db.SettingKeyAIChatPrompt:
			result.AIChatPrompt = record.Value
		}
	}

	if strings.TrimSpace(result.AIExplanationPrompt) == "" {
		result.AIExplanationPrompt = defaultExplanationSystemPrompt
	}
	if strings.TrimSpace(result.AIChatPrompt) == "" {
		result.AIChatPrompt = defaultChatSystemPrompt
	}

	return result, nil
}

// UpdateSettings 保存系统设置；API Key 为空表示保留原值。
// 解释提示词变化时清空解释缓存，旧提示词生成的内容不再返回给用户。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	before, err := s.GetSettings()
	if err != nil {
		return SystemSettings{}, err
	}

	provider := normalizeAIProvider(input.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}

	values := map[string]string{
		db.SettingKeyAIProvider:          provider,
		db.SettingKeyAIExplanationPrompt: strings.TrimSpace(input.AIExplanationPrompt),
		db.SettingKeyAIChatPrompt:        strings.TrimSpace(input.AIChatPrompt),
	}
	for key, value := range map[string]string{
		db.SettingKeyOpenAIAPIKey:   input.OpenAIAPIKey,
		db.SettingKeyDeepSeekAPIKey: input.DeepSeekAPIKey,
		db.SettingKeyGeminiAPIKey:   input.GeminiAPIKey,
	} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			values[key] = trimmed
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, key := range settingKeys {
			value, ok := values[key]
			if !ok {
				continue
			}
			if err := upsertSetting(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	after, err := s.GetSettings()
	if err != nil {
		return SystemSettings{}, err
	}
	if after.AIExplanationPrompt != before.AIExplanationPrompt {
		if err := s.db.Where("1 = 1").Delete(&db.AIExplanation{}).Error; err != nil {
			return after, fmt.Errorf("clear explanation cache: %w", err)
		}
	}
	return after, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

// SetHTTPClient 替换用于访问第三方服务的 HTTP 客户端，主要面向测试场景。
func (s *SystemSettingService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.httpClient = &http.Client{Timeout: 10 * time.Second}
		return
	}
	s.httpClient = client
}

// SetBaseURL 覆盖指定平台的 API 基础地址，便于测试或自定义代理。
func (s *SystemSettingService) SetBaseURL(provider, base string) {
	if prov := normalizeAIProvider(provider); prov != "" {
		s.baseURLs[prov] = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// TestAIConnection 调用指定 AI 平台的模型接口验证 API Key 的有效性。
func (s *SystemSettingService) TestAIConnection(ctx context.Context, provider, apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return ErrAIAPIKeyMissing
	}

	prov := normalizeAIProvider(provider)
	if prov == "" {
		prov = AIProviderOpenAI
	}

	client := s.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	label := providerLabel(prov)
	endpoint := strings.TrimRight(s.baseURLs[prov], "/") + "/models"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", strings.ToLower(label), err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("User-Agent", "medilog-admin/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 接口失败: %w", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("%s 返回错误：%s (%s)", label, resp.Status, msg)
		}
		return fmt.Errorf("%s 返回错误：%s", label, resp.Status)
	}

	return nil
}

// APIKeyFor 返回指定平台的 API Key。
func (s SystemSettings) APIKeyFor(provider string) string {
	switch normalizeAIProvider(provider) {
	case AIProviderDeepSeek:
		return strings.TrimSpace(s.DeepSeekAPIKey)
	case AIProviderGemini:
		return strings.TrimSpace(s.GeminiAPIKey)
	default:
		return strings.TrimSpace(s.OpenAIAPIKey)
	}
}

func providerLabel(provider string) string {
	switch provider {
	case AIProviderDeepSeek:
		return "DeepSeek"
	case AIProviderGemini:
		return "Gemini"
	default:
		return "OpenAI"
	}
}

func normalizeAIProvider(provider string) string {
	trimmed := strings.ToLower(strings.TrimSpace(provider))
	for _, candidate := range supportedAIProviders {
		if trimmed == candidate {
			return candidate
		}
	}
	return ""
}
