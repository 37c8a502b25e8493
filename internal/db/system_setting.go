package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyAIProvider 表示当前使用的 AI 平台。
	SettingKeyAIProvider = "ai_provider"
	// SettingKeyOpenAIAPIKey 表示 OpenAI API Key。
	SettingKeyOpenAIAPIKey = "openai_api_key"
	// SettingKeyDeepSeekAPIKey 表示 DeepSeek API Key。
	SettingKeyDeepSeekAPIKey = "deepseek_api_key"
	// SettingKeyGeminiAPIKey 表示 Gemini API Key。
	SettingKeyGeminiAPIKey = "gemini_api_key"
	// SettingKeyAIExplanationPrompt 覆盖通俗解释的系统提示词。
	SettingKeyAIExplanationPrompt = "ai_explanation_prompt"
	// SettingKeyAIChatPrompt 覆盖问答的系统提示词。
	SettingKeyAIChatPrompt = "ai_chat_prompt"
)
