package service

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxAILogSnippetRunes = 1024

// logAIExchange 用于输出 AI 请求与响应的关键信息，方便排查模型行为。
func logAIExchange(kind, phase, content string) {
	logger := zap.L().With(zap.String("kind", kind), zap.String("phase", phase))

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		logger.Debug("ai exchange", zap.Bool("empty", true))
		return
	}

	runeCount := utf8.RuneCountInString(trimmed)
	snippet := truncateRunes(trimmed, maxAILogSnippetRunes)
	if runeCount > maxAILogSnippetRunes {
		snippet += "…(truncated)"
	}
	logger.Debug("ai exchange", zap.Int("runes", runeCount), zap.String("content", snippet))
}

func truncateRunes(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}
