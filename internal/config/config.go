package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string        `mapstructure:"LISTEN_ADDR"`
	Port          string        `mapstructure:"PORT"`
	DatabasePath  string        `mapstructure:"DATABASE_PATH"`
	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	CookieSecure  bool          `mapstructure:"COOKIE_SECURE"`
	GinMode       string        `mapstructure:"GIN_MODE"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	LogFile       string        `mapstructure:"LOG_FILE"`
	SeedReference bool          `mapstructure:"SEED_REFERENCE"`
	Timezone      string        `mapstructure:"TIMEZONE"`
	AIProvider    string        `mapstructure:"AI_PROVIDER"`
	OpenAIKey     string        `mapstructure:"OPENAI_API_KEY"`
	DeepSeekKey   string        `mapstructure:"DEEPSEEK_API_KEY"`
	GeminiKey     string        `mapstructure:"GEMINI_API_KEY"`
	AITimeout     time.Duration `mapstructure:"AI_TIMEOUT"`
	BootstrapUser string        `mapstructure:"BOOTSTRAP_USER"`
	BootstrapPass string        `mapstructure:"BOOTSTRAP_PASSWORD"`
}

var envKeys = []string{
	"LISTEN_ADDR",
	"PORT",
	"DATABASE_PATH",
	"SESSION_SECRET",
	"COOKIE_SECURE",
	"GIN_MODE",
	"LOG_LEVEL",
	"LOG_FILE",
	"SEED_REFERENCE",
	"TIMEZONE",
	"AI_PROVIDER",
	"OPENAI_API_KEY",
	"DEEPSEEK_API_KEY",
	"GEMINI_API_KEY",
	"AI_TIMEOUT",
	"BOOTSTRAP_USER",
	"BOOTSTRAP_PASSWORD",
}

// Load 从环境变量与可选的 .env 文件读取应用配置，并为缺失项提供安全的默认值。
func Load() (AppConfig, error) {
	return LoadFile(".env")
}

// LoadFile 与 Load 相同，但允许指定 env 文件路径；文件不存在时忽略。
func LoadFile(envFile string) (AppConfig, error) {
	v := viper.New()
	if strings.TrimSpace(envFile) != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "medilog.db")
	v.SetDefault("SESSION_SECRET", "medilog-dev-secret")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SEED_REFERENCE", true)
	v.SetDefault("TIMEZONE", "Asia/Seoul")
	v.SetDefault("AI_PROVIDER", "gemini")
	v.SetDefault("AI_TIMEOUT", "60s")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if strings.TrimSpace(envFile) != "" {
		_ = v.ReadInConfig()
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	cfg.BootstrapUser = strings.TrimSpace(cfg.BootstrapUser)
	cfg.BootstrapPass = strings.TrimSpace(cfg.BootstrapPass)

	if cfg.AITimeout <= 0 {
		return AppConfig{}, fmt.Errorf("AI_TIMEOUT must be positive, got %s", cfg.AITimeout)
	}
	if _, err := cfg.Location(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Location 解析 TIMEZONE，服药日期按该时区折叠为日历日。
func (c AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// IsDebug 表示是否以调试模式运行 gin 与日志
func (c AppConfig) IsDebug() bool {
	return strings.EqualFold(strings.TrimSpace(c.GinMode), "debug")
}
