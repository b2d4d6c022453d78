package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はAPIサーバーの設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Record Store
	DatabaseURL         string
	StoreConnectTimeout time.Duration
	AutoMigrate         bool

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// ClientConfig はuiコマンド（APIクライアント側）の設定を保持する。
type ClientConfig struct {
	APIBaseURL string
	// 並び替えと大文字小文字判定に使うBCP 47言語タグ
	Locale string
	// 0はタイムアウトなし
	Timeout  time.Duration
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.StoreConnectTimeout = getEnvDuration("STORE_CONNECT_TIMEOUT", 30*time.Second)
	cfg.AutoMigrate = getEnvBool("AUTO_MIGRATE", true)
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// LoadClient は環境変数からClientConfigを読み込む。必須項目はない。
func LoadClient() *ClientConfig {
	return &ClientConfig{
		APIBaseURL: getEnvString("API_BASE_URL", "http://localhost:5000"),
		Locale:     getEnvString("UI_LOCALE", "en"),
		Timeout:    getEnvDuration("CLIENT_TIMEOUT", 0),
		LogLevel:   getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
