package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Activities API
	APIBaseURL      string        // 接続先APIのベースURL（必須）
	RequestTimeout  time.Duration // 外部APIリクエストのタイムアウト
	AllowPrivateAPI bool          // ローカル開発用: プライベートIPへの接続ガードを無効化する

	// Notification
	NoticeTTL      time.Duration // メイン通知面の表示時間
	LoginNoticeTTL time.Duration // ログイン面の表示時間

	// Local UI gateway
	ServerPort         string
	MutationRatePerMin int // 変異ルートのレート制限（req/min/クライアント）
	MutationBurst      int
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = os.Getenv("ACTIVITIES_API_URL")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "ACTIVITIES_API_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RequestTimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.AllowPrivateAPI = getEnvBool("ALLOW_PRIVATE_API", false)
	cfg.NoticeTTL = getEnvDuration("NOTICE_TTL", 5*time.Second)
	cfg.LoginNoticeTTL = getEnvDuration("LOGIN_NOTICE_TTL", 3*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MutationRatePerMin = getEnvInt("RATE_LIMIT_MUTATIONS", 30)
	cfg.MutationBurst = getEnvInt("RATE_LIMIT_MUTATION_BURST", 10)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
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
