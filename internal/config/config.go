package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// defaultAPIBaseURL はAPI_BASE_URL未設定時のローカルデフォルト。
const defaultAPIBaseURL = "http://localhost:8080/api/v1"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL     string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// OAuth
	// プラットフォーム別クライアントIDはモバイルクライアントとの設定互換のために
	// そのまま受け取るが、CLIで実際に使用されるのはGoogleClientID。
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleIOSClientID     string
	GoogleAndroidClientID string
	OAuthRedirectPort     int

	// Session
	CredentialsFile string

	// Metrics
	MetricsAddr string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数が優先）。
// APIベースURLは未設定の場合ローカルデフォルトにフォールバックする。
func Load() (*Config, error) {
	// .envが無いのは正常系
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.APIBaseURL = getEnvString("APPRAISE_API_BASE_URL", defaultAPIBaseURL)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	cfg.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", 5)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleIOSClientID = os.Getenv("GOOGLE_IOS_CLIENT_ID")
	cfg.GoogleAndroidClientID = os.Getenv("GOOGLE_ANDROID_CLIENT_ID")
	cfg.OAuthRedirectPort = getEnvInt("OAUTH_REDIRECT_PORT", 8910)

	cfg.CredentialsFile = getEnvString("CREDENTIALS_FILE", defaultCredentialsFile())
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}

// defaultCredentialsFile は認証情報ファイルのデフォルトパスを返す。
// ホームディレクトリが特定できない場合はカレントディレクトリ配下を使用する。
func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".appraise", "credentials.json")
	}
	return filepath.Join(home, ".config", "appraise", "credentials.json")
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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
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
