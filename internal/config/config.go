package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	IntakeDir string
	OutputDir string

	RecognitionAPIBaseURL   string
	RecognitionAPIKey       string
	RecognitionModel        string
	RecognitionMaxTokens    int
	RecognitionTimeoutMs    int
	RecognitionRateLimitRPS int
	RecognitionMaxAttempts  int
	RecognitionAPIVersion   string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	WatchIntervalSec int
	WatchBatchMax    int
	WatchAutoExport  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "inventory.db")),
		IntakeDir: getEnv("INTAKE_DIR", filepath.Join(cwd, "data", "intake")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		RecognitionAPIBaseURL:   getEnv("RECOGNITION_API_BASE_URL", "https://api.anthropic.com/v1"),
		RecognitionAPIKey:       getEnv("RECOGNITION_API_KEY", ""),
		RecognitionModel:        getEnv("RECOGNITION_MODEL", "claude-sonnet-4-6"),
		RecognitionMaxTokens:    getEnvInt("RECOGNITION_MAX_TOKENS", 3000),
		RecognitionTimeoutMs:    getEnvInt("RECOGNITION_TIMEOUT_MS", 90000),
		RecognitionRateLimitRPS: getEnvInt("RECOGNITION_RATE_LIMIT_RPS", 1),
		RecognitionMaxAttempts:  getEnvInt("RECOGNITION_MAX_ATTEMPTS", 4),
		RecognitionAPIVersion:   getEnv("RECOGNITION_API_VERSION", "2023-06-01"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),
		WatchBatchMax:    getEnvInt("WATCH_BATCH_MAX", 10),
		WatchAutoExport:  getEnvBool("WATCH_AUTO_EXPORT", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
