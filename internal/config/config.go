package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string
	CookieSecure  bool
	// OpenAI, used for the optional topic classifier and voice input
	OpenAIAPIKey       string
	Model              string
	STTModel           string
	LLMFallbackEnabled bool
	// Rule table override (YAML); empty means built-in rules
	RulesFile string
	// Storage
	DatabaseURL   string
	MigrationsDir string
	RedisURL      string
	TermsFile     string
	MaxTranscript int
	TranscriptTTL time.Duration
}

// Load reads configuration from the environment, loading .env first if present.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the current environment only.
func FromEnv() Config {
	return Config{
		Port:               getEnvDefault("PORT", "8080"),
		AllowedOrigin:      getEnvDefault("ALLOWED_ORIGIN", "*"),
		LogLevel:           getEnvDefault("LOG_LEVEL", "info"),
		CookieSecure:       getEnvBoolDefault("COOKIE_SECURE", false),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:              getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		STTModel:           getEnvDefault("OPENAI_STT_MODEL", "whisper-1"),
		LLMFallbackEnabled: getEnvBoolDefault("LLM_FALLBACK_ENABLED", false),
		RulesFile:          os.Getenv("RULES_FILE"),
		DatabaseURL:        os.Getenv("DB_URL"),
		MigrationsDir:      getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		RedisURL:           os.Getenv("REDIS_URL"),
		TermsFile:          os.Getenv("TERMS_FILE"),
		MaxTranscript:      getEnvIntDefault("MAX_TRANSCRIPT", 40),
		TranscriptTTL:      getEnvDurationDefault("TRANSCRIPT_TTL", 30*time.Minute),
	}
}

// LLMFallback reports whether the classifier should be consulted.
func (c Config) LLMFallback() bool {
	return c.LLMFallbackEnabled && c.OpenAIAPIKey != ""
}

func getEnvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
