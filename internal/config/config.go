package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// LLM provider selection and cost policy
	LLMProvider        string
	AnthropicAPIKey    string
	AnthropicModel     string
	BedrockModelID     string
	GeminiAPIKey       string
	GeminiModel        string
	LLMMaxReplyTokens  int
	LLMTemperature     float64
	LLMTimeout         time.Duration
	MaxCostPerCallUSD  float64
	InputCostPerMTok   float64
	OutputCostPerMTok  float64
	PromptWarnChars    int
	PromptMaxChars     int
	MessageHistorySize int
	TranscriptLimit    int

	AWSRegion               string
	AWSAccessKeyID          string
	AWSSecretAccessKey      string
	AWSEndpointOverride     string
	CostLedgerTable         string
	TranscriptArchiveBucket string
	ConversationQueueURL    string

	// WhatsApp (whatsmeow) device store
	WhatsAppEnabled   bool
	WhatsAppDBPath    string
	WhatsAppLogLevel  string
	WhatsAppOrgID     string
	WhatsAppQRPNGPath string

	// Google Calendar
	GoogleCredentialsJSON string
	GoogleTokenJSON       string
	DefaultCalendarID     string

	// Owner notification e-mail
	EmailProvider    string
	SendGridAPIKey   string
	ResendAPIKey     string
	EmailFromAddress string
	EmailFromName    string

	AdminJWTSecret       string
	FacebookWebhookToken string
	GHLWebhookToken      string
	ManualWebhookToken   string
	WhatsAppWebhookToken string

	ReminderSweepBatch  int
	FollowUpAfter       time.Duration
	FollowUpMaxAttempts int
	FollowUpBatch       int
	DefaultTimezone     string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMMaxReplyTokens:  getEnvAsInt("LLM_MAX_REPLY_TOKENS", 300),
		LLMTemperature:     getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:         getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		MaxCostPerCallUSD:  getEnvAsFloat("MAX_COST_PER_CALL_USD", 0.01),
		InputCostPerMTok:   getEnvAsFloat("INPUT_COST_PER_MTOK", 0.80),
		OutputCostPerMTok:  getEnvAsFloat("OUTPUT_COST_PER_MTOK", 4.00),
		PromptWarnChars:    getEnvAsInt("PROMPT_WARN_CHARS", 6000),
		PromptMaxChars:     getEnvAsInt("PROMPT_MAX_CHARS", 8000),
		MessageHistorySize: getEnvAsInt("MESSAGE_HISTORY_SIZE", 10),
		TranscriptLimit:    getEnvAsInt("TRANSCRIPT_LIMIT", 20),

		AWSRegion:               getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:     getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		CostLedgerTable:         getEnv("COST_LEDGER_TABLE", ""),
		TranscriptArchiveBucket: getEnv("TRANSCRIPT_ARCHIVE_BUCKET", ""),
		ConversationQueueURL:    getEnv("CONVERSATION_QUEUE_URL", ""),

		WhatsAppEnabled:   getEnvAsBool("WHATSAPP_ENABLED", false),
		WhatsAppDBPath:    getEnv("WHATSAPP_DB_PATH", "whatsapp.db"),
		WhatsAppLogLevel:  getEnv("WHATSAPP_LOG_LEVEL", "INFO"),
		WhatsAppOrgID:     getEnv("WHATSAPP_ORG_ID", ""),
		WhatsAppQRPNGPath: getEnv("WHATSAPP_QR_PNG_PATH", "whatsapp_qr.png"),

		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleTokenJSON:       getEnv("GOOGLE_TOKEN_JSON", ""),
		DefaultCalendarID:     getEnv("DEFAULT_CALENDAR_ID", "primary"),

		EmailProvider:    strings.ToLower(getEnv("EMAIL_PROVIDER", "stub")),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		ResendAPIKey:     getEnv("RESEND_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Lead Assistant"),

		AdminJWTSecret:       getEnv("ADMIN_JWT_SECRET", ""),
		FacebookWebhookToken: getEnv("FACEBOOK_WEBHOOK_TOKEN", ""),
		GHLWebhookToken:      getEnv("GHL_WEBHOOK_TOKEN", ""),
		ManualWebhookToken:   getEnv("MANUAL_WEBHOOK_TOKEN", ""),
		WhatsAppWebhookToken: getEnv("WHATSAPP_WEBHOOK_TOKEN", ""),

		ReminderSweepBatch:  getEnvAsInt("REMINDER_SWEEP_BATCH", 100),
		FollowUpAfter:       getEnvAsDuration("FOLLOW_UP_AFTER", 24*time.Hour),
		FollowUpMaxAttempts: getEnvAsInt("FOLLOW_UP_MAX_ATTEMPTS", 2),
		FollowUpBatch:       getEnvAsInt("FOLLOW_UP_BATCH", 50),
		DefaultTimezone:     getEnv("DEFAULT_TIMEZONE", "Europe/London"),
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding values already present in the environment. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// WebhookTokens maps lead source names to their static webhook secrets.
func (c *Config) WebhookTokens() map[string]string {
	return map[string]string{
		"facebook": c.FacebookWebhookToken,
		"ghl":      c.GHLWebhookToken,
		"manual":   c.ManualWebhookToken,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
