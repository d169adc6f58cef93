package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	LogLevel    string
	LogFormat   string
	LogFile     string
	MetricsAddr string

	// LLM
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	ChatModel         string
	QuestionModel     string
	Temperature       float32
	LLMTimeout        time.Duration
	LLMMaxAttempts    int
	LLMRetryBaseDelay time.Duration

	// Postgres
	DatabaseURL string
	DBName      string
	DBUser      string
	DBPassword  string
	DBHost      string
	DBPort      string

	// Chunk-to-questions pipeline
	ChunkTable             string
	QuestionTable          string
	QuestionCount          int
	QuestionStyle          string
	QuestionsNotifyChannel string

	// Dialogue generator
	ConversationLogPath string
	MaxTurns            int
	PersistTranscripts  bool
}

// Load reads configuration from environment variables
func Load() *Config {
	chatModel := getEnv("OPENAI_MODEL_CHAT", "gpt-4o")
	return &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		LogFile:     getEnv("LOG_FILE", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		ChatModel:         chatModel,
		QuestionModel:     getEnv("OPENAI_MODEL_QUESTIONS", chatModel),
		Temperature:       getEnvAsFloat32("OPENAI_TEMPERATURE", 0.7),
		LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		LLMMaxAttempts:    getEnvAsInt("LLM_MAX_ATTEMPTS", 1),
		LLMRetryBaseDelay: getEnvAsDuration("LLM_RETRY_BASE_DELAY", time.Second),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBName:      getEnv("DB_NAME", "postgres"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASS", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),

		ChunkTable:             getEnv("CHUNK_TABLE", "chunks"),
		QuestionTable:          getEnv("QUESTION_TABLE", "generated_questions"),
		QuestionCount:          getEnvAsInt("QUESTION_COUNT", 5),
		QuestionStyle:          strings.ToLower(strings.TrimSpace(getEnv("QUESTION_STYLE", "advanced"))),
		QuestionsNotifyChannel: getEnv("QUESTIONS_NOTIFY_CHANNEL", ""),

		ConversationLogPath: getEnv("COT_LOG_PATH", "conversation_log.txt"),
		MaxTurns:            getEnvAsInt("COT_MAX_TURNS", 8),
		PersistTranscripts:  getEnvAsBool("COT_PERSIST_DB", false),
	}
}

// PostgresDSN returns DATABASE_URL when set, otherwise a postgres:// URL
// assembled from the DB_* variables.
func (c *Config) PostgresDSN() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else {
		u.User = url.User(c.DBUser)
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
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
