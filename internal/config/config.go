package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP Configuration
	HTTPAddr string
	LogLevel string

	// Database Configuration
	DBPath             string
	CacheSweepInterval time.Duration

	// Generation backend (Gradio queue protocol)
	SpaceURL       string
	SpaceAPIKey    string
	FnIndex        int
	JoinArgs       []string
	HTTPTimeout    time.Duration
	AttemptTimeout time.Duration
	MaxAttempts    int

	// Recipe provider (RapidAPI)
	RecipeBaseURL     string
	RapidAPIKey       string
	RapidAPIHost      string
	RecipeHTTPTimeout time.Duration

	// NATS Configuration
	NatsEnabled           bool
	NatsURL               string
	Stream                string
	Subject               string
	Durable               string
	MaxMsgs               int
	MaxAge                time.Duration
	AckWait               time.Duration
	MaxDeliver            int
	Concurrency           int
	ServiceName           string
	MonitoringTopic       string
	BackpressureThreshold int
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Warn("Could not load env file", "file", envFile, "error", err)
		} else {
			slog.Info("Environment loaded", "file", envFile)
		}
	}

	return &Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DBPath:                getEnv("DB_PATH", "data/chef.sqlite"),
		CacheSweepInterval:    getEnvDuration("CACHE_SWEEP_INTERVAL", "5m"),
		SpaceURL:              strings.TrimRight(getEnv("HUGGINGFACE_SPACE_URL", "https://samkelo28-chefgpt3.hf.space"), "/"),
		SpaceAPIKey:           getEnv("HUGGINGFACE_API_KEY", ""),
		FnIndex:               getEnvInt("GRADIO_FN_INDEX", 0),
		JoinArgs:              getEnvList("GRADIO_ARGS", "prompt,model,max_tokens,temperature"),
		HTTPTimeout:           getEnvDuration("GRADIO_HTTP_TIMEOUT", "120s"),
		AttemptTimeout:        getEnvDuration("GRADIO_ATTEMPT_TIMEOUT", "30s"),
		MaxAttempts:           getEnvInt("GRADIO_MAX_ATTEMPTS", 30),
		RecipeBaseURL:         strings.TrimRight(getEnv("RECIPE_BASE_URL", "https://spoonacular-recipe-food-nutrition-v1.p.rapidapi.com"), "/"),
		RapidAPIKey:           getEnv("RAPIDAPI_KEY", ""),
		RapidAPIHost:          getEnv("RAPIDAPI_HOST", "spoonacular-recipe-food-nutrition-v1.p.rapidapi.com"),
		RecipeHTTPTimeout:     getEnvDuration("RECIPE_HTTP_TIMEOUT", "30s"),
		NatsEnabled:           getEnvBool("NATS_ENABLED", true),
		NatsURL:               getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		Stream:                getEnv("STREAM_NAME", "CHEF"),
		Subject:               getEnv("SUBJECT", "chef.chat.request"),
		Durable:               getEnv("QUEUE_DURABLE", "chef-wq"),
		MaxMsgs:               getEnvInt("QUEUE_MAX_MSGS", 2000),
		MaxAge:                getEnvDuration("QUEUE_MAX_AGE", "2m"),
		AckWait:               getEnvDuration("ACK_WAIT", "2m"),
		MaxDeliver:            getEnvInt("MAX_DELIVER", 3),
		Concurrency:           getEnvInt("WORKER_CONCURRENCY", 4),
		ServiceName:           getEnv("SERVICE_NAME", "chef"),
		MonitoringTopic:       getEnv("MONITORING_TOPIC", "monitoring.backpressure"),
		BackpressureThreshold: getEnvInt("BACKPRESSURE_THRESHOLD", 8),
	}, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key, defaultVal string) time.Duration {
	val := getEnv(key, defaultVal)
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	d, _ := time.ParseDuration(defaultVal)
	return d
}

func getEnvList(key, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
