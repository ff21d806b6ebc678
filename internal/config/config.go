package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the client daemon needs from the environment.
type Config struct {
	// APIBaseURL is the marketplace REST API root, e.g. http://localhost:8080.
	APIBaseURL string
	// WSBaseURL is the websocket root. When empty it is derived from
	// APIBaseURL by swapping the scheme (http -> ws, https -> wss).
	WSBaseURL string
	// Token is the bearer credential supplied by the auth collaborator.
	Token string
	// ListenAddr is where the local HTTP facade listens.
	ListenAddr string
	// ReconnectDelay is the fixed wait before the single reconnect attempt
	// after an abnormal websocket closure.
	ReconnectDelay time.Duration
	// InitialConversation selects the conversation opened on startup.
	// Zero means "most recent".
	InitialConversation int

	AMQPURL      string
	Environment  string
	OTLPEndpoint string
}

// Load reads the environment, honoring a .env file when present.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("skipping .env: %v", err)
	}

	api := getEnv("API_BASE_URL", "http://localhost:8080")
	cfg := Config{
		APIBaseURL:          strings.TrimRight(api, "/"),
		WSBaseURL:           strings.TrimRight(getEnv("WS_BASE_URL", ""), "/"),
		Token:               getEnv("AUTH_TOKEN", ""),
		ListenAddr:          ":" + getEnv("PORT", "8090"),
		ReconnectDelay:      getDurationMS("RECONNECT_DELAY_MS", 2000),
		InitialConversation: getInt("INITIAL_CONVERSATION_ID", 0),
		AMQPURL:             getEnv("RABBITMQ_URL", ""),
		Environment:         getEnv("ENVIRONMENT", "development"),
		OTLPEndpoint:        getEnv("OTLP_ENDPOINT", ""),
	}
	if cfg.WSBaseURL == "" {
		cfg.WSBaseURL = deriveWSBase(cfg.APIBaseURL)
	}
	return cfg
}

func deriveWSBase(apiBase string) string {
	switch {
	case strings.HasPrefix(apiBase, "https://"):
		return "wss://" + strings.TrimPrefix(apiBase, "https://")
	case strings.HasPrefix(apiBase, "http://"):
		return "ws://" + strings.TrimPrefix(apiBase, "http://")
	default:
		return "ws://" + apiBase
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, val, fallback)
		return fallback
	}
	return parsed
}

func getDurationMS(key string, fallbackMS int) time.Duration {
	return time.Duration(getInt(key, fallbackMS)) * time.Millisecond
}
