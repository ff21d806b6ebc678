package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080", cfg.WSBaseURL)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Zero(t, cfg.InitialConversation)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("PORT", "9000")
	t.Setenv("RECONNECT_DELAY_MS", "500")
	t.Setenv("INITIAL_CONVERSATION_ID", "12")

	cfg := Load()

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://api.example.com", cfg.WSBaseURL, "ws base derives from the api scheme")
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, 12, cfg.InitialConversation)
}

func TestExplicitWSBaseWins(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("WS_BASE_URL", "wss://ws.example.com/")

	cfg := Load()
	assert.Equal(t, "wss://ws.example.com", cfg.WSBaseURL)
}

func TestDeriveWSBase(t *testing.T) {
	assert.Equal(t, "ws://host:1", deriveWSBase("http://host:1"))
	assert.Equal(t, "wss://host", deriveWSBase("https://host"))
	assert.Equal(t, "ws://host", deriveWSBase("host"))
}
