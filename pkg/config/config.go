package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Client  ClientConfig
	Backend BackendConfig
	Live    LiveConfig
	Auth    AuthConfig
}

// ClientConfig holds general client configuration
type ClientConfig struct {
	Environment string
}

// BackendConfig holds the REST backend configuration
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LiveConfig holds the live channel configuration
type LiveConfig struct {
	URL               string
	WriteWait         time.Duration
	PongWait          time.Duration
	MaxMessageSize    int64
	ReconnectMaxWait  time.Duration
	ReconnectMaxTries int
}

// AuthConfig holds the caller's credentials
type AuthConfig struct {
	AccessToken string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Client: ClientConfig{
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8080/api"),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", "15s"),
		},
		Live: LiveConfig{
			URL:               getEnv("LIVE_CHANNEL_URL", "ws://localhost:8080/ws"),
			WriteWait:         getEnvAsDuration("LIVE_WRITE_WAIT", "10s"),
			PongWait:          getEnvAsDuration("LIVE_PONG_WAIT", "60s"),
			MaxMessageSize:    int64(getEnvAsInt("LIVE_MAX_MESSAGE_SIZE", 4096)),
			ReconnectMaxWait:  getEnvAsDuration("LIVE_RECONNECT_MAX_WAIT", "30s"),
			ReconnectMaxTries: getEnvAsInt("LIVE_RECONNECT_MAX_TRIES", 10),
		},
		Auth: AuthConfig{
			AccessToken: getEnv("ACCESS_TOKEN", ""),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.Live.URL == "" {
		return fmt.Errorf("LIVE_CHANNEL_URL is required")
	}
	if c.Auth.AccessToken == "" {
		return fmt.Errorf("ACCESS_TOKEN is required")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
