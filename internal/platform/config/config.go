package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	RedisAddr   string
	OperatorID  string
	EventTopic  string
}

func Load() (Config, error) {
	// A local .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "modelmarket"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	topic := os.Getenv("EVENT_TOPIC")
	if topic == "" {
		topic = "marketplace.model-events"
	}

	operator := strings.TrimSpace(os.Getenv("OPERATOR_ID"))
	if operator == "" {
		return Config{}, errors.New("OPERATOR_ID is required")
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RedisAddr:   strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		OperatorID:  operator,
		EventTopic:  topic,
	}, nil
}
