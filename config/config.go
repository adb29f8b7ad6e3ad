// Package config loads the optional backend settings from the
// environment, with a .env overlay for development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config collects the settings of every optional backend. Empty values
// mean the backend is not wired: no Postgres DSN means an embedded
// store, no AMQP URL means the noop publisher, and so on.
type Config struct {
	PostgresDSN  string
	PebblePath   string
	RedisAddr    string
	AMQPURL      string
	AMQPExchange string
	BlobRoot     string
}

// Load reads the configuration. A .env file in the working directory is
// applied first; real environment variables win over it.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		PostgresDSN:  getEnv("CHATCORE_POSTGRES_DSN", ""),
		PebblePath:   getEnv("CHATCORE_PEBBLE_PATH", ""),
		RedisAddr:    getEnv("CHATCORE_REDIS_ADDR", ""),
		AMQPURL:      getEnv("CHATCORE_AMQP_URL", ""),
		AMQPExchange: getEnv("CHATCORE_AMQP_EXCHANGE", "chat.events"),
		BlobRoot:     getEnv("CHATCORE_BLOB_ROOT", ""),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
