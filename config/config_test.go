package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "chat.events", cfg.AMQPExchange)
	assert.Empty(t, cfg.PostgresDSN)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CHATCORE_POSTGRES_DSN", "postgres://localhost/chat")
	t.Setenv("CHATCORE_AMQP_EXCHANGE", "custom.events")

	cfg := Load()
	assert.Equal(t, "postgres://localhost/chat", cfg.PostgresDSN)
	assert.Equal(t, "custom.events", cfg.AMQPExchange)
}
