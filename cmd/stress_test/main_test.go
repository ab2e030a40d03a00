package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-service/internal/config"
	"github.com/rl1809/order-service/internal/platform/logger"
)

func TestRun_InMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Database.DSN = ":memory:"

	require.NoError(t, run(cfg, logger.NewNop(), 10))
}

func TestRun_ReturnsStartupErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "oracle"

	err := run(cfg, logger.NewNop(), 1)
	assert.Error(t, err)
}
