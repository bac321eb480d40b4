package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"temanagement/api/internal/config"
)

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redis ping")
}
