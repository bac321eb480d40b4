package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTTL(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"15m", 15 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"3600", time.Hour},
		{" 2d ", 48 * time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseTTL(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseTTLRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "d", "xd", "tomorrow", "0", "-5m", "0d"} {
		_, err := ParseTTL(in)
		require.Error(t, err, in)
	}
}

func TestLoadUsesConventionalEnvNames(t *testing.T) {
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("JWT_EXPIRES_IN", "15m")
	t.Setenv("JWT_REFRESH_EXPIRES_IN", "7d")
	t.Setenv("TEMS_LOCKOUT_THRESHOLD", "3")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "access-secret", cfg.Security.JWTAccessSecret)
	require.Equal(t, "refresh-secret", cfg.Security.JWTRefreshSecret)
	require.Equal(t, 15*time.Minute, cfg.Security.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Security.RefreshTTL)
	require.Equal(t, 10, cfg.Security.BcryptCost)
	require.Equal(t, 3, cfg.Lockout.Threshold)
	require.Equal(t, 30*time.Minute, cfg.Lockout.Duration)
	require.Equal(t, "/api", cfg.APIPrefix)
}

func TestLoadRequiresDistinctSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")

	_, err := Load()
	require.ErrorContains(t, err, "must differ")
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}
