package log

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "debug", zerolog.DebugLevel},
		{"development", "WARN", zerolog.WarnLevel},
		{"test", "error", zerolog.ErrorLevel},
		{"production", "verbose", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, levelFor(tc.env, tc.level), "%s/%s", tc.env, tc.level)
	}
}
