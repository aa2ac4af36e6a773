package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidbz/draftlock/internal/observability"
)

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { observability.SetLogger(zap.NewNop()) })

	t.Run("rejects unknown level", func(t *testing.T) {
		logger, err := observability.InitLogger(&observability.Config{Level: "loud"})

		require.Error(t, err)
		require.Nil(t, logger)
	})

	t.Run("tees entries into the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "draftlock.log")

		logger, err := observability.InitLogger(&observability.Config{
			Level:     "info",
			Format:    "json",
			File:      path,
			MaxSizeMB: 1,
		})
		require.NoError(t, err)

		ctx := observability.WithRequestID(context.Background(), "req-42")
		observability.FromContext(ctx).Info("usage recorded", observability.String("model", "gpt-4o"))
		observability.FromContext(ctx).Debug("below threshold")
		_ = logger.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(data), `"msg":"usage recorded"`)
		require.Contains(t, string(data), `"request_id":"req-42"`)
		require.NotContains(t, string(data), "below threshold")
	})
}
