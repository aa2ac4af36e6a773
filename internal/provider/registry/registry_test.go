package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/provider/echo"
	"github.com/davidbz/draftlock/internal/provider/registry"
)

// mockBackend is a mock implementation of registry.Backend for testing.
type mockBackend struct {
	name string
}

func (m *mockBackend) CountInputTokens(_ context.Context, _ domain.EstimationRequest) (int, error) {
	return 0, nil
}

func (m *mockBackend) Transform(_ context.Context, _ domain.EstimationRequest) (*domain.TransformResult, error) {
	return &domain.TransformResult{}, nil
}

func (m *mockBackend) Name() string {
	return m.name
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should register backend successfully", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(ctx, &mockBackend{name: "test-backend"})

		require.NoError(t, err)
		require.Equal(t, []string{"test-backend"}, reg.List(ctx))
	})

	t.Run("should reject nil backend", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(ctx, nil)

		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot be nil")
	})

	t.Run("should reject empty name", func(t *testing.T) {
		reg := registry.NewRegistry()

		err := reg.Register(ctx, &mockBackend{name: ""})

		require.Error(t, err)
		require.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("should reject duplicate name", func(t *testing.T) {
		reg := registry.NewRegistry()
		require.NoError(t, reg.Register(ctx, &mockBackend{name: "dup"}))

		err := reg.Register(ctx, &mockBackend{name: "dup"})

		require.Error(t, err)
		require.Contains(t, err.Error(), "already registered")
	})
}

func TestRegistry_Get(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(ctx, echo.NewProvider(nil)))

	t.Run("existing backend", func(t *testing.T) {
		backend, err := reg.Get(ctx, "echo")

		require.NoError(t, err)
		require.Equal(t, "echo", backend.Name())
	})

	t.Run("unknown backend", func(t *testing.T) {
		backend, err := reg.Get(ctx, "missing")

		require.Error(t, err)
		require.Nil(t, backend)
		require.Contains(t, err.Error(), "not found")
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := reg.Get(ctx, "")

		require.Error(t, err)
	})
}

func TestRegistry_ListSorted(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(ctx, &mockBackend{name: name}))
	}

	require.Equal(t, []string{"alpha", "mid", "zeta"}, reg.List(ctx))
}
