package pricing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/pricing"
)

func TestEmbedded_IsAValidSnapshot(t *testing.T) {
	catalog := domain.NewPricingCatalog(pricing.Embedded())

	snapshot, err := catalog.Load()

	require.NoError(t, err)
	require.Equal(t, domain.SupportedPricingSchema, snapshot.SchemaVersion)
	require.NotEmpty(t, snapshot.PricingID)
	require.NotEmpty(t, snapshot.Models)
}

func TestEmbedded_PricesSelectableModels(t *testing.T) {
	catalog := domain.NewPricingCatalog(pricing.Embedded())

	tests := []struct {
		model  string
		input  string
		output string
	}{
		{model: "gpt-4o", input: "2.50", output: "10.00"},
		{model: "gpt-4o-mini", input: "0.15", output: "0.60"},
		{model: "gpt-5", input: "1.25", output: "10.00"},
		{model: "codex-mini-latest", input: "1.50", output: "6.00"},
		{model: "gpt-4o-2024-08-06", input: "2.50", output: "10.00"},
		{model: "gpt-4o-mini-2024-07-18", input: "0.15", output: "0.60"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			entry, err := catalog.Resolve(tt.model)

			require.NoError(t, err)
			require.True(t, decimal.RequireFromString(tt.input).Equal(entry.InputPer1M))
			require.True(t, decimal.RequireFromString(tt.output).Equal(entry.OutputPer1M))
		})
	}
}

func TestFromFile(t *testing.T) {
	t.Run("reads the file", func(t *testing.T) {
		data, err := pricing.Embedded()()
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "pricing.json")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		snapshot, err := domain.NewPricingCatalog(pricing.FromFile(path)).Load()

		require.NoError(t, err)
		require.NotEmpty(t, snapshot.Models)
	})

	t.Run("missing file is a missing resource", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.json")

		_, err := domain.NewPricingCatalog(pricing.FromFile(path)).Load()

		require.ErrorIs(t, err, domain.ErrResourceMissing)
	})

	t.Run("corrupt file is a decode failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pricing.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		_, err := domain.NewPricingCatalog(pricing.FromFile(path)).Load()

		require.ErrorIs(t, err, domain.ErrDecodeFailed)
	})
}

func TestNewSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	_, err := pricing.NewSource(&pricing.Config{Path: path})()
	require.ErrorIs(t, err, domain.ErrResourceMissing)

	data, err := pricing.NewSource(&pricing.Config{})()
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
