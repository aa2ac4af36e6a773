// Package pricing provides the pricing snapshot resources read by the catalog.
package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/davidbz/draftlock/internal/domain"
)

// ResourceName is the name of the bundled snapshot.
const ResourceName = "snapshot_v1.json"

//go:embed snapshot_v1.json
var embeddedSnapshot []byte

// Config selects the pricing resource.
type Config struct {
	// Path overrides the bundled snapshot when set.
	Path string `env:"PRICING_PATH"`
}

// Embedded returns the snapshot bundled with the binary.
func Embedded() domain.PricingSource {
	return func() ([]byte, error) {
		if len(embeddedSnapshot) == 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrResourceMissing, ResourceName)
		}
		return embeddedSnapshot, nil
	}
}

// FromFile returns a source reading the snapshot from disk on every call.
func FromFile(path string) domain.PricingSource {
	return func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", domain.ErrResourceMissing, path)
			}
			return nil, fmt.Errorf("failed to read pricing snapshot: %w", err)
		}
		return data, nil
	}
}

// NewSource picks the file override or the bundled snapshot.
func NewSource(cfg *Config) domain.PricingSource {
	if cfg != nil && cfg.Path != "" {
		return FromFile(cfg.Path)
	}
	return Embedded()
}

// NewCatalog builds the catalog for the configured source (DI constructor).
func NewCatalog(cfg *Config) *domain.PricingCatalog {
	return domain.NewPricingCatalog(NewSource(cfg))
}
