// Package redis persists the usage ledger in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/observability"
)

// Config contains Redis connection settings.
type Config struct {
	Addr       string `env:"REDIS_ADDR"        envDefault:"localhost:6379"`
	Password   string `env:"REDIS_PASSWORD"`
	DB         int    `env:"REDIS_DB"          envDefault:"0"`
	Key        string `env:"REDIS_LEDGER_KEY"  envDefault:"draftlock:usage_ledger"`
	MaxRetries int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
}

// NewClient creates a client from the configuration.
func NewClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
	})
}

// Store implements domain.LedgerStore. The document lives under one string
// key; a companion hash keeps the totals readable from redis-cli.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore creates a Redis ledger store.
func NewStore(client *redis.Client, key string) *Store {
	return &Store{
		client: client,
		key:    key,
	}
}

func (s *Store) summaryKey() string {
	return s.key + ":summary"
}

// Load reads the ledger document.
func (s *Store) Load(ctx context.Context) (*domain.LedgerDocument, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLedgerNotFound, s.key)
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var doc domain.LedgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLedgerCorrupt, err)
	}

	return &doc, nil
}

// Save replaces the ledger document and its summary in one transaction.
func (s *Store) Save(ctx context.Context, doc *domain.LedgerDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	logger := observability.FromContext(ctx)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key, data, 0)
	pipe.HSet(ctx, s.summaryKey(),
		"entries", len(doc.Entries),
		"total_input_tokens", doc.TotalInputTokens,
		"total_output_tokens", doc.TotalOutputTokens,
		"total_cost", doc.TotalCost.String(),
		"currency", doc.Currency,
		"updated_at", time.Now().Unix(),
	)

	if _, execErr := pipe.Exec(ctx); execErr != nil {
		logger.Error("ledger save failed", observability.Error(execErr))
		return fmt.Errorf("failed to save ledger: %w", execErr)
	}

	logger.Debug("ledger saved", observability.Int("entries", len(doc.Entries)))
	return nil
}
