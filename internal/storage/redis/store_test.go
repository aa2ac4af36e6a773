package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/draftlock/internal/domain"
	"github.com/davidbz/draftlock/internal/storage/redis"
)

func unreachableStore(t *testing.T) *redis.Store {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewStore(client, "draftlock:test")
}

func TestStore_UnreachableServer(t *testing.T) {
	ctx := context.Background()
	store := unreachableStore(t)

	t.Run("load is an error, not a missing ledger", func(t *testing.T) {
		doc, err := store.Load(ctx)

		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrLedgerNotFound)
		require.NotErrorIs(t, err, domain.ErrLedgerCorrupt)
		require.Nil(t, doc)
	})

	t.Run("save reports the failure", func(t *testing.T) {
		err := store.Save(ctx, domain.NewUsageLedger().Document())

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to save ledger")
	})
}

func TestStore_UnreachableServerFallsBackToEmptyLedger(t *testing.T) {
	ledger := domain.LoadLedger(context.Background(), unreachableStore(t))

	require.Equal(t, 0, ledger.Totals().Entries)
}

func TestNewClient(t *testing.T) {
	client := redis.NewClient(&redis.Config{Addr: "localhost:6380", DB: 2, MaxRetries: 1})
	defer client.Close()

	opts := client.Options()
	require.Equal(t, "localhost:6380", opts.Addr)
	require.Equal(t, 2, opts.DB)
	require.Equal(t, 1, opts.MaxRetries)
}
