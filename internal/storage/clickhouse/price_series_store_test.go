package clickhouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

func TestPriceSeriesStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	records := []*domain.PriceRecord{
		{Timestamp: 3000, Symbol: "BTCUSDT", Price: 101.0},
		{Timestamp: 1000, Symbol: "BTCUSDT", Price: 100.0},
		{Timestamp: 2000, Symbol: "BTCUSDT", Price: 99.5},
		{Timestamp: 1000, Symbol: "ETHUSDT", Price: 50.0},
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1000), got[0].Timestamp)
	assert.Equal(t, int64(2000), got[1].Timestamp)
	assert.Equal(t, int64(3000), got[2].Timestamp)
	assert.InDelta(t, 99.5, got[1].Price, 1e-9)
}

func TestPriceSeriesStore_DuplicateDetection(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	first := []*domain.PriceRecord{
		{Timestamp: 1000, Symbol: "BTCUSDT", Price: 100.0},
	}
	require.NoError(t, store.InsertBulk(ctx, first))

	// Duplicate against stored rows
	err := store.InsertBulk(ctx, []*domain.PriceRecord{
		{Timestamp: 1000, Symbol: "BTCUSDT", Price: 101.0},
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// Duplicate within the batch
	err = store.InsertBulk(ctx, []*domain.PriceRecord{
		{Timestamp: 2000, Symbol: "BTCUSDT", Price: 101.0},
		{Timestamp: 2000, Symbol: "BTCUSDT", Price: 102.0},
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestPriceSeriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	records := []*domain.PriceRecord{
		{Timestamp: 1000, Symbol: "BTCUSDT", Price: 100.0},
		{Timestamp: 2000, Symbol: "BTCUSDT", Price: 101.0},
		{Timestamp: 3000, Symbol: "BTCUSDT", Price: 102.0},
		{Timestamp: 4000, Symbol: "BTCUSDT", Price: 103.0},
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetByTimeRange(ctx, "BTCUSDT", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].Timestamp)
	assert.Equal(t, int64(3000), got[1].Timestamp)
}

func TestPriceSeriesStore_Symbols(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	records := []*domain.PriceRecord{
		{Timestamp: 1000, Symbol: "ETHUSDT", Price: 50.0},
		{Timestamp: 1000, Symbol: "BTCUSDT", Price: 100.0},
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	symbols, err := store.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)
}
