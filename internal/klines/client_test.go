package klines

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// klineRow renders one binance-style kline array row. Times in ms.
func klineRow(openMs, closeMs int64, open, high, low, closePrice, volume float64) string {
	return fmt.Sprintf(`[%d,"%f","%f","%f","%f","%f",%d,"0",0,"0","0","0"]`,
		openMs, open, high, low, closePrice, volume, closeMs)
}

func TestClient_GetKlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s,%s]",
			klineRow(1000_000, 4599_000, 100, 105, 99, 104, 12.5),
			klineRow(4600_000, 8199_000, 104, 106, 103, 105, 8.0),
		)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	klines, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 1000, 8199)
	require.NoError(t, err)
	require.Len(t, klines, 2)

	assert.Equal(t, "BTCUSDT", klines[0].Symbol)
	assert.Equal(t, int64(1000), klines[0].OpenTime)
	assert.Equal(t, int64(4599), klines[0].CloseTime)
	assert.InDelta(t, 104.0, klines[0].Close, 1e-9)
	assert.InDelta(t, 8.0, klines[1].Volume, 1e-9)
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "[%s]", klineRow(1000_000, 4599_000, 100, 105, 99, 104, 1.0))
	}))
	defer server.Close()

	client := NewClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
	)
	klines, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 1000, 4599)
	require.NoError(t, err)
	assert.Len(t, klines, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(2*time.Millisecond),
	)
	_, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 1000, 2000)
	assert.True(t, errors.Is(err, ErrExternalService))
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 1000, 2000)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExternalService))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Series(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		fmt.Fprintf(w, "[%s]", klineRow(1000_000, 1899_000, 100, 105, 99, 104, 1.0))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithInterval("15m"))
	records, err := client.Series(context.Background(), "BTCUSDT", 1000, 1899)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1899), records[0].Timestamp)
	assert.InDelta(t, 104.0, records[0].Price, 1e-9)
	assert.Equal(t, "BTCUSDT", records[0].Symbol)
}

func TestClient_NumericPricePayload(t *testing.T) {
	// Some proxies serve numbers instead of quoted strings
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[1000000,100.5,105,99,104.25,1.5,1899000,"0",0,"0","0","0"]]`)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	klines, err := client.GetKlines(context.Background(), "BTCUSDT", "1h", 1000, 1899)
	require.NoError(t, err)
	require.Len(t, klines, 1)
	assert.InDelta(t, 104.25, klines[0].Close, 1e-9)
}
