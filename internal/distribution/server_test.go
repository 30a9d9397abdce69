package distribution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage/memory"
)

func testResult(symbol string, totalProfit float64) *domain.OptimizationResult {
	return &domain.OptimizationResult{
		Symbol: symbol,
		Config: domain.StrategyConfig{
			Symbol:     symbol,
			Strategy:   domain.StrategyBuyDropSellRecovery,
			BuyDropPct: 0.05,
		},
		Scoring:     "greed",
		TotalProfit: totalProfit,
		CleanWins:   2,
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	server := NewServer(memory.NewTunedConfigStore(), nil)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Close()
		ts.Close()
	})
	return server, ts
}

func TestServer_GetConfigs(t *testing.T) {
	server, ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, server.Publish(ctx, testResult("BTCUSDT", 10.0)))
	require.NoError(t, server.Publish(ctx, testResult("ETHUSDT", 5.0)))

	resp, err := http.Get(ts.URL + "/configs")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var results []*domain.OptimizationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 2)
	assert.Equal(t, "BTCUSDT", results[0].Symbol)
	assert.Equal(t, "ETHUSDT", results[1].Symbol)
}

func TestServer_GetConfigBySymbol(t *testing.T) {
	server, ts := newTestServer(t)
	require.NoError(t, server.Publish(context.Background(), testResult("BTCUSDT", 10.0)))

	resp, err := http.Get(ts.URL + "/configs/BTCUSDT")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result domain.OptimizationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "BTCUSDT", result.Symbol)
	assert.InDelta(t, 10.0, result.TotalProfit, 1e-9)
	assert.InDelta(t, 0.05, result.Config.BuyDropPct, 1e-9)
}

func TestServer_NotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/configs/UNKNOWN")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ChecksumChangesWithContent(t *testing.T) {
	server, ts := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, server.Publish(ctx, testResult("BTCUSDT", 10.0)))

	first, err := http.Get(ts.URL + "/configs")
	require.NoError(t, err)
	first.Body.Close()
	sum1 := first.Header.Get("X-Config-Checksum")
	require.NotEmpty(t, sum1)

	// Unchanged content keeps the same checksum
	second, err := http.Get(ts.URL + "/configs")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, sum1, second.Header.Get("X-Config-Checksum"))

	// A republished config changes it
	require.NoError(t, server.Publish(ctx, testResult("BTCUSDT", 20.0)))
	third, err := http.Get(ts.URL + "/configs")
	require.NoError(t, err)
	third.Body.Close()
	assert.NotEqual(t, sum1, third.Header.Get("X-Config-Checksum"))
}

func TestServer_WebsocketPush(t *testing.T) {
	server, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Subscription registers before the publish
	require.Eventually(t, func() bool { return server.hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, server.Publish(context.Background(), testResult("BTCUSDT", 10.0)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var update domain.OptimizationResult
	require.NoError(t, json.Unmarshal(message, &update))
	assert.Equal(t, "BTCUSDT", update.Symbol)
}
