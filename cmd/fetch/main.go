// Command fetch prefetches close-price series from the kline caching
// proxy into ClickHouse, so campaigns can replay stored data without
// touching the network.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coin-strategy-lab/internal/config"
	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/klines"
	"coin-strategy-lab/internal/observability"
	"coin-strategy-lab/internal/storage"
	chstore "coin-strategy-lab/internal/storage/clickhouse"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "campaign.yaml", "Campaign config file (symbols and interval)")
	startDate := flag.String("start", "", "Start date, YYYY-MM-DD (required)")
	endDate := flag.String("end", "", "End date, YYYY-MM-DD, inclusive (required)")

	klinesURL := flag.String("klines-url", os.Getenv("KLINES_URL"), "Kline caching proxy base URL (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (required)")
	flag.Parse()

	logger := log.New(os.Stderr, "[fetch] ", log.LstdFlags)

	if *klinesURL == "" || *clickhouseDSN == "" {
		logger.Fatal("--klines-url and --clickhouse-dsn are required")
	}
	start, end := parseRange(logger, *startDate, *endDate)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	defer conn.Close()

	client := klines.NewClient(*klinesURL)
	store := chstore.NewPriceSeriesStore(conn)

	var fetched, stored int
	for _, symbol := range cfg.Symbols {
		if err := ctx.Err(); err != nil {
			logger.Fatalf("aborted: %v", err)
		}

		n, err := fetchSymbol(ctx, logger, client, store, symbol, cfg.Interval, start, end)
		if err != nil {
			observability.RecordKlineFetchError("fetch")
			logger.Fatalf("fetch %s: %v", symbol, err)
		}
		fetched += n.fetched
		stored += n.stored
	}

	logger.Printf("done: %d klines fetched, %d records stored across %d symbols",
		fetched, stored, len(cfg.Symbols))
}

type counts struct {
	fetched int
	stored  int
}

// fetchSymbol pulls one symbol's klines and stores the close prices.
// Already-stored timestamps are skipped one record at a time so re-runs
// over overlapping ranges stay idempotent.
func fetchSymbol(ctx context.Context, logger *log.Logger, client *klines.Client, store storage.PriceSeriesStore, symbol, interval string, start, end int64) (counts, error) {
	began := time.Now()

	ks, err := client.GetKlines(ctx, symbol, interval, start, end)
	if err != nil {
		return counts{}, err
	}
	observability.RecordKlinesFetched(len(ks))

	records := domain.PriceRecordsFromKlines(ks)

	n := counts{fetched: len(ks)}
	if err := store.InsertBulk(ctx, records); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return counts{}, err
		}
		for _, r := range records {
			err := store.InsertBulk(ctx, []*domain.PriceRecord{r})
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			if err != nil {
				return counts{}, err
			}
			n.stored++
		}
	} else {
		n.stored = len(records)
	}
	observability.RecordPriceRecordsStored(n.stored)

	logger.Printf("%s: %d klines, %d stored in %s", symbol, n.fetched, n.stored, time.Since(began).Round(time.Millisecond))
	return n, nil
}

// parseRange converts the date flags to unix seconds; the full end day
// is included.
func parseRange(logger *log.Logger, startDate, endDate string) (int64, int64) {
	if startDate == "" || endDate == "" {
		logger.Fatal("--start and --end are required")
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		logger.Fatalf("parse --start: %v", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		logger.Fatalf("parse --end: %v", err)
	}
	if end.Before(start) {
		logger.Fatal("--end must not be before --start")
	}
	return start.Unix(), end.AddDate(0, 0, 1).Unix() - 1
}
