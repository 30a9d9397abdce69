// Command backtest runs a single-window optimization campaign: for every
// configured symbol it sweeps the candidate space over the given date
// range, reports the selected configurations and optionally persists them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coin-strategy-lab/internal/campaign"
	"coin-strategy-lab/internal/config"
	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/klines"
	"coin-strategy-lab/internal/observability"
	"coin-strategy-lab/internal/optimizer"
	"coin-strategy-lab/internal/reporting"
	chstore "coin-strategy-lab/internal/storage/clickhouse"
	pgstore "coin-strategy-lab/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "campaign.yaml", "Campaign config file")
	startDate := flag.String("start", "", "Start date, YYYY-MM-DD (required)")
	endDate := flag.String("end", "", "End date, YYYY-MM-DD, inclusive (required)")

	klinesURL := flag.String("klines-url", os.Getenv("KLINES_URL"), "Kline caching proxy base URL (fetch series directly)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (read prefetched series)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (persist results, optional)")

	outputDir := flag.String("output-dir", "reports", "Directory for CSV and Markdown reports")
	earlyExit := flag.Bool("early-exit", true, "Terminate disqualified candidate runs early")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

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

	source, closeSource := buildSource(ctx, logger, cfg, *klinesURL, *clickhouseDSN)
	defer closeSource()

	c := campaign.New(source, campaign.Options{
		Base:  cfg.Base,
		Space: cfg.Space,
		Sweep: optimizer.Options{
			Policy:      cfg.Policy(),
			Parallelism: cfg.Parallelism,
			EarlyExit:   *earlyExit,
			Logger:      logger,
			Verbose:     *verbose,
		},
		Logger:  logger,
		Verbose: *verbose,
	})

	began := time.Now()
	result, err := c.Run(ctx, cfg.Symbols, start, end)
	if err != nil {
		logger.Fatalf("campaign: %v", err)
	}
	observability.RecordCampaignRun("backtest", time.Since(began).Seconds())
	observability.RecordCampaignOutcome(len(result.Selected), len(result.Skipped))

	logger.Printf("campaign complete: %d selected, %d skipped in %s",
		len(result.Selected), len(result.Skipped), time.Since(began).Round(time.Millisecond))
	for _, s := range result.Skipped {
		logger.Printf("skipped %s: %v", s.Symbol, s.Err)
	}

	if err := writeReports(*outputDir, result); err != nil {
		logger.Fatalf("write reports: %v", err)
	}
	logger.Printf("reports written to %s", *outputDir)

	if *postgresDSN != "" {
		if err := persistResults(ctx, *postgresDSN, result); err != nil {
			logger.Fatalf("persist results: %v", err)
		}
		logger.Printf("persisted %d tuned configs", len(result.Selected))
	}
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

// buildSource picks the price source: the kline proxy when configured,
// otherwise prefetched series from ClickHouse.
func buildSource(ctx context.Context, logger *log.Logger, cfg *config.Campaign, klinesURL, clickhouseDSN string) (campaign.PriceSource, func()) {
	if klinesURL != "" {
		return klines.NewClient(klinesURL, klines.WithInterval(cfg.Interval)), func() {}
	}
	if clickhouseDSN == "" {
		logger.Fatal("either --klines-url or --clickhouse-dsn is required")
	}

	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		logger.Fatalf("connect to clickhouse: %v", err)
	}
	return campaign.NewStoreSource(chstore.NewPriceSeriesStore(conn)), func() { _ = conn.Close() }
}

func writeReports(outputDir string, result *campaign.RunResult) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	md := reporting.RenderCampaignMarkdown(result, time.Now().UTC())
	if err := os.WriteFile(filepath.Join(outputDir, "campaign.md"), []byte(md), 0o644); err != nil {
		return err
	}

	csv := reporting.RenderSelectionsCSV(orderedSelections(result))
	if err := os.WriteFile(filepath.Join(outputDir, "selections.csv"), []byte(csv), 0o644); err != nil {
		return err
	}

	trades := reporting.RenderTradesCSV(allTrades(result))
	return os.WriteFile(filepath.Join(outputDir, "trades.csv"), []byte(trades), 0o644)
}

func persistResults(ctx context.Context, postgresDSN string, result *campaign.RunResult) error {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	configStore := pgstore.NewTunedConfigStore(pool)
	tradeStore := pgstore.NewTradeRecordStore(pool)

	for _, r := range orderedSelections(result) {
		if err := configStore.Put(ctx, r); err != nil {
			return fmt.Errorf("put config %s: %w", r.Symbol, err)
		}
		if r.Result != nil && len(r.Result.Trades) > 0 {
			if err := tradeStore.InsertBulk(ctx, r.Result.Trades); err != nil {
				return fmt.Errorf("insert trades %s: %w", r.Symbol, err)
			}
		}
	}
	return nil
}

// orderedSelections flattens the selection map in symbol order.
func orderedSelections(result *campaign.RunResult) []*domain.OptimizationResult {
	symbols := make([]string, 0, len(result.Selected))
	for s := range result.Selected {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]*domain.OptimizationResult, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, result.Selected[s])
	}
	return out
}

func allTrades(result *campaign.RunResult) []*domain.TradeRecord {
	var trades []*domain.TradeRecord
	for _, r := range orderedSelections(result) {
		if r.Result != nil {
			trades = append(trades, r.Result.Trades...)
		}
	}
	return trades
}
