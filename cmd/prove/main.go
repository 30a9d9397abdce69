// Command prove runs rolling-window validation: configurations are
// selected on each training window and then replayed forward over data
// they never saw, so the report measures out-of-sample performance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coin-strategy-lab/internal/campaign"
	"coin-strategy-lab/internal/config"
	"coin-strategy-lab/internal/klines"
	"coin-strategy-lab/internal/observability"
	"coin-strategy-lab/internal/optimizer"
	"coin-strategy-lab/internal/reporting"
	chstore "coin-strategy-lab/internal/storage/clickhouse"
)

const secondsPerDay = 86400

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "campaign.yaml", "Campaign config file")
	startDate := flag.String("start", "", "Start date, YYYY-MM-DD (required)")
	endDate := flag.String("end", "", "End date, YYYY-MM-DD, inclusive (required)")

	trainDays := flag.Int("train-days", 30, "Training window length in days")
	liveDays := flag.Int("live-days", 7, "Forward (live) window length in days")
	stepDays := flag.Int("step-days", 7, "Window advance step in days")

	klinesURL := flag.String("klines-url", os.Getenv("KLINES_URL"), "Kline caching proxy base URL (fetch series directly)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (read prefetched series)")

	outputDir := flag.String("output-dir", "reports", "Directory for the Markdown report")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	logger := log.New(os.Stderr, "[prove] ", log.LstdFlags)

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
			EarlyExit:   true,
			Logger:      logger,
			Verbose:     *verbose,
		},
		Logger:  logger,
		Verbose: *verbose,
	})

	opts := campaign.ProveOptions{
		Start:    start,
		End:      end,
		TrainSec: int64(*trainDays) * secondsPerDay,
		LiveSec:  int64(*liveDays) * secondsPerDay,
		StepSec:  int64(*stepDays) * secondsPerDay,
	}

	began := time.Now()
	result, err := c.Prove(ctx, cfg.Symbols, opts)
	if err != nil {
		logger.Fatalf("prove: %v", err)
	}
	observability.RecordCampaignRun("prove", time.Since(began).Seconds())
	for range result.Windows {
		observability.RecordProveWindow()
	}

	logger.Printf("prove complete: %d windows, forward profit %.6f (%d clean wins, %d stop losses, %d stales) in %s",
		len(result.Windows),
		result.ForwardProfit,
		result.ForwardCleanWins,
		result.ForwardStopLosses,
		result.ForwardStales,
		time.Since(began).Round(time.Millisecond))

	if err := writeReport(*outputDir, result); err != nil {
		logger.Fatalf("write report: %v", err)
	}
	logger.Printf("report written to %s", *outputDir)
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

func writeReport(outputDir string, result *campaign.ProveResult) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	md := reporting.RenderProveMarkdown(result, time.Now().UTC())
	return os.WriteFile(filepath.Join(outputDir, "prove.md"), []byte(md), 0o644)
}
