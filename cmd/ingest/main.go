package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradeledger/internal/archive"
	"tradeledger/internal/calc"
	"tradeledger/internal/config"
	"tradeledger/internal/lookup"
	"tradeledger/internal/normalize"
	"tradeledger/internal/notify"
	"tradeledger/internal/observability"
	"tradeledger/internal/pipeline"
	"tradeledger/internal/reconcile"
	"tradeledger/internal/spreadsheet"
	"tradeledger/internal/storage"
	"tradeledger/internal/storage/dynamo"
	"tradeledger/internal/storage/memory"
	pgstore "tradeledger/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	filePath := flag.String("file", "", "Path to the uploaded .xlsx order sheet")
	userID := flag.String("user", "", "User the upload belongs to")
	backend := flag.String("backend", "", "Storage backend override: memory, postgres, or dynamo")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *filePath == "" || *userID == "" {
		logger.Fatal("both -file and -user are required")
	}

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, metrics, *filePath, *userID); err != nil {
		logger.Fatal("batch failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics, filePath, userID string) error {
	// Reference tables degrade to empty on load failure: an unknown
	// symbol passes through and notional/fee fall back to zero, both of
	// which the batch tolerates and flags.
	symbols, err := lookup.LoadSymbols(cfg.Lookup.SymbolsPath)
	if err != nil {
		logger.Warn("symbol table unavailable, using empty table", zap.Error(err))
		symbols = lookup.SymbolTable{}
	}
	ticks, err := lookup.LoadTicks(cfg.Lookup.TicksPath)
	if err != nil {
		logger.Warn("tick table unavailable, using empty table", zap.Error(err))
		ticks = lookup.TickTable{}
	}
	commissions, err := lookup.LoadCommissions(cfg.Lookup.CommissionsPath)
	if err != nil {
		logger.Warn("commission table unavailable, using empty table", zap.Error(err))
		commissions = lookup.CommissionTable{}
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	calculator := calc.New(ticks, commissions, cfg.Lookup.Tier, logger, metrics).
		WithBroker(cfg.Lookup.Broker)

	opts := pipeline.Options{
		Normalizer: normalize.New(symbols, calculator, logger),
		Reconciler: reconcile.New(store, logger, metrics),
		Store:      store,
		Metrics:    metrics,
		Logger:     logger,
	}

	if cfg.Archive.Enabled {
		client, err := archive.NewClient(ctx, archive.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			return fmt.Errorf("create archive client: %w", err)
		}
		opts.Archiver = archive.NewArchiver(client, logger)
	}

	if cfg.Notify.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notify.Region))
		if err != nil {
			return fmt.Errorf("load aws config for ses: %w", err)
		}
		opts.Notifier = notify.NewSESNotifier(sesv2.NewFromConfig(awsCfg), cfg.Notify.From, cfg.Notify.To, logger)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	read, err := spreadsheet.NewReader(logger).Read(f)
	if err != nil {
		return fmt.Errorf("read order sheet: %w", err)
	}

	result, err := pipeline.New(opts).Process(ctx, pipeline.Batch{
		UserID:       userID,
		SourceKey:    filePath,
		Rows:         read.Rows,
		RowsRead:     read.RowsRead,
		RowsFiltered: read.RowsFiltered,
	})
	if err != nil {
		return err
	}

	logger.Info("batch complete",
		zap.String("run_id", result.RunID),
		zap.Int("rows_read", result.RowsRead),
		zap.Int("rows_filtered", result.RowsFiltered),
		zap.Int("executions", len(result.Executions)),
		zap.Int("row_errors", len(result.RowErrors)),
		zap.Int("written", result.Write.Written),
		zap.Int("write_failures", result.Write.Failed))

	for _, re := range result.RowErrors {
		logger.Warn("row excluded", zap.Int("row", re.Row), zap.String("reason", re.Reason))
	}

	return nil
}

// buildStore creates the configured execution store and its cleanup.
func buildStore(ctx context.Context, cfg *config.Config) (storage.ExecutionStore, func(), error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		return memory.NewExecutionStore(), func() {}, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewExecutionStore(pool), pool.Close, nil

	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.DynamoRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config for dynamo: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return dynamo.NewExecutionStore(client, cfg.Storage.DynamoTable), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// serveMetrics exposes /metrics and /health until the process exits.
func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Info("starting metrics server", zap.String("addr", addr))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", zap.Error(err))
	}
}

// buildLogger creates a production zap logger at the configured level.
func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
