// Command replay re-derives lifecycle annotations from persisted history
// and reports any divergence from what is stored. A clean run demonstrates
// that reprocessing is deterministic; a divergent run points at records
// written by an older rule set or mutated out of band.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradeledger/internal/config"
	"tradeledger/internal/storage"
	"tradeledger/internal/storage/dynamo"
	"tradeledger/internal/storage/memory"
	pgstore "tradeledger/internal/storage/postgres"
	"tradeledger/internal/verify"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	userID := flag.String("user", "", "User whose history to verify")
	backend := flag.String("backend", "", "Storage backend override: memory, postgres, or dynamo")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
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

	if *userID == "" {
		logger.Fatal("-user is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("build store", zap.Error(err))
	}
	defer closeStore()

	report, err := verify.New(store, logger).VerifyUser(ctx, *userID)
	if err != nil {
		logger.Fatal("verification failed", zap.Error(err))
	}

	fmt.Printf("User:        %s\n", report.UserID)
	fmt.Printf("Executions:  %d\n", report.TotalExecutions)
	fmt.Printf("Matched:     %d\n", report.Matched)
	fmt.Printf("Unassigned:  %d\n", report.Unassigned)
	fmt.Printf("Divergent:   %d\n", report.Divergent)

	for _, result := range report.Results {
		fmt.Printf("\ntransaction %d (%s):\n", result.TransactionID, result.Ticker)
		for _, d := range result.Divergences {
			fmt.Printf("  %-18s stored=%s replayed=%s\n", d.Field, d.Expected, d.Actual)
		}
	}

	if report.Divergent > 0 {
		os.Exit(1)
	}
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
