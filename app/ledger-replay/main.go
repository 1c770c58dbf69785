package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/qubic/ledger-replay/business/domain/ledger"
	"github.com/qubic/ledger-replay/external/kafka"
	"github.com/qubic/ledger-replay/infrastructure/store/memory"
	"github.com/qubic/ledger-replay/infrastructure/store/pebbledb"
	"github.com/qubic/ledger-replay/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const prefix = "LEDGER_REPLAY"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "loading .env file")
	}

	var cfg struct {
		Args     conf.Args
		Input    string `conf:"help:transactions csv file, alternatively given as first argument"`
		LogLevel string `conf:"default:info"`
		TxStore  struct {
			Backend string `conf:"default:memory,help:memory or pebble"`
			Folder  string `conf:"help:parent folder of the pebble scratch store, system temp folder if empty"`
		}
		Kafka struct {
			Enabled          bool          `conf:"default:false"`
			BootstrapServers []string      `conf:"default:localhost:9092"`
			AccountsTopic    string        `conf:"default:ledger-replay-accounts"`
			PublishTimeout   time.Duration `conf:"default:30s"`
		}
		MetricsNamespace string `conf:"default:ledger_replay"`
		MetricsFile      string `conf:"help:write metrics in prometheus text format to this file after the run"`
	}

	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %v", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %v", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %v", err)
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parsing log level")
	}

	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %v", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	inputPath := cfg.Input
	if inputPath == "" {
		inputPath = cfg.Args.Num(0)
	}
	if err := validateInputPath(inputPath); err != nil {
		return err
	}

	input, err := os.Open(inputPath)
	if err != nil {
		return errors.Wrap(err, "opening input file")
	}
	defer input.Close()

	runID := uuid.NewString()
	sLogger := logger.Sugar().With("run", runID)

	registry := prometheus.NewRegistry()
	processingMetrics := metrics.NewProcessingMetrics(cfg.MetricsNamespace, registry)

	var transactions ledger.TransactionStore
	switch cfg.TxStore.Backend {
	case "memory":
		transactions = memory.NewTransactionStore()
	case "pebble":
		storeDir, err := os.MkdirTemp(cfg.TxStore.Folder, "ledger-replay-")
		if err != nil {
			return errors.Wrap(err, "creating transaction store folder")
		}
		defer os.RemoveAll(storeDir)

		txStore, err := pebbledb.NewTransactionStore(storeDir)
		if err != nil {
			return errors.Wrap(err, "creating transaction store")
		}
		defer txStore.Close()
		transactions = txStore
	default:
		return errors.Errorf("unknown transaction store backend %q", cfg.TxStore.Backend)
	}

	r := replayer{
		engine:         ledger.NewEngine(memory.NewAccountStore(), transactions, sLogger, processingMetrics),
		metrics:        processingMetrics,
		publishTimeout: cfg.Kafka.PublishTimeout,
		runID:          runID,
		logger:         sLogger,
	}

	if cfg.Kafka.Enabled {
		kafkaMetrics := kprom.NewMetrics(cfg.MetricsNamespace,
			kprom.Registerer(registry),
			kprom.Gatherer(registry))
		kcl, err := kgo.NewClient(
			kgo.WithHooks(kafkaMetrics),
			kgo.DefaultProduceTopic(cfg.Kafka.AccountsTopic),
			kgo.SeedBrokers(cfg.Kafka.BootstrapServers...),
			kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		)
		if err != nil {
			return errors.Wrap(err, "creating kafka client")
		}
		defer kcl.Close()
		r.publisher = kafka.NewClient(kcl, sLogger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.replay(ctx, input, os.Stdout); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, registry); err != nil {
			return errors.Wrap(err, "writing metrics file")
		}
	}

	return nil
}
