package main

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qubic/ledger-replay/business/domain/ledger"
	"github.com/qubic/ledger-replay/entities"
	"github.com/qubic/ledger-replay/external/csvfile"
	"github.com/qubic/ledger-replay/metrics"
	"go.uber.org/zap"
)

type AccountPublisher interface {
	PublishAccounts(ctx context.Context, accounts []entities.Account, runID string) error
}

// replayer drives one run: read, process, write and optionally publish.
type replayer struct {
	engine         *ledger.Engine
	metrics        *metrics.ProcessingMetrics
	publisher      AccountPublisher
	publishTimeout time.Duration
	runID          string
	logger         *zap.SugaredLogger
}

func (r *replayer) replay(ctx context.Context, input io.Reader, output io.Writer) error {
	start := time.Now()

	reader, err := csvfile.NewReader(input)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}

	if err := r.engine.Run(reader.Transactions()); err != nil {
		return errors.Wrap(err, "replaying transactions")
	}

	accounts, err := r.engine.Accounts()
	if err != nil {
		return err
	}
	r.metrics.SetAccounts(len(accounts), lockedAccounts(accounts))

	if err := csvfile.NewWriter(output).WriteAccounts(accounts); err != nil {
		return errors.Wrap(err, "writing accounts")
	}

	if r.publisher != nil {
		publishCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
		defer cancel()
		if err := r.publisher.PublishAccounts(publishCtx, accounts, r.runID); err != nil {
			return errors.Wrap(err, "publishing accounts")
		}
	}

	r.logger.Infow("Replay finished", "accounts", len(accounts), "duration", time.Since(start))
	return nil
}

func lockedAccounts(accounts []entities.Account) int {
	locked := 0
	for _, account := range accounts {
		if account.Locked {
			locked++
		}
	}
	return locked
}

func validateInputPath(path string) error {
	if path == "" {
		return errors.New("no input file given")
	}
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return errors.Errorf("input file %q is not a .csv file", path)
	}
	return nil
}
