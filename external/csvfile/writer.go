package csvfile

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
	"github.com/qubic/ledger-replay/entities"
)

type Writer struct {
	csv *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteAccounts writes the header followed by one row per account.
func (w *Writer) WriteAccounts(accounts []entities.Account) error {
	if err := w.csv.Write(entities.AccountSnapshotHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for _, account := range accounts {
		if err := w.csv.Write(account.Snapshot().Record()); err != nil {
			return errors.Wrapf(err, "writing account %d", account.Client)
		}
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return errors.Wrap(err, "flushing accounts")
	}
	return nil
}
