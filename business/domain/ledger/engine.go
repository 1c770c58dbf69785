package ledger

import (
	"iter"

	"github.com/pkg/errors"
	"github.com/qubic/ledger-replay/entities"
	"github.com/qubic/ledger-replay/metrics"
	"go.uber.org/zap"
)

type AccountStore interface {
	AccountReader
	PutAccount(account entities.Account) error
	Accounts() ([]entities.Account, error)
}

type TransactionStore interface {
	TransactionReader
	PutTransaction(id entities.TransactionID, tx entities.StoredTransaction) error
	SetDisputed(id entities.TransactionID, disputed bool) error
	MarkChargedBack(id entities.TransactionID) error
}

// Engine replays transactions against account balances, one at a time and in
// input order. Disputes must observe the deposits before them, so records are
// never processed concurrently.
//
//	Transaction -> Process -> AccountDelta -> Account.Apply -> record transaction
type Engine struct {
	accounts     AccountStore
	transactions TransactionStore
	logger       *zap.SugaredLogger
	metrics      *metrics.ProcessingMetrics
}

func NewEngine(accounts AccountStore, transactions TransactionStore, logger *zap.SugaredLogger, metrics *metrics.ProcessingMetrics) *Engine {
	return &Engine{
		accounts:     accounts,
		transactions: transactions,
		logger:       logger,
		metrics:      metrics,
	}
}

// Run folds seq into the stores. Rows the reader could not interpret are
// skipped; any other reader error, or a store failure, stops the run.
func (e *Engine) Run(seq iter.Seq2[entities.Transaction, error]) error {
	for tx, err := range seq {
		if err != nil {
			if !errors.Is(err, entities.ErrMalformedRecord) {
				return errors.Wrap(err, "reading transactions")
			}
			e.logger.Debugw("Skipping malformed record", "error", err)
			e.metrics.IncMalformedRecords()
			continue
		}

		if err := e.ProcessTransaction(tx); err != nil && !entities.IsRejection(err) {
			return errors.Wrapf(err, "processing transaction %d", tx.ID())
		}
	}

	return nil
}

// ProcessTransaction applies tx to its account and records it for later
// disputes. A rejected transaction leaves the stores untouched and its
// rejection is returned.
func (e *Engine) ProcessTransaction(tx entities.Transaction) error {
	delta, err := Process(tx, e.accounts, e.transactions)
	if err != nil {
		reason := entities.RejectionReason(err)
		if reason == nil {
			return err
		}
		e.reject(tx, reason, err)
		return err
	}

	if err := e.applyDelta(tx.ClientID(), delta); err != nil {
		return err
	}

	if err := e.record(tx); err != nil {
		return err
	}

	e.metrics.IncProcessedTransactions(tx.Kind().String())
	return nil
}

// Accounts returns the current snapshot of every account, ordered by client.
func (e *Engine) Accounts() ([]entities.Account, error) {
	accounts, err := e.accounts.Accounts()
	if err != nil {
		return nil, errors.Wrap(err, "listing accounts")
	}
	return accounts, nil
}

func (e *Engine) applyDelta(client entities.ClientID, delta entities.AccountDelta) error {
	account, err := e.accounts.GetAccount(client)
	if errors.Is(err, entities.ErrStoreEntityNotFound) {
		account = entities.NewAccount(client)
	} else if err != nil {
		return errors.Wrapf(err, "getting account %d", client)
	}

	account.Apply(delta)

	if err := e.accounts.PutAccount(account); err != nil {
		return errors.Wrapf(err, "storing account %d", client)
	}
	return nil
}

func (e *Engine) record(tx entities.Transaction) error {
	var err error
	switch t := tx.(type) {
	case entities.Deposit:
		err = e.transactions.PutTransaction(t.TxID, entities.StoredTransaction{Client: t.Client, Kind: entities.KindDeposit, Amount: t.Amount.Decimal})
	case entities.Withdrawal:
		err = e.transactions.PutTransaction(t.TxID, entities.StoredTransaction{Client: t.Client, Kind: entities.KindWithdrawal, Amount: t.Amount.Decimal})
	case entities.Dispute:
		err = e.transactions.SetDisputed(t.TxID, true)
	case entities.Resolve:
		err = e.transactions.SetDisputed(t.TxID, false)
	case entities.Chargeback:
		err = e.transactions.MarkChargedBack(t.TxID)
	}
	if err != nil {
		return errors.Wrapf(err, "recording %s transaction %d", tx.Kind(), tx.ID())
	}
	return nil
}

func (e *Engine) reject(tx entities.Transaction, reason, err error) {
	e.metrics.IncRejectedTransactions(tx.Kind().String(), reason)

	if errors.Is(reason, entities.ErrInvariantViolation) {
		e.logger.Errorw("Rejected transaction breaking balance invariant", "tx", tx.ID(), "client", tx.ClientID(), "kind", tx.Kind(), "error", err)
		return
	}
	e.logger.Debugw("Rejected transaction", "tx", tx.ID(), "client", tx.ClientID(), "kind", tx.Kind(), "error", err)
}
