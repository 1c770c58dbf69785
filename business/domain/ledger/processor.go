package ledger

import (
	"github.com/pkg/errors"
	"github.com/qubic/ledger-replay/entities"
	"github.com/shopspring/decimal"
)

type AccountReader interface {
	GetAccount(client entities.ClientID) (entities.Account, error)
}

type TransactionReader interface {
	GetTransaction(id entities.TransactionID) (entities.StoredTransaction, error)
}

// Process computes the delta tx makes to its account, or rejects it. It only
// reads from the stores. Rejections wrap one of the entities sentinels; any
// other error comes from a store and is fatal.
func Process(tx entities.Transaction, accounts AccountReader, transactions TransactionReader) (entities.AccountDelta, error) {
	switch t := tx.(type) {
	case entities.Deposit:
		return deposit(t, accounts, transactions)
	case entities.Withdrawal:
		return withdrawal(t, accounts, transactions)
	case entities.Dispute:
		return dispute(t, accounts, transactions)
	case entities.Resolve:
		return resolve(t, accounts, transactions)
	case entities.Chargeback:
		return chargeback(t, accounts, transactions)
	}
	return entities.AccountDelta{}, errors.Errorf("unsupported transaction type %T", tx)
}

func deposit(tx entities.Deposit, accounts AccountReader, transactions TransactionReader) (entities.AccountDelta, error) {
	amount, err := validAmount(tx.Amount)
	if err != nil {
		return entities.AccountDelta{}, err
	}
	if err := ensureNewTransaction(tx.ID(), transactions); err != nil {
		return entities.AccountDelta{}, err
	}

	account, err := accounts.GetAccount(tx.ClientID())
	if errors.Is(err, entities.ErrStoreEntityNotFound) {
		account = entities.NewAccount(tx.ClientID())
	} else if err != nil {
		return entities.AccountDelta{}, errors.Wrapf(err, "getting account %d", tx.ClientID())
	}
	if account.Locked {
		return entities.AccountDelta{}, entities.ErrAccountLocked
	}

	return entities.AccountDelta{}.WithAvailable(account.Available.Add(amount)), nil
}

func withdrawal(tx entities.Withdrawal, accounts AccountReader, transactions TransactionReader) (entities.AccountDelta, error) {
	amount, err := validAmount(tx.Amount)
	if err != nil {
		return entities.AccountDelta{}, err
	}
	if err := ensureNewTransaction(tx.ID(), transactions); err != nil {
		return entities.AccountDelta{}, err
	}

	account, err := getAccount(tx.ClientID(), accounts)
	if err != nil {
		return entities.AccountDelta{}, err
	}
	if account.Locked {
		return entities.AccountDelta{}, entities.ErrAccountLocked
	}
	if amount.GreaterThan(account.Available) {
		return entities.AccountDelta{}, errors.Wrapf(entities.ErrInsufficientFunds, "available %s, requested %s", account.Available, amount)
	}

	return entities.AccountDelta{}.WithAvailable(account.Available.Sub(amount)), nil
}

// dispute moves the referenced amount from available to held, whatever kind
// the referenced transaction was.
func dispute(tx entities.Dispute, accounts AccountReader, transactions TransactionReader) (entities.AccountDelta, error) {
	stored, err := referenced(tx.TransactionMeta, transactions)
	if err != nil {
		return entities.AccountDelta{}, err
	}
	if stored.ChargedBack {
		return entities.AccountDelta{}, entities.ErrTransactionSettled
	}
	if stored.Disputed {
		return entities.AccountDelta{}, entities.ErrAlreadyDisputed
	}
	account, err := owner(tx.TransactionMeta, stored, accounts)
	if err != nil {
		return entities.AccountDelta{}, err
	}

	return balanced(account.Available.Sub(stored.Amount), account.Held.Add(stored.Amount))
}

func resolve(tx entities.Resolve, accounts AccountReader, transactions TransactionReader) (entities.AccountDelta, error) {
	stored, err := referenced(tx.TransactionMeta, transactions)
	if err != nil {
		return entities.AccountDelta{}, err
	}
	if !stored.Disputed {
		return entities.AccountDelta{}, entities.ErrNotDisputed
	}
	account, err := owner(tx.TransactionMeta, stored, accounts)
	if err != nil {
		return entities.AccountDelta{}, err
	}

	return balanced(account.Available.Add(stored.Amount), account.Held.Sub(stored.Amount))
}

func chargeback(tx entities.Chargeback, accounts AccountReader, transactions TransactionReader) (entities.AccountDelta, error) {
	stored, err := referenced(tx.TransactionMeta, transactions)
	if err != nil {
		return entities.AccountDelta{}, err
	}
	if !stored.Disputed {
		return entities.AccountDelta{}, entities.ErrNotDisputed
	}
	account, err := owner(tx.TransactionMeta, stored, accounts)
	if err != nil {
		return entities.AccountDelta{}, err
	}

	held := account.Held.Sub(stored.Amount)
	if held.IsNegative() {
		return entities.AccountDelta{}, errors.Wrapf(entities.ErrInvariantViolation, "held would become %s", held)
	}

	return entities.AccountDelta{}.WithHeld(held).WithLocked(true), nil
}

// referenced looks up the transaction a dispute, resolve or chargeback points at.
func referenced(meta entities.TransactionMeta, transactions TransactionReader) (entities.StoredTransaction, error) {
	stored, err := transactions.GetTransaction(meta.TxID)
	if errors.Is(err, entities.ErrStoreEntityNotFound) {
		return entities.StoredTransaction{}, entities.ErrUnknownTransaction
	}
	if err != nil {
		return entities.StoredTransaction{}, errors.Wrapf(err, "getting transaction %d", meta.TxID)
	}
	return stored, nil
}

// owner returns the account of the referenced transaction, provided it belongs
// to the client named in meta.
func owner(meta entities.TransactionMeta, stored entities.StoredTransaction, accounts AccountReader) (entities.Account, error) {
	if stored.Client != meta.Client {
		return entities.Account{}, errors.Wrapf(entities.ErrClientMismatch, "transaction belongs to client %d", stored.Client)
	}
	return getAccount(meta.Client, accounts)
}

func getAccount(client entities.ClientID, accounts AccountReader) (entities.Account, error) {
	account, err := accounts.GetAccount(client)
	if errors.Is(err, entities.ErrStoreEntityNotFound) {
		return entities.Account{}, entities.ErrUnknownAccount
	}
	if err != nil {
		return entities.Account{}, errors.Wrapf(err, "getting account %d", client)
	}
	return account, nil
}

func ensureNewTransaction(id entities.TransactionID, transactions TransactionReader) error {
	_, err := transactions.GetTransaction(id)
	if err == nil {
		return entities.ErrDuplicateTransaction
	}
	if !errors.Is(err, entities.ErrStoreEntityNotFound) {
		return errors.Wrapf(err, "getting transaction %d", id)
	}
	return nil
}

func validAmount(amount decimal.NullDecimal) (decimal.Decimal, error) {
	if !amount.Valid {
		return decimal.Decimal{}, errors.Wrap(entities.ErrInvalidAmount, "amount missing")
	}
	// checked first, formatting or truncating an out of range value is expensive
	if !entities.AmountInRange(amount.Decimal) {
		return decimal.Decimal{}, errors.Wrap(entities.ErrInvalidAmount, "amount out of range")
	}
	if !amount.Decimal.IsPositive() {
		return decimal.Decimal{}, errors.Wrapf(entities.ErrInvalidAmount, "amount %s not positive", amount.Decimal)
	}
	if !amount.Decimal.Equal(amount.Decimal.Truncate(entities.AmountPrecision)) {
		return decimal.Decimal{}, errors.Wrapf(entities.ErrInvalidAmount, "amount %s exceeds %d decimal places", amount.Decimal, entities.AmountPrecision)
	}
	return amount.Decimal, nil
}

func balanced(available, held decimal.Decimal) (entities.AccountDelta, error) {
	if available.IsNegative() || held.IsNegative() {
		return entities.AccountDelta{}, errors.Wrapf(entities.ErrInvariantViolation, "available would become %s, held %s", available, held)
	}
	return entities.AccountDelta{}.WithAvailable(available).WithHeld(held), nil
}
