package memory

import (
	"cmp"
	"slices"

	"github.com/qubic/ledger-replay/entities"
)

// AccountStore keeps account snapshots keyed by client. It is owned by a single
// engine and not safe for concurrent use.
type AccountStore struct {
	accounts map[entities.ClientID]entities.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[entities.ClientID]entities.Account),
	}
}

func (s *AccountStore) GetAccount(client entities.ClientID) (entities.Account, error) {
	account, ok := s.accounts[client]
	if !ok {
		return entities.Account{}, entities.ErrStoreEntityNotFound
	}
	return account, nil
}

func (s *AccountStore) PutAccount(account entities.Account) error {
	s.accounts[account.Client] = account
	return nil
}

// Accounts returns all accounts ordered by client id.
func (s *AccountStore) Accounts() ([]entities.Account, error) {
	accounts := make([]entities.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	slices.SortFunc(accounts, func(a, b entities.Account) int {
		return cmp.Compare(a.Client, b.Client)
	})
	return accounts, nil
}

type TransactionStore struct {
	transactions map[entities.TransactionID]entities.StoredTransaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		transactions: make(map[entities.TransactionID]entities.StoredTransaction),
	}
}

func (s *TransactionStore) PutTransaction(id entities.TransactionID, tx entities.StoredTransaction) error {
	s.transactions[id] = tx
	return nil
}

func (s *TransactionStore) GetTransaction(id entities.TransactionID) (entities.StoredTransaction, error) {
	tx, ok := s.transactions[id]
	if !ok {
		return entities.StoredTransaction{}, entities.ErrStoreEntityNotFound
	}
	return tx, nil
}

func (s *TransactionStore) SetDisputed(id entities.TransactionID, disputed bool) error {
	tx, ok := s.transactions[id]
	if !ok {
		return entities.ErrStoreEntityNotFound
	}
	tx.Disputed = disputed
	s.transactions[id] = tx
	return nil
}

// MarkChargedBack settles the transaction for good, no further dispute on it is accepted.
func (s *TransactionStore) MarkChargedBack(id entities.TransactionID) error {
	tx, ok := s.transactions[id]
	if !ok {
		return entities.ErrStoreEntityNotFound
	}
	tx.Disputed = false
	tx.ChargedBack = true
	s.transactions[id] = tx
	return nil
}

func (s *TransactionStore) Close() error {
	return nil
}
