package pebbledb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/qubic/ledger-replay/entities"
)

const transactionKeyPrefix = 0x01

const (
	flagDisputed byte = 1 << iota
	flagChargedBack
)

// header is client (2 bytes), kind (1 byte), flags (1 byte); the binary
// encoded amount follows.
const valueHeaderSize = 4

// TransactionStore keeps stored transactions on disk for inputs whose history
// does not fit in memory. Writes are not synced, the store only lives for one run.
type TransactionStore struct {
	db *pebble.DB
}

func NewTransactionStore(storeDir string) (*TransactionStore, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "ledger-replay-tx-store"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %v", err)
	}

	return &TransactionStore{db: db}, nil
}

func (ts *TransactionStore) PutTransaction(id entities.TransactionID, tx entities.StoredTransaction) error {
	value, err := encodeTransaction(tx)
	if err != nil {
		return fmt.Errorf("encoding transaction %d: %w", id, err)
	}

	err = ts.db.Set(transactionKey(id), value, pebble.NoSync)
	if err != nil {
		return fmt.Errorf("setting transaction %d: %w", id, err)
	}

	return nil
}

func (ts *TransactionStore) GetTransaction(id entities.TransactionID) (entities.StoredTransaction, error) {
	value, closer, err := ts.db.Get(transactionKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return entities.StoredTransaction{}, entities.ErrStoreEntityNotFound
	}
	if err != nil {
		return entities.StoredTransaction{}, fmt.Errorf("getting transaction %d: %w", id, err)
	}
	defer closer.Close()

	tx, err := decodeTransaction(value)
	if err != nil {
		return entities.StoredTransaction{}, fmt.Errorf("decoding transaction %d: %w", id, err)
	}

	return tx, nil
}

func (ts *TransactionStore) SetDisputed(id entities.TransactionID, disputed bool) error {
	return ts.update(id, func(tx *entities.StoredTransaction) {
		tx.Disputed = disputed
	})
}

func (ts *TransactionStore) MarkChargedBack(id entities.TransactionID) error {
	return ts.update(id, func(tx *entities.StoredTransaction) {
		tx.Disputed = false
		tx.ChargedBack = true
	})
}

func (ts *TransactionStore) update(id entities.TransactionID, mutate func(tx *entities.StoredTransaction)) error {
	tx, err := ts.GetTransaction(id)
	if err != nil {
		return err
	}
	mutate(&tx)
	return ts.PutTransaction(id, tx)
}

func (ts *TransactionStore) Close() error {
	return ts.db.Close()
}

func transactionKey(id entities.TransactionID) []byte {
	key := []byte{transactionKeyPrefix}
	return binary.BigEndian.AppendUint32(key, uint32(id))
}

func encodeTransaction(tx entities.StoredTransaction) ([]byte, error) {
	amount, err := tx.Amount.MarshalBinary()
	if err != nil {
		return nil, err
	}

	var flags byte
	if tx.Disputed {
		flags |= flagDisputed
	}
	if tx.ChargedBack {
		flags |= flagChargedBack
	}

	value := make([]byte, 0, valueHeaderSize+len(amount))
	value = binary.BigEndian.AppendUint16(value, uint16(tx.Client))
	value = append(value, byte(tx.Kind), flags)
	return append(value, amount...), nil
}

func decodeTransaction(value []byte) (entities.StoredTransaction, error) {
	if len(value) < valueHeaderSize {
		return entities.StoredTransaction{}, fmt.Errorf("value too short: %d bytes", len(value))
	}

	tx := entities.StoredTransaction{
		Client:      entities.ClientID(binary.BigEndian.Uint16(value)),
		Kind:        entities.TransactionKind(value[2]),
		Disputed:    value[3]&flagDisputed != 0,
		ChargedBack: value[3]&flagChargedBack != 0,
	}
	if err := tx.Amount.UnmarshalBinary(value[valueHeaderSize:]); err != nil {
		return entities.StoredTransaction{}, fmt.Errorf("unmarshalling amount: %w", err)
	}

	return tx, nil
}
