package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type TransactionID uint32

type TransactionKind uint8

const (
	KindDeposit TransactionKind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

var kindNames = map[TransactionKind]string{
	KindDeposit:    "deposit",
	KindWithdrawal: "withdrawal",
	KindDispute:    "dispute",
	KindResolve:    "resolve",
	KindChargeback: "chargeback",
}

func (k TransactionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseTransactionKind maps the literal used in the input type column to a kind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

type TransactionMeta struct {
	TxID   TransactionID
	Client ClientID
}

func (m TransactionMeta) ID() TransactionID  { return m.TxID }
func (m TransactionMeta) ClientID() ClientID { return m.Client }

// Transaction is implemented by Deposit, Withdrawal, Dispute, Resolve and
// Chargeback only.
type Transaction interface {
	ID() TransactionID
	ClientID() ClientID
	Kind() TransactionKind
	sealed()
}

type Deposit struct {
	TransactionMeta
	Amount decimal.NullDecimal
}

type Withdrawal struct {
	TransactionMeta
	Amount decimal.NullDecimal
}

// Dispute, Resolve and Chargeback reference an earlier deposit or withdrawal
// through TxID and never carry an amount of their own.
type Dispute struct {
	TransactionMeta
}

type Resolve struct {
	TransactionMeta
}

type Chargeback struct {
	TransactionMeta
}

func (Deposit) Kind() TransactionKind    { return KindDeposit }
func (Withdrawal) Kind() TransactionKind { return KindWithdrawal }
func (Dispute) Kind() TransactionKind    { return KindDispute }
func (Resolve) Kind() TransactionKind    { return KindResolve }
func (Chargeback) Kind() TransactionKind { return KindChargeback }

func (Deposit) sealed()    {}
func (Withdrawal) sealed() {}
func (Dispute) sealed()    {}
func (Resolve) sealed()    {}
func (Chargeback) sealed() {}

// StoredTransaction is what the transaction store keeps for a processed
// deposit or withdrawal so later disputes can find the amount.
type StoredTransaction struct {
	Client      ClientID
	Kind        TransactionKind
	Amount      decimal.Decimal
	Disputed    bool
	ChargedBack bool
}

// NewTransaction builds the variant for kind. amount is ignored for the
// dispute family.
func NewTransaction(kind TransactionKind, txID TransactionID, client ClientID, amount decimal.NullDecimal) (Transaction, error) {
	meta := TransactionMeta{TxID: txID, Client: client}
	switch kind {
	case KindDeposit:
		return Deposit{TransactionMeta: meta, Amount: amount}, nil
	case KindWithdrawal:
		return Withdrawal{TransactionMeta: meta, Amount: amount}, nil
	case KindDispute:
		return Dispute{TransactionMeta: meta}, nil
	case KindResolve:
		return Resolve{TransactionMeta: meta}, nil
	case KindChargeback:
		return Chargeback{TransactionMeta: meta}, nil
	}
	return nil, fmt.Errorf("unsupported transaction kind %v", kind)
}
