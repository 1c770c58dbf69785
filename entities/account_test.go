package entities

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Apply(t *testing.T) {
	testData := []struct {
		name     string
		delta    AccountDelta
		expected Account
	}{
		{
			name:     "empty delta leaves account unchanged",
			delta:    AccountDelta{},
			expected: Account{Client: 1, Available: decimal.RequireFromString("2"), Held: decimal.RequireFromString("1")},
		},
		{
			name:     "available is assigned",
			delta:    AccountDelta{}.WithAvailable(decimal.RequireFromString("5.25")),
			expected: Account{Client: 1, Available: decimal.RequireFromString("5.25"), Held: decimal.RequireFromString("1")},
		},
		{
			name: "available and held are assigned",
			delta: AccountDelta{}.
				WithAvailable(decimal.Zero).
				WithHeld(decimal.RequireFromString("3")),
			expected: Account{Client: 1, Available: decimal.Zero, Held: decimal.RequireFromString("3")},
		},
		{
			name:     "lock is assigned",
			delta:    AccountDelta{}.WithHeld(decimal.Zero).WithLocked(true),
			expected: Account{Client: 1, Available: decimal.RequireFromString("2"), Held: decimal.Zero, Locked: true},
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			account := Account{Client: 1, Available: decimal.RequireFromString("2"), Held: decimal.RequireFromString("1")}
			account.Apply(testRun.delta)

			assert.True(t, testRun.expected.Available.Equal(account.Available), "available: got %s", account.Available)
			assert.True(t, testRun.expected.Held.Equal(account.Held), "held: got %s", account.Held)
			assert.Equal(t, testRun.expected.Locked, account.Locked)
			assert.True(t, testRun.expected.Total().Equal(account.Total()), "total: got %s", account.Total())
		})
	}
}

func TestAccount_Total(t *testing.T) {
	account := NewAccount(3)
	assert.True(t, account.Total().IsZero())

	account.Apply(AccountDelta{}.WithAvailable(decimal.RequireFromString("1.1111")).WithHeld(decimal.RequireFromString("2.2222")))
	assert.Equal(t, "3.3333", account.Total().StringFixed(AmountPrecision))
}

func TestAccountDelta_IsEmpty(t *testing.T) {
	assert.True(t, AccountDelta{}.IsEmpty())
	assert.False(t, AccountDelta{}.WithLocked(false).IsEmpty())
	assert.False(t, AccountDelta{}.WithHeld(decimal.Zero).IsEmpty())
}

func TestParseTransactionKind(t *testing.T) {
	for kind, name := range kindNames {
		got, err := ParseTransactionKind(name)
		require.NoError(t, err)
		assert.Equal(t, kind, got)
		assert.Equal(t, name, kind.String())
	}

	_, err := ParseTransactionKind("transfer")
	assert.Error(t, err)
}

func TestNewTransaction(t *testing.T) {
	amount := decimal.NewNullDecimal(decimal.RequireFromString("1.5"))

	tx, err := NewTransaction(KindDeposit, 10, 2, amount)
	require.NoError(t, err)
	deposit, ok := tx.(Deposit)
	require.True(t, ok)
	assert.Equal(t, TransactionID(10), deposit.ID())
	assert.Equal(t, ClientID(2), deposit.ClientID())
	assert.True(t, deposit.Amount.Valid)

	tx, err = NewTransaction(KindChargeback, 10, 2, amount)
	require.NoError(t, err)
	assert.Equal(t, Chargeback{TransactionMeta{TxID: 10, Client: 2}}, tx)

	_, err = NewTransaction(TransactionKind(42), 10, 2, amount)
	assert.Error(t, err)
}

func TestIsRejection(t *testing.T) {
	assert.True(t, IsRejection(ErrInsufficientFunds))
	assert.True(t, IsRejection(fmt.Errorf("tx 4: %w", ErrClientMismatch)))
	assert.Equal(t, ErrClientMismatch, RejectionReason(fmt.Errorf("tx 4: %w", ErrClientMismatch)))
	assert.False(t, IsRejection(ErrStoreEntityNotFound))
	assert.False(t, IsRejection(nil))
}

func TestAmountInRange(t *testing.T) {

	testData := []struct {
		name     string
		amount   string
		expected bool
	}{
		{name: "small", amount: "1.5", expected: true},
		{name: "zero", amount: "0", expected: true},
		{name: "maximum", amount: "79228162514264337593543950335", expected: true},
		{name: "negative maximum", amount: "-79228162514264337593543950335", expected: true},
		{name: "above maximum", amount: "79228162514264337593543950336", expected: false},
		{name: "thirty digits", amount: "100000000000000000000000000000", expected: false},
		{name: "positive exponent in range", amount: "7e28", expected: true},
		{name: "huge exponent", amount: "1e20000000", expected: false},
		{name: "negative huge exponent", amount: "-1e20000000", expected: false},
		{name: "twenty eight decimals", amount: "0.0000000000000000000000000001", expected: true},
		{name: "tiny exponent", amount: "1e-20000000", expected: false},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			d, err := decimal.NewFromString(testRun.amount)
			require.NoError(t, err)
			assert.Equal(t, testRun.expected, AmountInRange(d))
		})
	}
}
