package csvfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/qubic/ledger-replay/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func meta(tx entities.TransactionID, client entities.ClientID) entities.TransactionMeta {
	return entities.TransactionMeta{TxID: tx, Client: client}
}

type readResult struct {
	transactions []entities.Transaction
	malformed    int
}

func readAll(t *testing.T, input string) readResult {
	t.Helper()

	reader, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	var result readResult
	for tx, err := range reader.Transactions() {
		if err != nil {
			require.ErrorIs(t, err, entities.ErrMalformedRecord)
			result.malformed++
			continue
		}
		result.transactions = append(result.transactions, tx)
	}
	return result
}

func TestReader_Transactions(t *testing.T) {

	testData := []struct {
		name              string
		input             string
		expected          []entities.Transaction
		expectedMalformed int
	}{
		{
			name:  "TestTransactions_AllKinds",
			input: "type,client,tx,amount\ndeposit,1,1,1.0\nwithdrawal,1,2,0.5\ndispute,1,1,\nresolve,1,1,\nchargeback,1,1,\n",
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(1, 1), Amount: amount("1.0")},
				entities.Withdrawal{TransactionMeta: meta(2, 1), Amount: amount("0.5")},
				entities.Dispute{TransactionMeta: meta(1, 1)},
				entities.Resolve{TransactionMeta: meta(1, 1)},
				entities.Chargeback{TransactionMeta: meta(1, 1)},
			},
		},
		{
			name:  "TestTransactions_Whitespace",
			input: "type, client, tx, amount\n  deposit ,  2 , 7 ,  3.25  \n",
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(7, 2), Amount: amount("3.25")},
			},
		},
		{
			name:  "TestTransactions_MissingAmountColumn",
			input: "type,client,tx,amount\ndeposit,1,1,2\ndispute,1,1\n",
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(1, 1), Amount: amount("2")},
				entities.Dispute{TransactionMeta: meta(1, 1)},
			},
		},
		{
			name:  "TestTransactions_DepositWithoutAmount",
			input: "type,client,tx,amount\ndeposit,1,1,\n",
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(1, 1)},
			},
		},
		{
			name:  "TestTransactions_DisputeAmountIgnored",
			input: "type,client,tx,amount\ndispute,4,9,12.5\n",
			expected: []entities.Transaction{
				entities.Dispute{TransactionMeta: meta(9, 4)},
			},
		},
		{
			name:              "TestTransactions_MalformedRowsSkipped",
			input:             "type,client,tx,amount\ntransfer,1,1,1\ndeposit,x,2,1\ndeposit,1,-3,1\ndeposit,70000,4,1\ndeposit,1,5,abc\ndeposit,1\ndeposit,1,6,1.5\n",
			expectedMalformed: 6,
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(6, 1), Amount: amount("1.5")},
			},
		},
		{
			name:              "TestTransactions_AmountOutOfRange",
			input:             "type,client,tx,amount\ndeposit,1,1,1.5\ndeposit,1,2,1e20000000\ndeposit,1,3,79228162514264337593543950336\ndispute,1,1,1e-20000000\n",
			expectedMalformed: 3,
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(1, 1), Amount: amount("1.5")},
			},
		},
		{
			name:  "TestTransactions_ByteOrderMark",
			input: "\ufefftype,client,tx,amount\ndeposit,1,1,2\n",
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(1, 1), Amount: amount("2")},
			},
		},
		{
			name:              "TestTransactions_BareQuote",
			input:             "type,client,tx,amount\ndeposit,1,1,1\"0\ndeposit,1,2,1\n",
			expectedMalformed: 1,
			expected: []entities.Transaction{
				entities.Deposit{TransactionMeta: meta(2, 1), Amount: amount("1")},
			},
		},
		{
			name:     "TestTransactions_HeaderOnly",
			input:    "type,client,tx,amount\n",
			expected: nil,
		},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			result := readAll(t, testRun.input)

			assert.Equal(t, testRun.expectedMalformed, result.malformed)
			if diff := cmp.Diff(testRun.expected, result.transactions); diff != "" {
				t.Fatalf("Unexpected result: %v", diff)
			}
		})
	}
}

func TestReader_KeepsAmountPrecision(t *testing.T) {
	result := readAll(t, "type,client,tx,amount\ndeposit,1,1,0.12345\n")
	require.Len(t, result.transactions, 1)

	deposit, ok := result.transactions[0].(entities.Deposit)
	require.True(t, ok)
	assert.Equal(t, "0.12345", deposit.Amount.Decimal.String())
}

func TestReader_InvalidHeader(t *testing.T) {

	testData := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "wrong columns", input: "kind,client,tx,amount\ndeposit,1,1,1\n"},
		{name: "data row first", input: "deposit,1,1,1.0\n"},
		{name: "too short", input: "type,client\n"},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(testRun.input))
			require.Error(t, err)
		})
	}
}

type failingReader struct {
	data string
	read bool
}

var errRead = errors.New("read failure")

func (fr *failingReader) Read(p []byte) (int, error) {
	if fr.read {
		return 0, errRead
	}
	fr.read = true
	return copy(p, fr.data), nil
}

func TestReader_ReadErrorStopsSequence(t *testing.T) {
	reader, err := NewReader(&failingReader{data: "type,client,tx,amount\n"})
	require.NoError(t, err)

	var errs []error
	for _, err := range reader.Transactions() {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errRead)
	assert.NotErrorIs(t, errs[0], entities.ErrMalformedRecord)
}

func TestReader_StopsWhenConsumerStops(t *testing.T) {
	reader, err := NewReader(strings.NewReader("type,client,tx,amount\ndeposit,1,1,1\ndeposit,1,2,1\ndeposit,1,3,1\n"))
	require.NoError(t, err)

	count := 0
	for range reader.Transactions() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}
