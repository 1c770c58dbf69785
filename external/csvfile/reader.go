package csvfile

import (
	"encoding/csv"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/qubic/ledger-replay/entities"
	"github.com/shopspring/decimal"
)

var TransactionHeader = []string{"type", "client", "tx", "amount"}

const byteOrderMark = "\ufeff"

const (
	typeColumn = iota
	clientColumn
	txColumn
	amountColumn
)

// Reader turns csv rows into transactions. The amount column may be empty or
// missing for disputes, resolves and chargebacks.
type Reader struct {
	csv *csv.Reader
}

// NewReader reads and checks the header. A missing or unexpected header is an
// error, the input is not a transaction file.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("reading header: empty input")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	return &Reader{csv: cr}, nil
}

// Transactions yields transactions in input order. Rows that cannot be
// interpreted yield an error wrapping entities.ErrMalformedRecord and reading
// goes on; any other error ends the sequence.
func (r *Reader) Transactions() iter.Seq2[entities.Transaction, error] {
	return func(yield func(entities.Transaction, error) bool) {
		for {
			record, err := r.csv.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if !yield(nil, errors.Wrap(entities.ErrMalformedRecord, parseErr.Error())) {
					return
				}
				continue
			}
			if err != nil {
				yield(nil, errors.Wrap(err, "reading transactions"))
				return
			}

			tx, err := parseRecord(record)
			if err != nil {
				line, _ := r.csv.FieldPos(0)
				err = errors.Wrapf(entities.ErrMalformedRecord, "line %d: %v", line, err)
			}
			if !yield(tx, err) {
				return
			}
		}
	}
}

func parseRecord(record []string) (entities.Transaction, error) {
	if len(record) < amountColumn {
		return nil, errors.Errorf("expected at least %d fields, got %d", amountColumn, len(record))
	}

	kind, err := entities.ParseTransactionKind(strings.ToLower(strings.TrimSpace(record[typeColumn])))
	if err != nil {
		return nil, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(record[clientColumn]), 10, 16)
	if err != nil {
		return nil, errors.Wrap(err, "parsing client")
	}

	txID, err := strconv.ParseUint(strings.TrimSpace(record[txColumn]), 10, 32)
	if err != nil {
		return nil, errors.Wrap(err, "parsing tx")
	}

	var amount decimal.NullDecimal
	if len(record) > amountColumn {
		if value := strings.TrimSpace(record[amountColumn]); value != "" {
			d, err := decimal.NewFromString(value)
			if err != nil {
				return nil, errors.Wrap(err, "parsing amount")
			}
			if !entities.AmountInRange(d) {
				return nil, errors.Errorf("amount %q out of range", value)
			}
			amount = decimal.NewNullDecimal(d)
		}
	}

	return entities.NewTransaction(kind, entities.TransactionID(txID), entities.ClientID(client), amount)
}

func checkHeader(header []string) error {
	if len(header) < len(TransactionHeader)-1 {
		return errors.Errorf("unexpected header %v", header)
	}
	for i, name := range header {
		if i >= len(TransactionHeader) {
			break
		}
		if i == 0 {
			name = strings.TrimPrefix(name, byteOrderMark)
		}
		if strings.ToLower(strings.TrimSpace(name)) != TransactionHeader[i] {
			return errors.Errorf("unexpected header column %d: %q, want %q", i+1, name, TransactionHeader[i])
		}
	}
	return nil
}
