package entities

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type ClientID uint16

// AmountPrecision is the number of fractional digits amounts are kept and
// rendered with.
const AmountPrecision = 4

// MaxAmount is the largest amount magnitude accepted, the range of a 96-bit
// mantissa.
var MaxAmount = decimal.RequireFromString("79228162514264337593543950335")

const (
	maxAmountScale  = 28
	maxAmountDigits = 29
)

// AmountInRange reports whether d is within MaxAmount in magnitude and has at
// most 28 fractional digits. Exponent and digit count are checked before any
// arithmetic, so a value like 1e20000000 is never expanded.
func AmountInRange(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp < -maxAmountScale {
		return false
	}
	if d.NumDigits()+exp > maxAmountDigits {
		return false
	}
	return d.Abs().LessThanOrEqual(MaxAmount)
}

type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

func NewAccount(client ClientID) Account {
	return Account{Client: client}
}

// Total is always derived, never stored.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Apply overwrites every field set in delta. The delta already holds the
// post-state, validation happened when it was produced.
func (a *Account) Apply(delta AccountDelta) {
	if delta.Available.Valid {
		a.Available = delta.Available.Decimal
	}
	if delta.Held.Valid {
		a.Held = delta.Held.Decimal
	}
	if delta.Locked != nil {
		a.Locked = *delta.Locked
	}
}

func (a Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Client:    a.Client,
		Available: a.Available.StringFixed(AmountPrecision),
		Held:      a.Held.StringFixed(AmountPrecision),
		Total:     a.Total().StringFixed(AmountPrecision),
		Locked:    a.Locked,
	}
}

// AccountDelta describes the changes one transaction makes to an account.
// Unset fields leave the account field as it is.
type AccountDelta struct {
	Available decimal.NullDecimal
	Held      decimal.NullDecimal
	Locked    *bool
}

func (d AccountDelta) IsEmpty() bool {
	return !d.Available.Valid && !d.Held.Valid && d.Locked == nil
}

func (d AccountDelta) WithAvailable(v decimal.Decimal) AccountDelta {
	d.Available = decimal.NewNullDecimal(v)
	return d
}

func (d AccountDelta) WithHeld(v decimal.Decimal) AccountDelta {
	d.Held = decimal.NewNullDecimal(v)
	return d
}

func (d AccountDelta) WithLocked(v bool) AccountDelta {
	d.Locked = &v
	return d
}

// AccountSnapshot is the serialised form of an account. Amounts carry exactly
// AmountPrecision fractional digits.
type AccountSnapshot struct {
	Client    ClientID `json:"client"`
	Available string   `json:"available"`
	Held      string   `json:"held"`
	Total     string   `json:"total"`
	Locked    bool     `json:"locked"`
}

// Record returns the snapshot as an output row in header order.
func (s AccountSnapshot) Record() []string {
	return []string{
		strconv.FormatUint(uint64(s.Client), 10),
		s.Available,
		s.Held,
		s.Total,
		strconv.FormatBool(s.Locked),
	}
}

var AccountSnapshotHeader = []string{"client", "available", "held", "total", "locked"}
