package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCurrency is applied on reset and when persisted data carries no currency.
const DefaultCurrency = "USD"

type (
	TransactionType string

	// Transaction is an immutable ledger entry. Amount is non-negative as
	// entered; the sign comes from Type.
	Transaction struct {
		ID       string
		Type     TransactionType
		Amount   decimal.Decimal
		Category string
		Date     time.Time
	}

	// FinanceData is the whole persisted state. A nil InitialBalance means
	// the balance was never set and aggregates treat it as zero.
	FinanceData struct {
		InitialBalance *decimal.Decimal
		Transactions   []Transaction
		Currency       string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrMissingAmount     = errors.New("missing amount")
	ErrMissingCategory   = errors.New("missing category")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrResetNotConfirmed = errors.New("reset not confirmed")
	ErrInvalidDateRange  = errors.New("invalid date range")
)

// IsValid reports whether t is one of the two known transaction types.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string { return string(t) }

// ParseTransactionType accepts the lowercase wire names.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// Signed returns the amount with the sign applied to the running balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Category == "" {
		return ErrMissingCategory
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// DefaultFinanceData returns the state used on first start and after reset.
func DefaultFinanceData() FinanceData {
	return FinanceData{
		InitialBalance: nil,
		Transactions:   []Transaction{},
		Currency:       DefaultCurrency,
	}
}

// InitialOrZero returns the initial balance, treating an unset one as zero.
func (d FinanceData) InitialOrZero() decimal.Decimal {
	if d.InitialBalance == nil {
		return decimal.Zero
	}
	return *d.InitialBalance
}

// Clone returns a deep copy safe to hand to readers.
func (d FinanceData) Clone() FinanceData {
	out := FinanceData{Currency: d.Currency}
	if d.InitialBalance != nil {
		v := *d.InitialBalance
		out.InitialBalance = &v
	}
	out.Transactions = make([]Transaction, len(d.Transactions))
	copy(out.Transactions, d.Transactions)
	return out
}
