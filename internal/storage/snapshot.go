package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// dateLayout matches JavaScript's Date.prototype.toISOString.
const dateLayout = "2006-01-02T15:04:05.000Z07:00"

type snapshotJSON struct {
	InitialBalance *json.Number      `json:"initialBalance"`
	Transactions   []transactionJSON `json:"transactions"`
	Currency       string            `json:"currency"`
}

type transactionJSON struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
}

// EncodeSnapshot serializes data in the persisted layout:
// {"initialBalance": number|null, "transactions": [...], "currency": "USD"}.
func EncodeSnapshot(data core.FinanceData) ([]byte, error) {
	out := snapshotJSON{
		Transactions: make([]transactionJSON, 0, len(data.Transactions)),
		Currency:     data.Currency,
	}
	if data.InitialBalance != nil {
		n := json.Number(data.InitialBalance.String())
		out.InitialBalance = &n
	}
	for _, tx := range data.Transactions {
		out.Transactions = append(out.Transactions, transactionJSON{
			ID:       tx.ID,
			Type:     string(tx.Type),
			Amount:   json.Number(tx.Amount.String()),
			Category: tx.Category,
			Date:     tx.Date.UTC().Format(dateLayout),
		})
	}
	return json.Marshal(out)
}

// DecodeSnapshot parses a persisted blob. A missing currency becomes
// core.DefaultCurrency; any malformed field fails the whole decode.
func DecodeSnapshot(raw []byte) (core.FinanceData, error) {
	var in snapshotJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return core.FinanceData{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	data := core.FinanceData{
		Transactions: make([]core.Transaction, 0, len(in.Transactions)),
		Currency:     in.Currency,
	}
	if data.Currency == "" {
		data.Currency = core.DefaultCurrency
	}
	if in.InitialBalance != nil {
		v, err := decimal.NewFromString(in.InitialBalance.String())
		if err == nil {
			err = core.CheckAmount(v)
		}
		if err != nil {
			return core.FinanceData{}, fmt.Errorf("initial balance %q: %w", in.InitialBalance.String(), err)
		}
		data.InitialBalance = &v
	}

	for i, t := range in.Transactions {
		typ, err := core.ParseTransactionType(t.Type)
		if err != nil {
			return core.FinanceData{}, fmt.Errorf("transaction %d type %q: %w", i, t.Type, err)
		}
		amount, err := decimal.NewFromString(t.Amount.String())
		if err == nil {
			err = core.CheckAmount(amount)
		}
		if err != nil {
			return core.FinanceData{}, fmt.Errorf("transaction %d amount %q: %w", i, t.Amount.String(), err)
		}
		at, err := time.Parse(time.RFC3339Nano, t.Date)
		if err != nil {
			return core.FinanceData{}, fmt.Errorf("transaction %d date %q: %w", i, t.Date, err)
		}
		data.Transactions = append(data.Transactions, core.Transaction{
			ID:       t.ID,
			Type:     typ,
			Amount:   amount,
			Category: t.Category,
			Date:     at,
		})
	}
	return data, nil
}
