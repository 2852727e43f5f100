package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EventType names a ledger change.
type EventType string

const (
	EventTransactionAdded  EventType = "transaction.added"
	EventInitialBalanceSet EventType = "initial_balance.set"
	EventCurrencyChanged   EventType = "currency.changed"
	EventDataReset         EventType = "data.reset"
)

// TransactionPayload is the wire form of a transaction inside an event.
// Amount is a decimal string so no precision is lost in transit.
type TransactionPayload struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Amount   string    `json:"amount"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
}

// LedgerEvent is published after every applied mutation. Consumers get
// enough data to mirror the ledger without reading the store.
type LedgerEvent struct {
	ID             string              `json:"id"`
	Type           EventType           `json:"type"`
	Currency       string              `json:"currency"`
	InitialBalance *string             `json:"initialBalance,omitempty"`
	Transaction    *TransactionPayload `json:"transaction,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

func newEvent(t EventType, currency string) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Currency:  currency,
		Timestamp: time.Now().UTC(),
	}
}

func NewTransactionAddedEvent(tx core.Transaction, currency string) *LedgerEvent {
	e := newEvent(EventTransactionAdded, currency)
	e.Transaction = &TransactionPayload{
		ID:       tx.ID,
		Type:     string(tx.Type),
		Amount:   tx.Amount.String(),
		Category: tx.Category,
		Date:     tx.Date.UTC(),
	}
	return e
}

func NewInitialBalanceSetEvent(data core.FinanceData) *LedgerEvent {
	e := newEvent(EventInitialBalanceSet, data.Currency)
	if data.InitialBalance != nil {
		v := data.InitialBalance.String()
		e.InitialBalance = &v
	}
	return e
}

func NewCurrencyChangedEvent(currency string) *LedgerEvent {
	return newEvent(EventCurrencyChanged, currency)
}

func NewDataResetEvent() *LedgerEvent {
	return newEvent(EventDataReset, core.DefaultCurrency)
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventTransactionAdded:
		if e.Transaction == nil {
			return nil, fmt.Errorf("event %s: missing transaction", e.ID)
		}
	case EventInitialBalanceSet, EventCurrencyChanged, EventDataReset:
	default:
		return nil, fmt.Errorf("event %s: unknown type %q", e.ID, e.Type)
	}
	return &e, nil
}

// CoreTransaction converts the payload back into a domain transaction.
func (p TransactionPayload) CoreTransaction() (core.Transaction, error) {
	typ, err := core.ParseTransactionType(p.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{ID: p.ID, Type: typ, Amount: amount, Category: p.Category, Date: p.Date}, nil
}
