package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Store is an in-process stand-in for the transactions sheet. The worker
// falls back to it when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []ports.Row
}

var (
	_ ports.TransactionExporter = (*Store)(nil)
	_ ports.TransactionLister   = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction, currency string) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == tx.ID {
			return ref(i), nil
		}
	}
	s.rows = append(s.rows, ports.RowFromTransaction(tx, currency))
	return ref(len(s.rows) - 1), nil
}

func (s *Store) ReplaceTransactions(_ context.Context, data core.FinanceData) error {
	rows := make([]ports.Row, 0, len(data.Transactions))
	for _, tx := range data.Transactions {
		rows = append(rows, ports.RowFromTransaction(tx, data.Currency))
	}
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
	return nil
}

func (s *Store) ClearTransactions(context.Context) error {
	s.mu.Lock()
	s.rows = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) ListTransactions(context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Row(nil), s.rows...), nil
}

// ref mimics sheet coordinates; row 1 is the header.
func ref(i int) string {
	return fmt.Sprintf("mem:%d", i+2)
}
