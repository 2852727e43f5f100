package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors the ledger into an external sheet.
	TransactionExporter interface {
		// AppendTransaction writes one row. Appending an id that is already
		// present is a no-op that returns the existing row reference.
		AppendTransaction(ctx context.Context, tx core.Transaction, currency string) (rowRef string, err error)
		// ReplaceTransactions rewrites the sheet from a full snapshot.
		ReplaceTransactions(ctx context.Context, data core.FinanceData) error
		// ClearTransactions removes every data row and keeps the header.
		ClearTransactions(ctx context.Context) error
	}

	// TransactionLister reads exported rows back.
	TransactionLister interface {
		ListTransactions(ctx context.Context) ([]Row, error)
	}
)

// Row is one exported transaction as it appears in the sheet.
type Row struct {
	ID       string
	Date     string
	Type     string
	Category string
	Amount   string
	Currency string
}

// Header is the first row of the transactions sheet.
var Header = []string{"ID", "Date", "Type", "Category", "Amount", "Currency"}

// DateLayout is how transaction timestamps are written to the sheet.
const DateLayout = "2006-01-02 15:04:05"

// RowFromTransaction renders tx in the sheet layout.
func RowFromTransaction(tx core.Transaction, currency string) Row {
	return Row{
		ID:       tx.ID,
		Date:     tx.Date.UTC().Format(DateLayout),
		Type:     tx.Type.String(),
		Category: tx.Category,
		Amount:   tx.Amount.String(),
		Currency: currency,
	}
}

// Values returns the cells in column order.
func (r Row) Values() []any {
	return []any{r.ID, r.Date, r.Type, r.Category, r.Amount, r.Currency}
}
