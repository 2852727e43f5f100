//go:build integration

package google

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Integration tests require a real spreadsheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_TransactionSheetFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" &&
		os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sheet := os.Getenv("GOOGLE_TEST_SHEET_NAME")
	if sheet == "" {
		sheet = "IntegrationTest"
	}
	client, err := New(ctx, spreadsheetID, sheet)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if err := client.ClearTransactions(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	id := strconv.FormatInt(time.Now().UnixMilli(), 10)
	tx := core.Transaction{
		ID:       id,
		Type:     core.Expense,
		Amount:   decimal.RequireFromString("12.34"),
		Category: "Integration",
		Date:     time.Now().UTC(),
	}
	ref, err := client.AppendTransaction(ctx, tx, "USD")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	t.Logf("appended at %s", ref)

	again, err := client.AppendTransaction(ctx, tx, "USD")
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if again != ref {
		t.Errorf("duplicate append moved row: %s vs %s", ref, again)
	}

	rows, err := client.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != id {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if err := client.ClearTransactions(ctx); err != nil {
		t.Fatalf("final clear: %v", err)
	}
}
