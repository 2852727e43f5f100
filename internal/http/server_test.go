package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv    *Server
	ledger *services.FinanceService
	store  *storage.SnapshotStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := storage.NewSnapshotStore(memory.New(), "finance_tracker_v2", log.Discard().Slog())
	engine := report.NewEngine(core.FixedClock(testNow), time.UTC)
	ledger := services.NewFinanceService(store, engine, services.WithLogger(log.Discard()))
	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	opts.Ledger = ledger
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	opts.Location = time.UTC
	srv := NewServer(":0", opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, ledger: ledger, store: store}
}

func (e *testEnv) do(method, target, body, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, form.Encode(), "application/x-www-form-urlencoded")
}

func (e *testEnv) postJSON(method, target, body string) *httptest.ResponseRecorder {
	return e.do(method, target, body, "application/json")
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.do(http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Finance Tracker",
		"Set Initial Balance",
		"No transactions found for the selected time range",
		`<option value="all" selected>All Time</option>`,
		"$0.00",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyReportsStorageFailure(t *testing.T) {
	env := newTestEnv(t, Options{Ready: func(context.Context) error { return errors.New("redis down") }})

	rr := env.do(http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "redis down") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestFormMutations(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.postForm("/initial-balance", url.Values{"amount": {"1000"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("initial balance status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), EventLedgerChanged) {
		t.Errorf("missing ledger:changed trigger: %q", rr.Header().Get("HX-Trigger"))
	}

	rr = env.postForm("/transactions", url.Values{"type": {"expense"}, "amount": {"200"}, "category": {"Food"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("add transaction status=%d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/ui/transactions", "", "")
	if !strings.Contains(rr.Body.String(), "Food") || !strings.Contains(rr.Body.String(), "Mar 15, 2024") {
		t.Errorf("transactions partial missing row: %s", rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/ui/summary", "", "")
	body := rr.Body.String()
	if !strings.Contains(body, "$800.00") {
		t.Errorf("summary missing balance: %s", body)
	}
	if strings.Contains(body, "Set Initial Balance") {
		t.Error("initial balance form must be hidden once set")
	}
	if !strings.Contains(body, `"labels":["Mar 2024"]`) {
		t.Errorf("chart data missing trend label: %s", body)
	}

	rr = env.postForm("/currency", url.Values{"currency": {"EUR"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("currency status=%d", rr.Code)
	}
	if env.ledger.Snapshot().Currency != "EUR" {
		t.Errorf("currency = %q", env.ledger.Snapshot().Currency)
	}
}

func TestFormCategoryKeptAsEntered(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.postForm("/transactions", url.Values{"type": {"expense"}, "amount": {"3"}, "category": {" Food "}})
	if rr.Code != http.StatusOK {
		t.Fatalf("add transaction status=%d", rr.Code)
	}
	txs := env.ledger.Snapshot().Transactions
	if len(txs) != 1 || txs[0].Category != " Food " {
		t.Fatalf("transactions = %+v", txs)
	}
}

func TestFormMutationsIgnoreInvalidInput(t *testing.T) {
	env := newTestEnv(t, Options{})

	cases := []struct {
		path string
		form url.Values
	}{
		{"/initial-balance", url.Values{"amount": {"abc"}}},
		{"/transactions", url.Values{"type": {"expense"}, "amount": {""}, "category": {"Food"}}},
		{"/transactions", url.Values{"type": {"expense"}, "amount": {"10"}, "category": {""}}},
		{"/transactions", url.Values{"type": {"expense"}, "amount": {"1e999999999"}, "category": {"Food"}}},
		{"/transactions", url.Values{"type": {"transfer"}, "amount": {"10"}, "category": {"Food"}}},
		{"/currency", url.Values{"currency": {"XYZ"}}},
		{"/reset", url.Values{}},
		{"/reset", url.Values{"confirm": {"no"}}},
	}
	for _, tc := range cases {
		rr := env.postForm(tc.path, tc.form)
		if rr.Code != http.StatusNoContent {
			t.Errorf("%s %v: status=%d, want 204", tc.path, tc.form, rr.Code)
		}
		if rr.Header().Get("HX-Trigger") != "" {
			t.Errorf("%s %v: no-op must not trigger refresh", tc.path, tc.form)
		}
	}
	if env.ledger.Revision() != 1 {
		t.Errorf("revision = %d, want only the initial load", env.ledger.Revision())
	}
}

func TestFormReset(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.postForm("/transactions", url.Values{"type": {"income"}, "amount": {"50"}, "category": {"Gift"}})

	rr := env.postForm("/reset", url.Values{"confirm": {"yes"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rr.Code)
	}
	if got := env.ledger.Snapshot(); len(got.Transactions) != 0 || got.Currency != core.DefaultCurrency {
		t.Errorf("ledger not reset: %+v", got)
	}
}

func TestAPI_TransactionsAndSummary(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.postJSON(http.MethodPost, "/api/initial-balance", `{"amount": 1000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("initial balance status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.postJSON(http.MethodPost, "/api/transactions", `{"type":"income","amount":"500","category":"Salary"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	var tx transactionDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tx.ID == "" || tx.Formatted != "$500.00" {
		t.Errorf("unexpected transaction %+v", tx)
	}
	env.postJSON(http.MethodPost, "/api/transactions", `{"type":"expense","amount":"200","category":"Food"}`)
	env.postJSON(http.MethodPost, "/api/transactions", `{"type":"expense","amount":"100","category":"Food"}`)

	rr = env.do(http.MethodGet, "/api/summary?range=all", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var sum summaryDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Balance != "1200" || sum.BalanceFormatted != "$1,200.00" {
		t.Errorf("balance = %s (%s)", sum.Balance, sum.BalanceFormatted)
	}
	if len(sum.ByCategory) != 1 || sum.ByCategory[0].Category != "Food" || sum.ByCategory[0].Amount != "300" {
		t.Errorf("byCategory = %+v", sum.ByCategory)
	}
	if sum.Averages.Expenses != "300.00" || sum.Averages.Months != 1 {
		t.Errorf("averages = %+v", sum.Averages)
	}

	rr = env.do(http.MethodGet, "/api/transactions?range=7", "", "")
	var txs []transactionDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions", len(txs))
	}

	rr = env.do(http.MethodGet, "/api/data", "", "")
	data, err := storage.DecodeSnapshot(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("api/data is not in the persisted layout: %v", err)
	}
	if len(data.Transactions) != 3 || data.InitialBalance == nil {
		t.Errorf("data = %+v", data)
	}
}

func TestAPI_ValidationAndDomainErrors(t *testing.T) {
	env := newTestEnv(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing category", http.MethodPost, "/api/transactions", `{"type":"expense","amount":"5"}`, http.StatusBadRequest},
		{"bad type", http.MethodPost, "/api/transactions", `{"type":"gift","amount":"5","category":"x"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/transactions", `{"type":"expense","amount":"5","category":"x","note":1}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/initial-balance", `{"amount":`, http.StatusBadRequest},
		{"unparseable amount", http.MethodPost, "/api/transactions", `{"type":"expense","amount":"abc","category":"x"}`, http.StatusUnprocessableEntity},
		{"amount out of range", http.MethodPost, "/api/transactions", `{"type":"expense","amount":"1e999999999","category":"x"}`, http.StatusUnprocessableEntity},
		{"unknown currency", http.MethodPut, "/api/currency", `{"currency":"XYZ"}`, http.StatusUnprocessableEntity},
		{"currency shape", http.MethodPut, "/api/currency", `{"currency":"EURO"}`, http.StatusBadRequest},
		{"reset without confirm", http.MethodPost, "/api/reset", `{}`, http.StatusUnprocessableEntity},
		{"reset confirmed", http.MethodPost, "/api/reset", `{"confirm":true}`, http.StatusNoContent},
		{"currency ok", http.MethodPut, "/api/currency", `{"currency":"gbp"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.postJSON(tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	rr := env.do(http.MethodGet, "/api/summary?range=bogus", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad range status=%d", rr.Code)
	}
}

func TestAPI_Lookups(t *testing.T) {
	env := newTestEnv(t, Options{})

	rr := env.do(http.MethodGet, "/api/currencies", "", "")
	var cur []map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &cur); err != nil || len(cur) != len(core.Currencies()) {
		t.Fatalf("currencies: %v %s", err, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/ranges", "", "")
	var ranges []map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &ranges); err != nil || ranges[len(ranges)-1]["value"] != "all" {
		t.Fatalf("ranges: %v %s", err, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/api/categories", "", "")
	var cats map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &cats); err != nil || cats["income"][0] != "Salary" {
		t.Fatalf("categories: %v %s", err, rr.Body.String())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	m := metrics.New()
	env := newTestEnv(t, Options{RateLimitPerMinute: 1, Metrics: m})

	form := url.Values{"type": {"income"}, "amount": {"1"}, "category": {"Gift"}}
	if rr := env.postForm("/transactions", form); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := env.postForm("/transactions", form)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	if rr := env.do(http.MethodGet, "/", "", ""); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/metrics", "", "")
	if !strings.Contains(rr.Body.String(), "fintrack_http_requests_total") {
		t.Errorf("metrics output missing request counter")
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	env := newTestEnv(t, Options{})
	if rr := env.do(http.MethodGet, "/.env", "", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, Options{})
	rr := env.do(http.MethodGet, "/static/app.js", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}
