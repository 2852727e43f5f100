package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["storage"] = "not_checked"
	default:
		if err := s.ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	checks["rate_limiter_clients"] = strconv.Itoa(s.rateLimiter.ActiveClients())

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rng := parseRange(r)
	rep := s.ledger.Report(r.Context(), rng)
	snap := s.ledger.Snapshot()

	data := indexView{
		Range:            string(rng),
		Ranges:           rangeOptions(rng),
		Currencies:       currencyOptions(snap.Currency),
		ExpenseSuggested: core.SuggestedCategories(core.Expense),
		IncomeSuggested:  core.SuggestedCategories(core.Income),
		Summary:          newSummaryView(rep, snap.InitialBalance != nil),
		Transactions:     newTransactionsView(rep, s.location),
	}
	s.render(w, r, "index.html", data)
}

// handleSummaryPartial renders balance cards, totals, averages and chart data.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	rep := s.ledger.Report(r.Context(), parseRange(r))
	initialSet := s.ledger.Snapshot().InitialBalance != nil
	s.render(w, r, "summary.html", newSummaryView(rep, initialSet))
}

// handleTransactionsPartial renders the recent transactions table.
func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	rep := s.ledger.Report(r.Context(), parseRange(r))
	s.render(w, r, "transactions.html", newTransactionsView(rep, s.location))
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSetInitialBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	amount, err := s.ledger.SetInitialBalance(r.Context(), p.Get("amount"))
	if err != nil {
		s.ignored(w, r, log.OpSetInitialBalance, err)
		return
	}
	currency := s.ledger.Snapshot().Currency
	NewHTMXResponse().
		TriggerLedgerChanged(log.OpSetInitialBalance).
		TriggerFormReset().
		TriggerSuccessNotification("Initial balance set to " + core.FormatAmount(amount, currency)).
		Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	typ := core.TransactionType(strings.ToLower(p.Get("type")))
	tx, err := s.ledger.AddTransaction(r.Context(), typ, p.Get("amount"), p.GetRaw("category"))
	if err != nil {
		s.ignored(w, r, log.OpAddTransaction, err)
		return
	}
	currency := s.ledger.Snapshot().Currency
	NewHTMXResponse().
		TriggerLedgerChanged(log.OpAddTransaction).
		TriggerFormReset().
		TriggerSuccessNotification("Added " + tx.Type.String() + " " + core.FormatAmount(tx.Amount, currency) + " (" + tx.Category + ")").
		Write(w)
}

func (s *Server) handleChangeCurrency(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	if err := s.ledger.ChangeCurrency(r.Context(), p.Get("currency")); err != nil {
		s.ignored(w, r, log.OpChangeCurrency, err)
		return
	}
	NewHTMXResponse().TriggerLedgerChanged(log.OpChangeCurrency).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	if err := s.ledger.Reset(r.Context(), isConfirmed(p.Get("confirm"))); err != nil {
		s.ignored(w, r, log.OpReset, err)
		return
	}
	NewHTMXResponse().
		TriggerLedgerChanged(log.OpReset).
		TriggerSuccessNotification("All data has been reset").
		Write(w)
}

func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Parse body error", log.FieldError, err, log.FieldPath, r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return nil, false
	}
	return p, true
}

// ignored answers a mutation whose input was rejected. The UI treats it as
// a silent no-op.
func (s *Server) ignored(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.FromContext(r.Context())
	if !isDomainError(err) {
		logger.ErrorContext(r.Context(), "Mutation failed", log.FieldOperation, op, log.FieldError, err)
		InternalServerError("Something went wrong").Write(w)
		return
	}
	logger.DebugContext(r.Context(), "Mutation ignored", log.FieldOperation, op, log.FieldError, err)
	NoChange().Write(w)
}

var domainErrors = []error{
	core.ErrInvalidAmount,
	core.ErrMissingAmount,
	core.ErrMissingCategory,
	core.ErrInvalidType,
	core.ErrUnknownCurrency,
	core.ErrResetNotConfirmed,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
