package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

type (
	initialBalanceRequest struct {
		Amount flexString `json:"amount" validate:"required"`
	}

	transactionRequest struct {
		Type     string     `json:"type" validate:"required,oneof=income expense"`
		Amount   flexString `json:"amount" validate:"required"`
		Category string     `json:"category" validate:"required,max=100"`
	}

	currencyRequest struct {
		Currency string `json:"currency" validate:"required,len=3,alpha"`
	}

	resetRequest struct {
		Confirm bool `json:"confirm"`
	}
)

type (
	transactionDTO struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Amount    string `json:"amount"`
		Formatted string `json:"formatted"`
		Category  string `json:"category"`
		Date      string `json:"date"`
	}

	categoryDTO struct {
		Category  string `json:"category"`
		Amount    string `json:"amount"`
		Formatted string `json:"formatted"`
	}

	trendDTO struct {
		Month    string `json:"month"`
		Label    string `json:"label"`
		Income   string `json:"income"`
		Expenses string `json:"expenses"`
	}

	savingsDTO struct {
		Month   string `json:"month"`
		Label   string `json:"label"`
		Balance string `json:"balance"`
	}

	summaryDTO struct {
		Range            string           `json:"range"`
		GeneratedAt      string           `json:"generatedAt"`
		Currency         string           `json:"currency"`
		Balance          string           `json:"balance"`
		BalanceFormatted string           `json:"balanceFormatted"`
		Income           string           `json:"income"`
		Expenses         string           `json:"expenses"`
		Net              string           `json:"net"`
		ByCategory       []categoryDTO    `json:"byCategory"`
		Trend            []trendDTO       `json:"trend"`
		Savings          []savingsDTO     `json:"savings"`
		Averages         averagesDTO      `json:"averages"`
		Transactions     []transactionDTO `json:"transactions"`
	}

	averagesDTO struct {
		Income   string `json:"income"`
		Expenses string `json:"expenses"`
		Months   int    `json:"months"`
	}
)

// apiData returns the ledger in its persisted layout.
func (s *Server) apiData(w http.ResponseWriter, r *http.Request) {
	raw, err := storage.EncodeSnapshot(s.ledger.Snapshot())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Encode snapshot failed", log.FieldError, err, log.FieldOperation, log.OpExport)
		writeJSONError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.apiRange(w, r)
	if !ok {
		return
	}
	rep := s.ledger.Report(r.Context(), rng)
	writeJSON(w, http.StatusOK, s.summaryDTO(rep))
}

func (s *Server) apiTransactions(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.apiRange(w, r)
	if !ok {
		return
	}
	rep := s.ledger.Report(r.Context(), rng)
	writeJSON(w, http.StatusOK, s.transactionDTOs(report.Recent(rep.Transactions), rep.Currency))
}

func (s *Server) apiCurrencies(w http.ResponseWriter, _ *http.Request) {
	type currencyDTO struct {
		Code   string `json:"code"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
		Label  string `json:"label"`
	}
	out := []currencyDTO{}
	for _, c := range core.Currencies() {
		out = append(out, currencyDTO{Code: c.Code, Symbol: c.Symbol, Name: c.Name, Label: c.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiRanges(w http.ResponseWriter, _ *http.Request) {
	type rangeDTO struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	out := []rangeDTO{}
	for _, o := range core.DateRanges() {
		out = append(out, rangeDTO{Value: string(o.Value), Label: o.Label})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		string(core.Income):  core.SuggestedCategories(core.Income),
		string(core.Expense): core.SuggestedCategories(core.Expense),
	})
}

func (s *Server) apiSetInitialBalance(w http.ResponseWriter, r *http.Request) {
	var req initialBalanceRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	amount, err := s.ledger.SetInitialBalance(r.Context(), string(req.Amount))
	if err != nil {
		s.apiMutationError(w, r, log.OpSetInitialBalance, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"initialBalance": amount.String()})
}

func (s *Server) apiAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	tx, err := s.ledger.AddTransaction(r.Context(), core.TransactionType(req.Type), string(req.Amount), stripControl(req.Category))
	if err != nil {
		s.apiMutationError(w, r, log.OpAddTransaction, err)
		return
	}
	currency := s.ledger.Snapshot().Currency
	writeJSON(w, http.StatusCreated, s.transactionDTO(tx, currency))
}

func (s *Server) apiChangeCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.ledger.ChangeCurrency(r.Context(), req.Currency); err != nil {
		s.apiMutationError(w, r, log.OpChangeCurrency, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"currency": s.ledger.Snapshot().Currency})
}

func (s *Server) apiReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := s.ledger.Reset(r.Context(), req.Confirm); err != nil {
		s.apiMutationError(w, r, log.OpReset, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiRange(w http.ResponseWriter, r *http.Request) (core.DateRange, bool) {
	rng, err := core.ParseDateRange(strings.TrimSpace(r.URL.Query().Get("range")))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return rng, true
}

// decodeAndValidate decodes a JSON body into dst and runs validator tags.
// It writes the 400 response itself and reports whether to continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
			return false
		}
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) apiMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.FromContext(r.Context())
	if isDomainError(err) {
		logger.DebugContext(r.Context(), "Mutation ignored", log.FieldOperation, op, log.FieldError, err)
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	logger.ErrorContext(r.Context(), "Mutation failed", log.FieldOperation, op, log.FieldError, err)
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) summaryDTO(rep report.Report) summaryDTO {
	cur := rep.Currency
	out := summaryDTO{
		Range:            string(rep.Range),
		GeneratedAt:      rep.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Currency:         cur,
		Balance:          rep.Balance.String(),
		BalanceFormatted: core.FormatAmount(rep.Balance, cur),
		Income:           rep.Totals.Income.String(),
		Expenses:         rep.Totals.Expenses.String(),
		Net:              rep.Totals.Net().String(),
		ByCategory:       []categoryDTO{},
		Trend:            []trendDTO{},
		Savings:          []savingsDTO{},
		Averages: averagesDTO{
			Income:   rep.Averages.Income.StringFixed(2),
			Expenses: rep.Averages.Expenses.StringFixed(2),
			Months:   rep.Averages.Months,
		},
		Transactions: s.transactionDTOs(report.Recent(rep.Transactions), cur),
	}
	for _, c := range rep.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryDTO{
			Category: c.Category, Amount: c.Amount.String(), Formatted: core.FormatAmount(c.Amount, cur),
		})
	}
	for _, p := range rep.Trend {
		out.Trend = append(out.Trend, trendDTO{
			Month: p.Month.String(), Label: p.Month.Label(),
			Income: p.Income.String(), Expenses: p.Expenses.String(),
		})
	}
	for _, p := range rep.Savings {
		out.Savings = append(out.Savings, savingsDTO{
			Month: p.Month.String(), Label: p.Month.Label(), Balance: p.Balance.String(),
		})
	}
	return out
}

func (s *Server) transactionDTOs(txs []core.Transaction, currency string) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, s.transactionDTO(tx, currency))
	}
	return out
}

func (s *Server) transactionDTO(tx core.Transaction, currency string) transactionDTO {
	return transactionDTO{
		ID:        tx.ID,
		Type:      tx.Type.String(),
		Amount:    tx.Amount.String(),
		Formatted: core.FormatAmount(tx.Amount, currency),
		Category:  tx.Category,
		Date:      tx.Date.In(s.location).Format("2006-01-02T15:04:05Z07:00"),
	}
}
