package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
)

// SnapshotRepository persists the whole ledger as one object.
type SnapshotRepository interface {
	Load(ctx context.Context) (core.FinanceData, error)
	Save(ctx context.Context, data core.FinanceData) error
	Clear(ctx context.Context) error
}

// EventPublisher receives a ledger event after each applied mutation.
type EventPublisher interface {
	Publish(ctx context.Context, evt *amqp.LedgerEvent) error
}

const (
	reportCacheSize = 16

	// persistTimeout bounds a snapshot write once the mutation is applied.
	persistTimeout = 10 * time.Second
)

// FinanceService owns the in-memory ledger. Mutations are serialized and
// each one is followed by a full rewrite of the snapshot; reads work on
// copies.
type FinanceService struct {
	repo      SnapshotRepository
	engine    *report.Engine
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	structlog *log.StructuredLogger

	reports  *cache.LRUCache[report.Report]
	flights  singleflight.Group
	cacheTTL time.Duration

	mu       sync.RWMutex
	data     core.FinanceData
	revision uint64
	lastID   int64
}

// Option configures a FinanceService.
type Option func(*FinanceService)

func WithPublisher(p EventPublisher) Option {
	return func(s *FinanceService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FinanceService) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *FinanceService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// WithReportCache memoizes the all-time report for ttl. Zero disables it.
func WithReportCache(ttl time.Duration) Option {
	return func(s *FinanceService) { s.cacheTTL = ttl }
}

func NewFinanceService(repo SnapshotRepository, engine *report.Engine, opts ...Option) *FinanceService {
	s := &FinanceService{
		repo:   repo,
		engine: engine,
		logger: log.FromSlog(nil, log.ComponentLedger),
		data:   core.DefaultFinanceData(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.structlog = log.NewStructuredLogger(s.logger)
	if s.cacheTTL > 0 {
		s.reports = cache.NewLRUCache[report.Report](reportCacheSize, s.cacheTTL)
	}
	return s
}

// ReportCache exposes the report cache so it can be registered for
// periodic cleanup. Nil when caching is disabled.
func (s *FinanceService) ReportCache() *cache.LRUCache[report.Report] {
	return s.reports
}

// Load replaces the in-memory ledger with the persisted one.
func (s *FinanceService) Load(ctx context.Context) error {
	data, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	s.mu.Lock()
	s.data = data
	s.lastID = maxNumericID(data.Transactions)
	s.bumpRevisionLocked()
	n := len(data.Transactions)
	s.mu.Unlock()

	s.metrics.SetTransactionCount(n)
	s.logger.InfoContext(ctx, "Ledger loaded",
		"transactions", n,
		log.FieldCurrency, data.Currency,
		"initial_balance_set", data.InitialBalance != nil)
	return nil
}

// Snapshot returns a copy of the current ledger.
func (s *FinanceService) Snapshot() core.FinanceData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// SetInitialBalance parses input and stores it as the opening balance.
// Unparseable input leaves the ledger untouched.
func (s *FinanceService) SetInitialBalance(ctx context.Context, input string) (decimal.Decimal, error) {
	amount, err := core.ParseAmount(input)
	if err != nil {
		s.metrics.Mutation(log.OpSetInitialBalance, false)
		return decimal.Zero, err
	}

	s.mu.Lock()
	s.data.InitialBalance = &amount
	snapshot := s.commitLocked(ctx)
	s.mu.Unlock()

	s.metrics.Mutation(log.OpSetInitialBalance, true)
	s.logger.InfoContext(ctx, "Initial balance set", log.FieldAmount, amount.String())
	s.publish(ctx, amqp.NewInitialBalanceSetEvent(snapshot))
	return amount, nil
}

// AddTransaction appends a new entry dated now. Amount and category are
// required; on any input error nothing changes.
func (s *FinanceService) AddTransaction(ctx context.Context, typ core.TransactionType, amountInput, category string) (core.Transaction, error) {
	tx, err := s.buildTransaction(typ, amountInput, category)
	if err != nil {
		s.metrics.Mutation(log.OpAddTransaction, false)
		return core.Transaction{}, err
	}

	s.mu.Lock()
	tx.ID = s.nextIDLocked(tx.Date)
	s.data.Transactions = append(s.data.Transactions, tx)
	snapshot := s.commitLocked(ctx)
	s.mu.Unlock()

	s.metrics.Mutation(log.OpAddTransaction, true)
	s.metrics.SetTransactionCount(len(snapshot.Transactions))
	s.structlog.LogTransactionAdded(ctx, tx.ID, tx.Type.String(), tx.Amount.String(), tx.Category)
	s.publish(ctx, amqp.NewTransactionAddedEvent(tx, snapshot.Currency))
	return tx, nil
}

func (s *FinanceService) buildTransaction(typ core.TransactionType, amountInput, category string) (core.Transaction, error) {
	if !typ.IsValid() {
		return core.Transaction{}, core.ErrInvalidType
	}
	if strings.TrimSpace(amountInput) == "" {
		return core.Transaction{}, core.ErrMissingAmount
	}
	if category == "" {
		return core.Transaction{}, core.ErrMissingCategory
	}
	amount, err := core.ParseAmount(amountInput)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:     typ,
		Amount:   amount,
		Category: category,
		Date:     s.engine.Now(),
	}, nil
}

// ChangeCurrency switches the display currency. Amounts are not converted.
func (s *FinanceService) ChangeCurrency(ctx context.Context, code string) error {
	opt, ok := core.LookupCurrency(code)
	if !ok {
		s.metrics.Mutation(log.OpChangeCurrency, false)
		return fmt.Errorf("%w: %q", core.ErrUnknownCurrency, code)
	}

	s.mu.Lock()
	s.data.Currency = opt.Code
	s.commitLocked(ctx)
	s.mu.Unlock()

	s.metrics.Mutation(log.OpChangeCurrency, true)
	s.logger.InfoContext(ctx, "Currency changed", log.FieldCurrency, opt.Code)
	s.publish(ctx, amqp.NewCurrencyChangedEvent(opt.Code))
	return nil
}

// Reset restores the defaults and deletes the persisted slot. It does
// nothing unless confirmed; resetting twice leaves the same state.
func (s *FinanceService) Reset(ctx context.Context, confirmed bool) error {
	if !confirmed {
		s.metrics.Mutation(log.OpReset, false)
		return core.ErrResetNotConfirmed
	}

	s.mu.Lock()
	s.data = core.DefaultFinanceData()
	s.lastID = 0
	s.bumpRevisionLocked()
	pctx, cancel := persistContext(ctx)
	err := s.repo.Clear(pctx)
	cancel()
	if err != nil {
		s.metrics.PersistFailed()
		s.structlog.LogError(ctx, "Failed to clear persisted ledger", err, log.ComponentStorage, log.OpReset, nil)
	}
	s.mu.Unlock()

	s.metrics.Mutation(log.OpReset, true)
	s.metrics.SetTransactionCount(0)
	s.logger.InfoContext(ctx, "Ledger reset")
	s.publish(ctx, amqp.NewDataResetEvent())
	return nil
}

// Report builds every derived view for r. The all-time report does not
// depend on the clock, so it is memoized per data revision.
func (s *FinanceService) Report(ctx context.Context, r core.DateRange) report.Report {
	s.mu.RLock()
	data := s.data.Clone()
	rev := s.revision
	s.mu.RUnlock()

	if r != core.RangeAll || s.reports == nil {
		return s.engine.Build(data, r)
	}

	key := fmt.Sprintf("%d:%s", rev, r)
	if rep, ok := s.reports.Get(key); ok {
		s.metrics.CacheLookup(true)
		rep.GeneratedAt = s.engine.Now()
		return rep
	}
	s.metrics.CacheLookup(false)

	v, _, _ := s.flights.Do(key, func() (any, error) {
		rep := s.engine.Build(data, r)
		s.reports.Set(key, rep)
		s.logger.DebugContext(ctx, "Report computed", log.FieldRange, string(r), log.FieldRevision, rev)
		return rep, nil
	})
	return v.(report.Report)
}

// Revision increases on every applied mutation.
func (s *FinanceService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// commitLocked persists the current state and invalidates cached reports.
// A failed write is logged; the in-memory ledger stays authoritative.
func (s *FinanceService) commitLocked(ctx context.Context) core.FinanceData {
	s.bumpRevisionLocked()
	snapshot := s.data.Clone()
	pctx, cancel := persistContext(ctx)
	defer cancel()
	if err := s.repo.Save(pctx, snapshot); err != nil {
		s.metrics.PersistFailed()
		s.structlog.LogError(ctx, "Failed to persist ledger", err, log.ComponentStorage, log.OpPersist, nil)
	}
	return snapshot
}

// persistContext detaches the write from the caller's cancellation: once
// memory has changed, the snapshot must follow even if the client is gone.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (s *FinanceService) bumpRevisionLocked() {
	s.revision++
	if s.reports != nil {
		s.reports.Purge()
	}
}

// nextIDLocked derives an id from the timestamp in milliseconds, bumped
// past the previous one so ids stay unique within the process.
func (s *FinanceService) nextIDLocked(at time.Time) string {
	id := at.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *FinanceService) publish(ctx context.Context, evt *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.metrics.PublishFailed()
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, string(evt.Type),
			log.FieldEventID, evt.ID,
			log.FieldError, err)
	}
}

func maxNumericID(txs []core.Transaction) int64 {
	var highest int64
	for _, tx := range txs {
		if n, err := strconv.ParseInt(tx.ID, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
