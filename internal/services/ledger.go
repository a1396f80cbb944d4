// Package services holds the operations the display surface calls: reads
// served from per-table caches and writes routed to the ledger store.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capigastos/internal/cache"
	"capigastos/internal/core"
	"capigastos/internal/ledger"
	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// ChangePublisher is told about every successful write so other instances
// can drop their cached copy of the table.
type ChangePublisher interface {
	PublishChange(ctx context.Context, table sheets.Table, operation string) error
}

// Defaults for Options.
const (
	DefaultTransactionsTTL = 30 * time.Second
	DefaultReferenceTTL    = 10 * time.Minute
)

// DefaultUsers are the household members.
var DefaultUsers = []string{"Rodrigo", "Krys"}

// Options configures a LedgerService. Zero values fall back to defaults.
type Options struct {
	TransactionsTTL time.Duration
	ReferenceTTL    time.Duration
	Users           []string
	Location        *time.Location
	Logger          *log.Logger
	Publisher       ChangePublisher

	// Now and NewID are replaced by tests.
	Now   func() time.Time
	NewID func() string
}

// LedgerService owns the table caches and every read and write on them.
type LedgerService struct {
	store sheets.LedgerStore

	transactions *cache.ReadThrough[ledger.Book]
	accounts     *cache.ReadThrough[[]core.Account]
	budgets      *cache.ReadThrough[[]core.Budget]
	pending      *cache.ReadThrough[[]core.PendingPayment]
	caches       *cache.Group

	users     []string
	loc       *time.Location
	now       func() time.Time
	newID     func() string
	logger    *log.Logger
	publisher ChangePublisher
}

// NewLedgerService builds the service over store, which is expected to be
// wrapped with retries already.
func NewLedgerService(store sheets.LedgerStore, opts Options) *LedgerService {
	if opts.TransactionsTTL <= 0 {
		opts.TransactionsTTL = DefaultTransactionsTTL
	}
	if opts.ReferenceTTL <= 0 {
		opts.ReferenceTTL = DefaultReferenceTTL
	}
	if len(opts.Users) == 0 {
		opts.Users = DefaultUsers
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &LedgerService{
		store:     store,
		users:     append([]string(nil), opts.Users...),
		loc:       opts.Location,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    opts.Logger.WithComponent(log.ComponentLedger),
		publisher: opts.Publisher,
	}
	s.transactions = cache.NewReadThrough(sheets.Transactions.String(), opts.TransactionsTTL, s.loadBook)
	s.accounts = cache.NewReadThrough(sheets.Accounts.String(), opts.ReferenceTTL, s.loadAccounts)
	s.budgets = cache.NewReadThrough(sheets.Budgets.String(), opts.ReferenceTTL, s.loadBudgets)
	s.pending = cache.NewReadThrough(sheets.PendingPayments.String(), opts.TransactionsTTL, s.loadPending)
	s.caches = cache.NewGroup(s.transactions, s.accounts, s.budgets, s.pending)
	return s
}

// Caches exposes the table caches for cleanup and external invalidation.
func (s *LedgerService) Caches() *cache.Group { return s.caches }

// Users returns the household members allowed to post.
func (s *LedgerService) Users() []string { return append([]string(nil), s.users...) }

// Invalidate drops the cached snapshot of each table, or of every table
// when none is given. It does not notify other instances.
func (s *LedgerService) Invalidate(tables ...sheets.Table) {
	if len(tables) == 0 {
		s.caches.InvalidateAll()
		return
	}
	keys := make([]string, len(tables))
	for i, t := range tables {
		keys[i] = t.String()
	}
	s.caches.Invalidate(keys...)
}

func (s *LedgerService) loadBook(ctx context.Context) (ledger.Book, error) {
	rows, err := s.store.ListRows(ctx, sheets.Transactions)
	if err != nil {
		return ledger.Book{}, fmt.Errorf("load transactions: %w", err)
	}
	book := ledger.Normalize(rows)
	if n := book.Unparseable(); n > 0 {
		first := book.Issues[0]
		s.logger.WarnContext(ctx, "Dropped unparseable transaction rows",
			log.FieldTable, sheets.Transactions.String(),
			log.FieldRows, len(rows),
			log.FieldUnparseable, n,
			log.FieldPosition, first.Position,
			log.FieldErrorType, log.ErrorTypeParse,
			"first_issue", first.String())
	}
	s.logger.DebugContext(ctx, "Reloaded snapshot",
		log.FieldOperation, log.OpReload,
		log.FieldTable, sheets.Transactions.String(),
		log.FieldRows, len(book.Transactions))
	return book, nil
}

func (s *LedgerService) loadAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.store.ListRows(ctx, sheets.Accounts)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return ledger.NormalizeAccounts(rows), nil
}

func (s *LedgerService) loadBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.store.ListRows(ctx, sheets.Budgets)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	budgets, issues := ledger.NormalizeBudgets(rows)
	if len(issues) > 0 {
		s.logger.WarnContext(ctx, "Dropped unparseable budget rows",
			log.FieldTable, sheets.Budgets.String(),
			log.FieldUnparseable, len(issues))
	}
	return budgets, nil
}

func (s *LedgerService) loadPending(ctx context.Context) ([]core.PendingPayment, error) {
	rows, err := s.store.ListRows(ctx, sheets.PendingPayments)
	if err != nil {
		return nil, fmt.Errorf("load pending payments: %w", err)
	}
	pending, issues := ledger.NormalizePending(rows)
	if len(issues) > 0 {
		s.logger.WarnContext(ctx, "Dropped unparseable pending payment rows",
			log.FieldTable, sheets.PendingPayments.String(),
			log.FieldUnparseable, len(issues))
	}
	return pending, nil
}

// Book returns the cached Transactions snapshot, including parse issues.
func (s *LedgerService) Book(ctx context.Context) (ledger.Book, error) {
	return s.transactions.Get(ctx)
}

func (s *LedgerService) allTransactions(ctx context.Context) ([]core.Transaction, error) {
	book, err := s.transactions.Get(ctx)
	if err != nil {
		return nil, err
	}
	return book.Transactions, nil
}

// Transactions returns the period's transactions, newest first.
func (s *LedgerService) Transactions(ctx context.Context, period core.Period) ([]core.Transaction, error) {
	txs, err := s.allTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Filter(txs, period), nil
}

func (s *LedgerService) Accounts(ctx context.Context) ([]core.Account, error) {
	return s.accounts.Get(ctx)
}

func (s *LedgerService) Budgets(ctx context.Context) ([]core.Budget, error) {
	return s.budgets.Get(ctx)
}

func (s *LedgerService) PendingPayments(ctx context.Context) ([]core.PendingPayment, error) {
	return s.pending.Get(ctx)
}

func (s *LedgerService) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	txs, err := s.allTransactions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Balance(txs, strings.TrimSpace(account)), nil
}

// Balances returns the balance of every account.
func (s *LedgerService) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	txs, err := s.allTransactions(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Balances(txs, accounts), nil
}

func (s *LedgerService) PeriodSummary(ctx context.Context, period core.Period) (ledger.Summary, error) {
	txs, err := s.allTransactions(ctx)
	if err != nil {
		return ledger.Summary{}, err
	}
	return ledger.PeriodSummary(txs, period), nil
}

func (s *LedgerService) CategorySpend(ctx context.Context, period core.Period) (map[string]decimal.Decimal, error) {
	txs, err := s.allTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.CategorySpend(txs, period), nil
}

// BudgetStatus joins the budgets with the period's category spend.
func (s *LedgerService) BudgetStatus(ctx context.Context, period core.Period) (map[string]ledger.BudgetLine, error) {
	spend, err := s.CategorySpend(ctx, period)
	if err != nil {
		return nil, err
	}
	budgets, err := s.budgets.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.BudgetStatus(budgets, spend), nil
}

func (s *LedgerService) GlobalSavings(ctx context.Context) (decimal.Decimal, error) {
	txs, err := s.allTransactions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.GlobalSavings(txs), nil
}

// OrphanTransfers lists transfers that are missing one leg, read fresh.
func (s *LedgerService) OrphanTransfers(ctx context.Context) ([]ledger.Transfer, error) {
	book, err := s.transactions.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.OrphanTransfers(book.Transactions), nil
}

// afterWrite drops the local snapshot of table and tells other instances.
// Publishing failures are logged; the write already happened.
func (s *LedgerService) afterWrite(ctx context.Context, table sheets.Table, operation string) {
	s.Invalidate(table)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, table, operation); err != nil {
		s.logger.LogError(ctx, "Failed to publish change notification", err, log.OpNotify,
			log.NewFields().WithTable(table.String()))
	}
}
