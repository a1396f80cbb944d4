package services

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"capigastos/internal/core"
	"capigastos/internal/ledger"
)

// Dashboard is everything the main screen shows for one month.
type Dashboard struct {
	Period   core.Period
	Balances map[string]decimal.Decimal
	// TotalBalance is "SALDO TOTAL", the sum of every account balance.
	TotalBalance decimal.Decimal
	// Savings is "AHORRO TOTAL", all-time income minus expense.
	Savings       decimal.Decimal
	Summary       ledger.Summary
	CategorySpend map[string]decimal.Decimal
	Budgets       map[string]ledger.BudgetLine
	UserSpend     map[string]decimal.Decimal
	Transactions  []core.Transaction
	Pending       []core.PendingPayment
	// Unparseable counts rows dropped from the current snapshot.
	Unparseable int
	Orphans     []ledger.Transfer
}

// Dashboard loads the tables it needs concurrently and derives every figure
// from one consistent set of snapshots.
func (s *LedgerService) Dashboard(ctx context.Context, period core.Period) (Dashboard, error) {
	var (
		book     ledger.Book
		accounts []core.Account
		budgets  []core.Budget
		pending  []core.PendingPayment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		book, err = s.transactions.Get(gctx)
		return err
	})
	g.Go(func() (err error) {
		accounts, err = s.accounts.Get(gctx)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.budgets.Get(gctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.pending.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	txs := book.Transactions
	balances := ledger.Balances(txs, accounts)
	spend := ledger.CategorySpend(txs, period)
	return Dashboard{
		Period:        period,
		Balances:      balances,
		TotalBalance:  ledger.TotalBalance(balances),
		Savings:       ledger.GlobalSavings(txs),
		Summary:       ledger.PeriodSummary(txs, period),
		CategorySpend: spend,
		Budgets:       ledger.BudgetStatus(budgets, spend),
		UserSpend:     ledger.UserSpend(txs, period),
		Transactions:  ledger.Filter(txs, period),
		Pending:       pending,
		Unparseable:   book.Unparseable(),
		Orphans:       ledger.OrphanTransfers(txs),
	}, nil
}
