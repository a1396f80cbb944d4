package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
)

// WarningThreshold is the utilization at which a budget turns to warning.
var WarningThreshold = decimal.RequireFromString("0.8")

// Budget levels.
const (
	LevelOK      = "ok"
	LevelWarning = "warning"
	LevelOver    = "over"
)

var one = decimal.NewFromInt(1)

// Balance is Σ Income − Σ Expense on account. Unknown accounts are zero.
func Balance(txs []core.Transaction, account string) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Account == account {
			total = total.Add(tx.Signed())
		}
	}
	return total
}

// Balances returns the balance of every registered account plus any account
// that only appears in the ledger.
func Balances(txs []core.Transaction, accounts []core.Account) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		out[a.Name] = decimal.Zero
	}
	for _, tx := range txs {
		out[tx.Account] = out[tx.Account].Add(tx.Signed())
	}
	return out
}

// TotalBalance sums a Balances result.
func TotalBalance(balances map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}

// Summary holds the figures of one month. Transfer legs are internal
// movements; they are left out of Income and Expense and their amount is
// reported in Transfers.
type Summary struct {
	Period    core.Period
	Income    decimal.Decimal
	Expense   decimal.Decimal
	Net       decimal.Decimal
	Transfers decimal.Decimal
}

// PeriodSummary sums the transactions dated inside period by kind.
func PeriodSummary(txs []core.Transaction, period core.Period) Summary {
	s := Summary{Period: period, Income: decimal.Zero, Expense: decimal.Zero, Transfers: decimal.Zero}
	for _, tx := range txs {
		if !period.Contains(tx.Date) {
			continue
		}
		switch {
		case tx.IsTransferLeg():
			if tx.Kind == core.Expense {
				s.Transfers = s.Transfers.Add(tx.Amount)
			}
		case tx.Kind == core.Income:
			s.Income = s.Income.Add(tx.Amount)
		case tx.Kind == core.Expense:
			s.Expense = s.Expense.Add(tx.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}

// CategorySpend groups the period's expenses by category. Categories without
// expenses are absent.
func CategorySpend(txs []core.Transaction, period core.Period) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Kind != core.Expense || tx.IsTransferLeg() || !period.Contains(tx.Date) {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// UserSpend groups the period's expenses by household member.
func UserSpend(txs []core.Transaction, period core.Period) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Kind != core.Expense || tx.IsTransferLeg() || !period.Contains(tx.Date) {
			continue
		}
		out[tx.User] = out[tx.User].Add(tx.Amount)
	}
	return out
}

// BudgetLine is the utilization of one budget.
type BudgetLine struct {
	Category string
	Spent    decimal.Decimal
	Cap      decimal.Decimal
	// Pct is Spent/Cap, or zero when Cap is zero.
	Pct  decimal.Decimal
	Over bool
}

// Warning reports whether utilization reached the warning threshold.
func (l BudgetLine) Warning() bool {
	return l.Pct.GreaterThanOrEqual(WarningThreshold)
}

// Level is LevelOver, LevelWarning or LevelOK.
func (l BudgetLine) Level() string {
	switch {
	case l.Over:
		return LevelOver
	case l.Warning():
		return LevelWarning
	}
	return LevelOK
}

// Remaining is what can still be spent; negative when over.
func (l BudgetLine) Remaining() decimal.Decimal {
	return l.Cap.Sub(l.Spent)
}

// BudgetStatus joins budgets with category spend. Every budget gets a line;
// spend in categories without a budget is not reported.
func BudgetStatus(budgets []core.Budget, spend map[string]decimal.Decimal) map[string]BudgetLine {
	out := make(map[string]BudgetLine, len(budgets))
	for _, b := range budgets {
		spent := spend[b.Category]
		line := BudgetLine{Category: b.Category, Spent: spent, Cap: b.MonthlyCap, Pct: decimal.Zero}
		if b.MonthlyCap.IsPositive() {
			line.Pct = spent.Div(b.MonthlyCap)
		}
		line.Over = line.Pct.GreaterThanOrEqual(one)
		out[b.Category] = line
	}
	return out
}

// GlobalSavings is all-time Σ Income − Σ Expense. Transfers net to zero.
func GlobalSavings(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Signed())
	}
	return total
}

// Filter returns the transactions of period, newest first.
func Filter(txs []core.Transaction, period core.Period) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if period.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.Position > b.Position
	})
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
