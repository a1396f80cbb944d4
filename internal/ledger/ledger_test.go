package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/sheets"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var october = core.Period{Year: 2025, Month: time.October}

func tx(kind core.Kind, account, category, amount string, day int) core.Transaction {
	return core.Transaction{
		Date:     core.NewDate(2025, time.October, day),
		Time:     "10:00:00",
		User:     "Rodrigo",
		Account:  account,
		Kind:     kind,
		Category: category,
		Amount:   dec(amount),
	}
}

// cashBankLedger is Income 100 on Cash, Expense 30 on Cash and a transfer of
// 20 from Cash to Bank.
func cashBankLedger() []core.Transaction {
	out, in := TransferLegs("t-1", "Cash", "Bank", dec("20"), "", "Krys",
		time.Date(2025, time.October, 3, 12, 0, 0, 0, time.UTC))
	return []core.Transaction{
		tx(core.Income, "Cash", "Sueldo", "100", 1),
		tx(core.Expense, "Cash", "Food", "30", 2),
		out,
		in,
	}
}

func TestCashBankExample(t *testing.T) {
	txs := cashBankLedger()
	if got := Balance(txs, "Cash"); !got.Equal(dec("50")) {
		t.Fatalf("balance(Cash) = %s, want 50", got)
	}
	if got := Balance(txs, "Bank"); !got.Equal(dec("20")) {
		t.Fatalf("balance(Bank) = %s, want 20", got)
	}
	if got := GlobalSavings(txs); !got.Equal(dec("70")) {
		t.Fatalf("global savings = %s, want 70", got)
	}
}

func TestGlobalConservation(t *testing.T) {
	txs := append(cashBankLedger(),
		tx(core.Expense, "Bank", "Fun", "7.25", 9),
		tx(core.Income, "Card", "Refund", "3.10", 10), // dangling account
	)
	balances := Balances(txs, []core.Account{{Name: "Cash"}, {Name: "Bank"}, {Name: "Empty"}})
	if !TotalBalance(balances).Equal(GlobalSavings(txs)) {
		t.Fatalf("Σ balances %s != global savings %s", TotalBalance(balances), GlobalSavings(txs))
	}
	if b, ok := balances["Empty"]; !ok || !b.IsZero() {
		t.Fatalf("registered account without transactions should be zero, got %v %v", b, ok)
	}
	if b := balances["Card"]; !b.Equal(dec("3.10")) {
		t.Fatalf("dangling account balance = %s", b)
	}
}

func TestTransferMovesMoney(t *testing.T) {
	before := []core.Transaction{tx(core.Income, "Cash", "Sueldo", "100", 1)}
	out, in := TransferLegs("t-9", "Cash", "Bank", dec("40"), "ahorro", "Rodrigo", time.Date(2025, 10, 5, 8, 0, 0, 0, time.UTC))
	after := append(append([]core.Transaction(nil), before...), out, in)

	if d := Balance(after, "Cash").Sub(Balance(before, "Cash")); !d.Equal(dec("-40")) {
		t.Fatalf("Cash delta = %s", d)
	}
	if d := Balance(after, "Bank").Sub(Balance(before, "Bank")); !d.Equal(dec("40")) {
		t.Fatalf("Bank delta = %s", d)
	}
	if !GlobalSavings(after).Equal(GlobalSavings(before)) {
		t.Fatalf("transfer changed global savings")
	}
	if !out.Signed().Add(in.Signed()).IsZero() {
		t.Fatalf("legs do not net to zero")
	}
}

func TestPeriodSummary(t *testing.T) {
	txs := append(cashBankLedger(),
		tx(core.Expense, "Bank", "Food", "5", 20),
		core.Transaction{Date: core.NewDate(2025, time.September, 30), Account: "Cash", Kind: core.Expense, Amount: dec("999")},
	)
	s := PeriodSummary(txs, october)
	if !s.Income.Equal(dec("100")) || !s.Expense.Equal(dec("35")) || !s.Net.Equal(dec("65")) {
		t.Fatalf("unexpected summary %+v", s)
	}
	if !s.Transfers.Equal(dec("20")) {
		t.Fatalf("expected transfers 20, got %s", s.Transfers)
	}

	empty := PeriodSummary(nil, october)
	if !empty.Income.IsZero() || !empty.Expense.IsZero() || !empty.Net.IsZero() {
		t.Fatalf("empty ledger should sum to zero, got %+v", empty)
	}
}

func TestCategorySpendAndBudgetStatus(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, "Cash", "Food", "70", 1),
		tx(core.Expense, "Bank", "Food", "50", 12),
		tx(core.Expense, "Cash", "Taxi", "15", 13),
		tx(core.Income, "Cash", "Food", "500", 14),
	}
	spend := CategorySpend(txs, october)
	if !spend["Food"].Equal(dec("120")) || len(spend) != 2 {
		t.Fatalf("unexpected spend %v", spend)
	}
	if _, ok := spend["Fun"]; ok {
		t.Fatalf("categories without expenses must be absent")
	}

	status := BudgetStatus([]core.Budget{
		{Category: "Food", MonthlyCap: dec("100")},
		{Category: "Fun", MonthlyCap: dec("50")},
		{Category: "Free", MonthlyCap: decimal.Zero},
	}, spend)

	food := status["Food"]
	if !food.Spent.Equal(dec("120")) || !food.Cap.Equal(dec("100")) || !food.Pct.Equal(dec("1.2")) || !food.Over {
		t.Fatalf("unexpected Food line %+v", food)
	}
	if food.Level() != LevelOver {
		t.Fatalf("expected over level, got %s", food.Level())
	}
	if fun := status["Fun"]; !fun.Spent.IsZero() || fun.Over || fun.Level() != LevelOK {
		t.Fatalf("unexpected Fun line %+v", fun)
	}
	if free := status["Free"]; !free.Pct.IsZero() || free.Over {
		t.Fatalf("zero cap must yield pct 0, got %+v", free)
	}
	if _, ok := status["Taxi"]; ok {
		t.Fatalf("spend without budget must not appear in budget status")
	}
}

func TestBudgetLineLevels(t *testing.T) {
	tests := []struct {
		spent, cap string
		level      string
	}{
		{"79", "100", LevelOK},
		{"80", "100", LevelWarning},
		{"99.99", "100", LevelWarning},
		{"100", "100", LevelOver},
	}
	for _, tt := range tests {
		status := BudgetStatus([]core.Budget{{Category: "X", MonthlyCap: dec(tt.cap)}}, map[string]decimal.Decimal{"X": dec(tt.spent)})
		if got := status["X"].Level(); got != tt.level {
			t.Errorf("spent %s of %s: level %s, want %s", tt.spent, tt.cap, got, tt.level)
		}
	}
}

func TestUserSpendAndFilter(t *testing.T) {
	a := tx(core.Expense, "Cash", "Food", "10", 1)
	b := tx(core.Expense, "Cash", "Food", "5", 15)
	b.User = "Krys"
	c := tx(core.Income, "Cash", "Sueldo", "100", 15)
	c.Time = "18:00:00"
	txs := []core.Transaction{a, b, c}

	spend := UserSpend(txs, october)
	if !spend["Rodrigo"].Equal(dec("10")) || !spend["Krys"].Equal(dec("5")) {
		t.Fatalf("unexpected user spend %v", spend)
	}

	got := Filter(txs, october)
	if len(got) != 3 || got[0].Time != "18:00:00" || got[2].Date.Day() != 1 {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if len(Filter(txs, core.Period{Year: 2024, Month: time.January})) != 0 {
		t.Fatalf("expected no transactions in another period")
	}
}

func TestNormalize(t *testing.T) {
	rows := []sheets.Row{
		sheets.Headers[sheets.Transactions],
		{"2025-10-01", "09:30", "Rodrigo", "Cash", "Ingreso", "Sueldo", "100", "octubre"},
		{"14/10/2025", "10:00:00", "Krys", "Cash", "gasto", "Food", "15,70"},
		{"not a date", "", "Krys", "Cash", "Gasto", "Food", "5"},
		{},
		{"2025-10-02", "", "Krys", "Cash", "Gasto", "Food", "-5"},
		{"45944", "0.5", "Krys", "Bank", "Gasto", "", "1.234,56", "x [transfer:abc-1 from:Cash]"},
		{"2025-10-03", "", "Krys", "Cash", "Prestamo", "Food", "5"},
	}
	book := Normalize(rows)
	if len(book.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d: %+v", len(book.Transactions), book.Transactions)
	}
	if book.Unparseable() != 3 {
		t.Fatalf("expected 3 issues, got %v", book.Issues)
	}

	first := book.Transactions[0]
	if first.Position != 2 || first.Time != "09:30:00" || first.Kind != core.Income {
		t.Fatalf("unexpected first transaction %+v", first)
	}
	second := book.Transactions[1]
	if !second.Amount.Equal(dec("15.70")) || second.Description != "" || second.Position != 3 {
		t.Fatalf("expected 15.70 with empty description, got %+v", second)
	}
	third := book.Transactions[2]
	if third.Position != 7 || third.Date.String() != "2025-10-14" || third.Time != "12:00:00" {
		t.Fatalf("unexpected serial row %+v", third)
	}
	if third.TransferID != "abc-1" || third.Category != "" || !third.Amount.Equal(dec("1234.56")) {
		t.Fatalf("unexpected transfer leg %+v", third)
	}
	if book.Issues[0].Position != 4 || book.Issues[0].Column != "Fecha" {
		t.Fatalf("unexpected issue %+v", book.Issues[0])
	}
}

func TestNormalizeWithoutHeader(t *testing.T) {
	book := Normalize([]sheets.Row{{"2025-10-01", "", "Rodrigo", "Cash", "Gasto", "", "1"}})
	if len(book.Transactions) != 1 || book.Transactions[0].Position != 1 || book.Unparseable() != 0 {
		t.Fatalf("unexpected book %+v", book)
	}
}

func TestEncodeRoundTripKeepsCanonicalAmount(t *testing.T) {
	in := tx(core.Expense, "Cash", "Food", "15.7", 14)
	row := EncodeTransaction(in)
	if row[6] != "15.70" || row[0] != "2025-10-14" || row[4] != "Gasto" {
		t.Fatalf("unexpected encoded row %v", row)
	}
	book := Normalize([]sheets.Row{sheets.Headers[sheets.Transactions], row})
	if len(book.Transactions) != 1 || !book.Transactions[0].SameContent(in) {
		t.Fatalf("row did not read back: %+v", book)
	}
}

func TestNormalizeReferenceTables(t *testing.T) {
	accounts := NormalizeAccounts([]sheets.Row{{"Cuenta"}, {"Cash"}, {" "}, {"Bank"}, {"Cash"}})
	if len(accounts) != 2 || accounts[0].Name != "Cash" || accounts[1].Name != "Bank" {
		t.Fatalf("unexpected accounts %v", accounts)
	}

	budgets, issues := NormalizeBudgets([]sheets.Row{
		{"Categoria", "Tope_Mensual"},
		{"Food", "100,50"},
		{"Fun", "abc"},
		{"Free", ""},
		{"Food", "1"},
	})
	if len(budgets) != 2 || !budgets[0].MonthlyCap.Equal(dec("100.50")) || !budgets[1].MonthlyCap.IsZero() {
		t.Fatalf("unexpected budgets %+v", budgets)
	}
	if len(issues) != 1 || issues[0].Position != 3 {
		t.Fatalf("unexpected issues %+v", issues)
	}

	pending, issues := NormalizePending([]sheets.Row{
		{"Descripcion", "Monto", "FechaLimite"},
		{"Luz", "80", "2025-10-20"},
		{"Agua", "x", "2025-10-20"},
	})
	if len(pending) != 1 || pending[0].Position != 2 || pending[0].DueDate.String() != "2025-10-20" {
		t.Fatalf("unexpected pending %+v", pending)
	}
	if len(issues) != 1 {
		t.Fatalf("unexpected pending issues %+v", issues)
	}
}
