package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/sheets"
)

// ParseIssue describes a row that was dropped during normalization.
type ParseIssue struct {
	Position int
	Column   string
	Value    string
	Reason   string
}

func (p ParseIssue) String() string {
	return fmt.Sprintf("row %d: %s %q: %s", p.Position, p.Column, p.Value, p.Reason)
}

// Book is a normalized Transactions snapshot.
type Book struct {
	Transactions []core.Transaction
	Issues       []ParseIssue
}

// Unparseable returns how many rows were dropped.
func (b Book) Unparseable() int { return len(b.Issues) }

// Normalize converts every Transactions row into a Transaction. rows[i] is
// treated as store position i+1. The first row is skipped when its date cell
// does not parse, which is the case for the header. Malformed rows are
// dropped and recorded; Normalize never fails.
func Normalize(rows []sheets.Row) Book {
	var book Book
	for i, row := range rows {
		pos := i + 1
		if isBlank(row) {
			continue
		}
		tx, issue, ok := normalizeRow(row, pos)
		if !ok {
			if pos == 1 {
				continue
			}
			book.Issues = append(book.Issues, issue)
			continue
		}
		book.Transactions = append(book.Transactions, tx)
	}
	return book
}

func normalizeRow(row sheets.Row, pos int) (core.Transaction, ParseIssue, bool) {
	cell := func(idx int) string { return strings.TrimSpace(row.Cell(idx)) }
	fail := func(col int, reason string) (core.Transaction, ParseIssue, bool) {
		return core.Transaction{}, ParseIssue{Position: pos, Column: columnNames[col], Value: cell(col), Reason: reason}, false
	}

	date, err := core.ParseDate(cell(colDate))
	if err != nil {
		return fail(colDate, "unparseable date")
	}
	kind, err := core.ParseKind(cell(colKind))
	if err != nil {
		return fail(colKind, "unknown kind")
	}
	amount, err := core.ParseAmount(cell(colAmount))
	if err != nil {
		return fail(colAmount, "amount must be a positive number")
	}
	account := cell(colAccount)
	if account == "" {
		return fail(colAccount, "missing account")
	}

	description := cell(colDescription)
	tx := core.Transaction{
		Date:        date,
		Time:        core.NormalizeTime(cell(colTime)),
		User:        cell(colUser),
		Account:     account,
		Kind:        kind,
		Category:    cell(colCategory),
		Amount:      amount,
		Description: description,
		Position:    pos,
	}
	if tag, ok := ParseTransferTag(description); ok {
		tx.TransferID = tag.ID
	}
	return tx, ParseIssue{}, true
}

// NormalizeAccounts returns the distinct, non-blank account names after the
// header row.
func NormalizeAccounts(rows []sheets.Row) []core.Account {
	seen := make(map[string]struct{})
	var out []core.Account
	for i, row := range rows {
		name := strings.TrimSpace(row.Cell(0))
		if name == "" || (i == 0 && isHeader(row, sheets.Accounts)) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, core.Account{Name: name})
	}
	return out
}

// NormalizeBudgets returns one budget per category. Rows with a malformed cap
// are reported; a blank cap means zero.
func NormalizeBudgets(rows []sheets.Row) ([]core.Budget, []ParseIssue) {
	seen := make(map[string]struct{})
	var (
		out    []core.Budget
		issues []ParseIssue
	)
	for i, row := range rows {
		category := strings.TrimSpace(row.Cell(colBudgetCategory))
		if category == "" || (i == 0 && isHeader(row, sheets.Budgets)) {
			continue
		}
		if _, dup := seen[category]; dup {
			continue
		}
		raw := strings.TrimSpace(row.Cell(colBudgetCap))
		capValue := decimal.Zero
		if raw != "" {
			c, err := core.ParseCap(raw)
			if err != nil {
				issues = append(issues, ParseIssue{Position: i + 1, Column: "Tope_Mensual", Value: raw, Reason: "unparseable cap"})
				continue
			}
			capValue = c
		}
		seen[category] = struct{}{}
		out = append(out, core.Budget{Category: category, MonthlyCap: capValue})
	}
	return out, issues
}

// NormalizePending returns the pending payments with their store positions.
func NormalizePending(rows []sheets.Row) ([]core.PendingPayment, []ParseIssue) {
	var (
		out    []core.PendingPayment
		issues []ParseIssue
	)
	for i, row := range rows {
		pos := i + 1
		description := strings.TrimSpace(row.Cell(colPendingDescription))
		if description == "" || (i == 0 && isHeader(row, sheets.PendingPayments)) {
			continue
		}
		rawAmount := strings.TrimSpace(row.Cell(colPendingAmount))
		amount, err := core.ParseAmount(rawAmount)
		if err != nil {
			issues = append(issues, ParseIssue{Position: pos, Column: "Monto", Value: rawAmount, Reason: "amount must be a positive number"})
			continue
		}
		rawDue := strings.TrimSpace(row.Cell(colPendingDue))
		due, err := core.ParseDate(rawDue)
		if err != nil {
			issues = append(issues, ParseIssue{Position: pos, Column: "FechaLimite", Value: rawDue, Reason: "unparseable date"})
			continue
		}
		out = append(out, core.PendingPayment{Description: description, Amount: amount, DueDate: due, Position: pos})
	}
	return out, issues
}

func isBlank(row sheets.Row) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isHeader(row sheets.Row, table sheets.Table) bool {
	header := sheets.Headers[table]
	return len(header) > 0 && strings.EqualFold(strings.TrimSpace(row.Cell(0)), header[0])
}
