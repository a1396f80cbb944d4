// Package ledger turns raw store rows into typed records and derives every
// figure the dashboard shows from them. Nothing in this package does I/O.
package ledger

import (
	"capigastos/internal/core"
	"capigastos/internal/sheets"
)

// Transactions columns, in store order.
const (
	colDate = iota
	colTime
	colUser
	colAccount
	colKind
	colCategory
	colAmount
	colDescription
	transactionColumns
)

// Budgets columns.
const (
	colBudgetCategory = iota
	colBudgetCap
)

// PendingPayments columns.
const (
	colPendingDescription = iota
	colPendingAmount
	colPendingDue
)

var columnNames = map[int]string{
	colDate:        "Fecha",
	colTime:        "Hora",
	colUser:        "Usuario",
	colAccount:     "Cuenta",
	colKind:        "Tipo",
	colCategory:    "Categoria",
	colAmount:      "Monto",
	colDescription: "Descripcion",
}

// EncodeTransaction renders tx in the canonical storage form.
func EncodeTransaction(tx core.Transaction) sheets.Row {
	row := make(sheets.Row, transactionColumns)
	row[colDate] = tx.Date.String()
	row[colTime] = tx.Time
	row[colUser] = tx.User
	row[colAccount] = tx.Account
	row[colKind] = string(tx.Kind)
	row[colCategory] = tx.Category
	row[colAmount] = core.FormatAmount(tx.Amount)
	row[colDescription] = tx.Description
	return row
}

func EncodeAccount(a core.Account) sheets.Row {
	return sheets.Row{a.Name}
}

func EncodeBudget(b core.Budget) sheets.Row {
	return sheets.Row{b.Category, core.FormatAmount(b.MonthlyCap)}
}

func EncodePending(p core.PendingPayment) sheets.Row {
	return sheets.Row{p.Description, core.FormatAmount(p.Amount), p.DueDate.String()}
}
