package sheets

import (
	"context"
	"errors"
)

// Table names one of the logical tables of the ledger spreadsheet.
type Table string

const (
	Transactions    Table = "transactions"
	Accounts        Table = "accounts"
	Budgets         Table = "budgets"
	PendingPayments Table = "pending_payments"
)

// AllTables lists every logical table in a stable order.
var AllTables = []Table{Transactions, Accounts, Budgets, PendingPayments}

func (t Table) String() string { return string(t) }

// IsValid reports whether t is one of the known tables.
func (t Table) IsValid() bool {
	switch t {
	case Transactions, Accounts, Budgets, PendingPayments:
		return true
	}
	return false
}

// Row is one positional row of cells. Column order is significant.
type Row []string

// Cell returns the trimmed-as-stored cell at idx, or "" when the row is short.
func (r Row) Cell(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

var (
	// ErrRowNotFound is returned when a position or value has no matching row.
	ErrRowNotFound = errors.New("row not found")
	// ErrRateLimited marks a quota or rate-limit refusal from the store.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnknownTable is returned for tables the store does not hold.
	ErrUnknownTable = errors.New("unknown table")
)

// Ports for outbound adapters.
type (
	// LedgerStore is the remote tabular store. Rows are addressed by their
	// 1-based position; ListRows returns every row including the header, so
	// rows[i] lives at position i+1. Deleting a row shifts every later row up.
	LedgerStore interface {
		ListRows(ctx context.Context, table Table) ([]Row, error)
		AppendRow(ctx context.Context, table Table, row Row) error
		DeleteRow(ctx context.Context, table Table, position int) error
		// FindRow returns the position of the first row whose first column
		// equals value, or ErrRowNotFound.
		FindRow(ctx context.Context, table Table, value string) (int, error)
	}
)

// Headers are the header rows written at position 1 of each table.
var Headers = map[Table]Row{
	Transactions:    {"Fecha", "Hora", "Usuario", "Cuenta", "Tipo", "Categoria", "Monto", "Descripcion"},
	Accounts:        {"Cuenta"},
	Budgets:         {"Categoria", "Tope_Mensual"},
	PendingPayments: {"Descripcion", "Monto", "FechaLimite"},
}
