// Package report renders a month of the ledger as plain text for the
// terminal, with amounts formatted for the reader's locale.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"capigastos/internal/core"
	"capigastos/internal/ledger"
	"capigastos/internal/services"
)

// Currency prefixes every amount.
const Currency = "S/"

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthName returns the Spanish name of p's month.
func MonthName(p core.Period) string {
	if p.Month < 1 || p.Month > 12 {
		return p.String()
	}
	return monthNames[p.Month-1]
}

// Writer renders dashboards with a fixed locale.
type Writer struct {
	p *message.Printer
}

func NewWriter(tag language.Tag) *Writer {
	return &Writer{p: message.NewPrinter(tag)}
}

func (w *Writer) amount(d decimal.Decimal) string {
	// Display only; stored amounts never go through float.
	return w.p.Sprintf("%s %v", Currency, number.Decimal(d.InexactFloat64(), number.Scale(core.AmountScale)))
}

func (w *Writer) percent(d decimal.Decimal) string {
	return w.p.Sprintf("%v", number.Percent(d.InexactFloat64(), number.Scale(0)))
}

// Write renders d to out.
func (w *Writer) Write(out io.Writer, d services.Dashboard) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Capigastos: %s %d\n\n", MonthName(d.Period), d.Period.Year)
	fmt.Fprintf(tw, "SALDO TOTAL\t%s\n", w.amount(d.TotalBalance))
	fmt.Fprintf(tw, "AHORRO TOTAL\t%s\n\n", w.amount(d.Savings))

	fmt.Fprintln(tw, "Cuentas")
	for _, name := range ledger.SortedKeys(d.Balances) {
		fmt.Fprintf(tw, "  %s\t%s\n", name, w.amount(d.Balances[name]))
	}

	fmt.Fprintln(tw, "\nResumen del mes")
	fmt.Fprintf(tw, "  Ingresos\t%s\n", w.amount(d.Summary.Income))
	fmt.Fprintf(tw, "  Gastos\t%s\n", w.amount(d.Summary.Expense))
	fmt.Fprintf(tw, "  Neto\t%s\n", w.amount(d.Summary.Net))
	if !d.Summary.Transfers.IsZero() {
		fmt.Fprintf(tw, "  Transferencias\t%s\n", w.amount(d.Summary.Transfers))
	}

	if len(d.UserSpend) > 0 {
		fmt.Fprintln(tw, "\nGasto por usuario")
		for _, user := range ledger.SortedKeys(d.UserSpend) {
			fmt.Fprintf(tw, "  %s\t%s\n", user, w.amount(d.UserSpend[user]))
		}
	}

	if len(d.Budgets) > 0 {
		fmt.Fprintln(tw, "\nPresupuestos")
		for _, cat := range ledger.SortedKeys(d.Budgets) {
			line := d.Budgets[cat]
			fmt.Fprintf(tw, "  %s\t%s\t/ %s\t%s\t%s\n", cat,
				w.amount(line.Spent), w.amount(line.Cap), w.percent(line.Pct), budgetMark(line))
		}
	}

	if len(d.Pending) > 0 {
		fmt.Fprintln(tw, "\nPagos pendientes")
		for _, p := range d.Pending {
			fmt.Fprintf(tw, "  %s\t%s\tvence %s\n", p.Description, w.amount(p.Amount), p.DueDate)
		}
	}

	if len(d.Orphans) > 0 {
		fmt.Fprintln(tw, "\nTransferencias incompletas")
		for _, t := range d.Orphans {
			leg, _ := t.MissingLeg()
			fmt.Fprintf(tw, "  %s\tfalta %s en %s\n", t.ID, leg.Kind, leg.Account)
		}
	}
	if d.Unparseable > 0 {
		fmt.Fprintf(tw, "\nFilas ilegibles descartadas: %d\n", d.Unparseable)
	}
	return tw.Flush()
}

func budgetMark(l ledger.BudgetLine) string {
	switch l.Level() {
	case ledger.LevelOver:
		return "EXCEDIDO"
	case ledger.LevelWarning:
		return "cerca del tope"
	}
	return ""
}
