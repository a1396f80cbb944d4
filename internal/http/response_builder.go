// Package http exposes the ledger services as a JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the wire shapes of every resource. Amounts are rendered as strings in
// the canonical storage form ("15.70") so no precision is lost in clients.

package http

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/ledger"
	"capigastos/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error       string `json:"error"`
	Type        string `json:"type"`
	Field       string `json:"field,omitempty"`
	TransferID  string `json:"transfer_id,omitempty"`
	Compensated *bool  `json:"compensated,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, errType, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, Type: errType})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", message)
}

type transactionJSON struct {
	Position    int    `json:"position"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	User        string `json:"user"`
	Account     string `json:"account"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	TransferID  string `json:"transfer_id,omitempty"`
}

func newTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		Position:    tx.Position,
		Date:        tx.Date.String(),
		Time:        tx.Time,
		User:        tx.User,
		Account:     tx.Account,
		Kind:        string(tx.Kind),
		Category:    tx.Category,
		Amount:      core.FormatAmount(tx.Amount),
		Description: tx.Description,
		TransferID:  tx.TransferID,
	}
}

func newTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(txs))
	for i, tx := range txs {
		out[i] = newTransactionJSON(tx)
	}
	return out
}

type summaryJSON struct {
	Period    string `json:"period"`
	Income    string `json:"income"`
	Expense   string `json:"expense"`
	Net       string `json:"net"`
	Transfers string `json:"transfers"`
}

func newSummaryJSON(s ledger.Summary) summaryJSON {
	return summaryJSON{
		Period:    s.Period.String(),
		Income:    core.FormatAmount(s.Income),
		Expense:   core.FormatAmount(s.Expense),
		Net:       core.FormatAmount(s.Net),
		Transfers: core.FormatAmount(s.Transfers),
	}
}

type budgetLineJSON struct {
	Category  string `json:"category"`
	Spent     string `json:"spent"`
	Cap       string `json:"cap"`
	Remaining string `json:"remaining"`
	// Pct is utilization as a fraction, 1.00 meaning the cap is reached.
	Pct     string `json:"pct"`
	Over    bool   `json:"over"`
	Warning bool   `json:"warning"`
	Level   string `json:"level"`
}

// newBudgetLinesJSON orders the lines by category for stable output.
func newBudgetLinesJSON(lines map[string]ledger.BudgetLine) []budgetLineJSON {
	out := make([]budgetLineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, budgetLineJSON{
			Category:  l.Category,
			Spent:     core.FormatAmount(l.Spent),
			Cap:       core.FormatAmount(l.Cap),
			Remaining: core.FormatAmount(l.Remaining()),
			Pct:       l.Pct.StringFixed(4),
			Over:      l.Over,
			Warning:   l.Warning(),
			Level:     l.Level(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// amountsJSON renders a per-key figure map with canonical amounts.
func amountsJSON(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = core.FormatAmount(v)
	}
	return out
}

type budgetJSON struct {
	Category   string `json:"category"`
	MonthlyCap string `json:"monthly_cap"`
}

func newBudgetsJSON(budgets []core.Budget) []budgetJSON {
	out := make([]budgetJSON, len(budgets))
	for i, b := range budgets {
		out[i] = budgetJSON{Category: b.Category, MonthlyCap: core.FormatAmount(b.MonthlyCap)}
	}
	return out
}

func newAccountNames(accounts []core.Account) []string {
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Name
	}
	return out
}

type pendingJSON struct {
	Position    int    `json:"position"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
}

func newPendingJSON(pending []core.PendingPayment) []pendingJSON {
	out := make([]pendingJSON, len(pending))
	for i, p := range pending {
		out[i] = pendingJSON{Position: p.Position, Description: p.Description, Amount: core.FormatAmount(p.Amount), DueDate: p.DueDate.String()}
	}
	return out
}

type transferJSON struct {
	ID  string           `json:"id"`
	Out *transactionJSON `json:"out,omitempty"`
	In  *transactionJSON `json:"in,omitempty"`
}

func newTransferJSON(t ledger.Transfer) transferJSON {
	out := transferJSON{ID: t.ID}
	if t.Out != nil {
		leg := newTransactionJSON(*t.Out)
		out.Out = &leg
	}
	if t.In != nil {
		leg := newTransactionJSON(*t.In)
		out.In = &leg
	}
	return out
}

func newTransfersJSON(ts []ledger.Transfer) []transferJSON {
	out := make([]transferJSON, len(ts))
	for i, t := range ts {
		out[i] = newTransferJSON(t)
	}
	return out
}

type dashboardJSON struct {
	Period        string            `json:"period"`
	TotalBalance  string            `json:"total_balance"`
	Savings       string            `json:"savings"`
	Balances      map[string]string `json:"balances"`
	Summary       summaryJSON       `json:"summary"`
	CategorySpend map[string]string `json:"category_spend"`
	Budgets       []budgetLineJSON  `json:"budgets"`
	UserSpend     map[string]string `json:"user_spend"`
	Transactions  []transactionJSON `json:"transactions"`
	Pending       []pendingJSON     `json:"pending"`
	Unparseable   int               `json:"unparseable"`
	Orphans       []transferJSON    `json:"orphan_transfers"`
}

func newDashboardJSON(d services.Dashboard) dashboardJSON {
	return dashboardJSON{
		Period:        d.Period.String(),
		TotalBalance:  core.FormatAmount(d.TotalBalance),
		Savings:       core.FormatAmount(d.Savings),
		Balances:      amountsJSON(d.Balances),
		Summary:       newSummaryJSON(d.Summary),
		CategorySpend: amountsJSON(d.CategorySpend),
		Budgets:       newBudgetLinesJSON(d.Budgets),
		UserSpend:     amountsJSON(d.UserSpend),
		Transactions:  newTransactionsJSON(d.Transactions),
		Pending:       newPendingJSON(d.Pending),
		Unparseable:   d.Unparseable,
		Orphans:       newTransfersJSON(d.Orphans),
	}
}
