package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"capigastos/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newAccountNames(accounts)).Write(w)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	var body AccountRequest
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	name := sanitizeInput(body.Name)
	if err := s.ledger.AddAccount(r.Context(), name); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]string{"name": name}).Write(w)
}

// handleAccountBalance answers for any name; an account without
// transactions has a zero balance.
func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	name := sanitizeInput(chi.URLParam(r, "name"))
	balance, err := s.ledger.Balance(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"account": name, "balance": core.FormatAmount(balance)}).Write(w)
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveAccount(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.Budgets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newBudgetsJSON(budgets)).Write(w)
}

func (s *Server) handleAddBudget(w http.ResponseWriter, r *http.Request) {
	var body BudgetRequest
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	monthlyCap, err := body.MonthlyCap.Cap("monthly_cap")
	if err != nil {
		writeError(w, r, err)
		return
	}
	category := sanitizeInput(body.Category)
	if err := s.ledger.AddBudget(r.Context(), category, monthlyCap); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Body(budgetJSON{Category: category, MonthlyCap: core.FormatAmount(monthlyCap)}).
		Write(w)
}

func (s *Server) handleRemoveBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveBudget(r.Context(), chi.URLParam(r, "category")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.ledger.PendingPayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newPendingJSON(pending)).Write(w)
}

func (s *Server) handleAddPending(w http.ResponseWriter, r *http.Request) {
	var body PendingRequest
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, err := body.ToPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.AddPendingPayment(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newPendingJSON([]core.PendingPayment{p})[0]).Write(w)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.MarkPaid(r.Context(), chi.URLParam(r, "description")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
