package http

import (
	"net/http"

	"capigastos/internal/core"
	"capigastos/internal/log"
)

// period reads ?year=&month=, writing a 400 and returning false when invalid.
func (s *Server) period(w http.ResponseWriter, r *http.Request) (core.Period, bool) {
	p, err := ParsePeriodParams(r.URL.Query(), s.today())
	if err != nil {
		writeError(w, r, err)
		return core.Period{}, false
	}
	return p, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, ok := s.period(w, r)
	if !ok {
		return
	}
	d, err := s.ledger.Dashboard(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if d.Unparseable > 0 {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard built with dropped rows",
			log.FieldPeriod, period.String(),
			log.FieldUnparseable, d.Unparseable)
	}
	NewJSONResponse().Body(newDashboardJSON(d)).Write(w)
}

func (s *Server) handlePeriodSummary(w http.ResponseWriter, r *http.Request) {
	period, ok := s.period(w, r)
	if !ok {
		return
	}
	summary, err := s.ledger.PeriodSummary(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newSummaryJSON(summary)).Write(w)
}

func (s *Server) handleCategorySpend(w http.ResponseWriter, r *http.Request) {
	period, ok := s.period(w, r)
	if !ok {
		return
	}
	spend, err := s.ledger.CategorySpend(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(amountsJSON(spend)).Write(w)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	period, ok := s.period(w, r)
	if !ok {
		return
	}
	lines, err := s.ledger.BudgetStatus(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newBudgetLinesJSON(lines)).Write(w)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	savings, err := s.ledger.GlobalSavings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]string{"savings": core.FormatAmount(savings)}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	period, ok := s.period(w, r)
	if !ok {
		return
	}
	txs, err := s.ledger.Transactions(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newTransactionsJSON(txs)).Write(w)
}
