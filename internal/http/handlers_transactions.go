package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"capigastos/internal/core"
)

func (s *Server) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	var body PostTransactionRequest
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req, err := body.ToService()
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.ledger.Post(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The position is only known after the next reload.
	NewJSONResponse().Status(http.StatusCreated).Body(newTransactionJSON(tx)).Write(w)
}

// handleDeleteTransaction deletes by position. With a body describing the
// transaction as it was read, the row is matched by content on a fresh read.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	position, err := parsePosition(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.ContentLength == 0 {
		if err := s.ledger.Delete(r.Context(), position); err != nil {
			writeError(w, r, err)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
		return
	}

	var body DeleteTransactionRequest
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	tx, err := body.ToTransaction(position)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), tx); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handlePostTransfer(w http.ResponseWriter, r *http.Request) {
	var body TransferRequest
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req, err := body.ToService()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.ledger.PostTransfer(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, in := newTransactionJSON(res.Out), newTransactionJSON(res.In)
	NewJSONResponse().Status(http.StatusCreated).Body(transferJSON{ID: res.ID, Out: &out, In: &in}).Write(w)
}

func (s *Server) handleOrphanTransfers(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.ledger.OrphanTransfers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newTransfersJSON(orphans)).Write(w)
}

func (s *Server) handleRepairTransfer(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, r, core.Invalidf("id", "missing transfer id"))
		return
	}
	repaired, err := s.ledger.RepairTransfer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"id": id, "repaired": repaired}).Write(w)
}
