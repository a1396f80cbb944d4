package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/ledger"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]string{"name": "Cash"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || got["name"] != "Cash" {
		t.Fatalf("body = %q, err = %v", w.Body.String(), err)
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Body("ignored").Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("code = %d body = %q", w.Code, w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name     string
		builder  *JSONResponseBuilder
		wantCode int
		wantType string
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest, "bad_request"},
		{"not found", NotFoundError("missing"), http.StatusNotFound, "not_found"},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Type != tt.wantType || body.Compensated != nil {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestBudgetLinesJSONSortedAndFormatted(t *testing.T) {
	lines := map[string]ledger.BudgetLine{
		"Ocio": {Category: "Ocio", Spent: decimal.RequireFromString("120"), Cap: decimal.RequireFromString("100"), Pct: decimal.RequireFromString("1.2"), Over: true},
		"Food": {Category: "Food", Spent: decimal.RequireFromString("30"), Cap: decimal.RequireFromString("100"), Pct: decimal.RequireFromString("0.3")},
	}
	got := newBudgetLinesJSON(lines)
	if len(got) != 2 || got[0].Category != "Food" || got[1].Category != "Ocio" {
		t.Fatalf("lines not sorted: %+v", got)
	}
	if got[1].Remaining != "-20.00" || got[1].Pct != "1.2000" || got[1].Level != ledger.LevelOver {
		t.Errorf("unexpected over line %+v", got[1])
	}
	if got[0].Spent != "30.00" || got[0].Level != ledger.LevelOK {
		t.Errorf("unexpected ok line %+v", got[0])
	}
}

func TestTransferJSONOmitsMissingLeg(t *testing.T) {
	out := core.Transaction{Account: "Cash", Kind: core.Expense, Amount: decimal.RequireFromString("20"), TransferID: "t1"}
	b, err := json.Marshal(newTransferJSON(ledger.Transfer{ID: "t1", Out: &out}))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["in"]; ok {
		t.Fatalf("missing leg should be omitted: %s", b)
	}
	if _, ok := raw["out"]; !ok {
		t.Fatalf("present leg should be kept: %s", b)
	}
}
