package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "capigastos/internal/sheets"
)

// fakeSheets serves the handful of Sheets endpoints the client uses.
type fakeSheets struct {
	mu        sync.Mutex
	tabs      map[string][][]any
	ids       map[string]int64
	metaCalls int
	failWith  int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		tabs: map[string][][]any{
			"Transacciones": {{"Fecha", "Hora", "Usuario", "Cuenta", "Tipo", "Categoria", "Monto", "Descripcion"}},
			"Cuentas":       {{"Cuenta"}, {"Cash"}, {"Bank"}},
		},
		ids: map[string]int64{"Transacciones": 0, "Cuentas": 77},
	}
}

// tabOf extracts the tab title from an A1 range such as 'Cuentas'!A:A.
func tabOf(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	name = strings.TrimPrefix(strings.TrimSuffix(name, "'"), "'")
	return strings.ReplaceAll(name, "''", "'")
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
		return
	}

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rng := req.Requests[0].DeleteDimension.Range
		for title, id := range f.ids {
			if id == rng.SheetId {
				rows := f.tabs[title]
				f.tabs[title] = append(rows[:rng.StartIndex:rng.StartIndex], rows[rng.EndIndex:]...)
			}
		}
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(path, ":append"):
		if r.URL.Query().Get("valueInputOption") != "RAW" || r.URL.Query().Get("insertDataOption") != "INSERT_ROWS" {
			http.Error(w, "unexpected append options", http.StatusBadRequest)
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rng := strings.TrimSuffix(path[strings.Index(path, "/values/")+len("/values/"):], ":append")
		tab := tabOf(rng)
		f.tabs[tab] = append(f.tabs[tab], vr.Values...)
		_, _ = w.Write([]byte(`{}`))
	case strings.Contains(path, "/values/"):
		if r.URL.Query().Get("valueRenderOption") != "UNFORMATTED_VALUE" {
			http.Error(w, "expected unformatted values", http.StatusBadRequest)
			return
		}
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		rows := f.tabs[tabOf(rng)]
		if strings.HasSuffix(rng, "!A:A") {
			col := make([][]any, len(rows))
			for i, row := range rows {
				if len(row) > 0 {
					col[i] = row[:1]
				}
			}
			rows = col
		}
		_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, Values: rows})
	default:
		f.metaCalls++
		var sheets []*gsheet.Sheet
		for title, id := range f.ids {
			sheets = append(sheets, &gsheet.Sheet{Properties: &gsheet.SheetProperties{Title: title, SheetId: id}})
		}
		_ = json.NewEncoder(w).Encode(gsheet.Spreadsheet{Sheets: sheets})
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-123",
		Options: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientListAppendFind(t *testing.T) {
	fake := newFakeSheets()
	fake.tabs["Transacciones"] = append(fake.tabs["Transacciones"],
		[]any{45944.0, 0.5, "Krys", "Cash", "Gasto", "Food", 15.7, nil})
	c := newTestClient(t, fake)
	ctx := context.Background()

	rows, err := c.ListRows(ctx, ports.Transactions)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "45944" || rows[1][1] != "0.5" || rows[1][6] != "15.7" || rows[1][7] != "" {
		t.Fatalf("unexpected rows %v", rows)
	}

	if err := c.AppendRow(ctx, ports.Accounts, ports.Row{"Yape"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	pos, err := c.FindRow(ctx, ports.Accounts, "Yape")
	if err != nil || pos != 4 {
		t.Fatalf("expected Yape at 4, got %d err=%v", pos, err)
	}
	if _, err := c.FindRow(ctx, ports.Accounts, "Ghost"); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestClientDeleteRowCachesGridID(t *testing.T) {
	fake := newFakeSheets()
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.DeleteRow(ctx, ports.Accounts, 2); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	if err := c.DeleteRow(ctx, ports.Accounts, 2); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	rows, _ := c.ListRows(ctx, ports.Accounts)
	if len(rows) != 1 || rows[0][0] != "Cuenta" {
		t.Fatalf("unexpected rows after deletes %v", rows)
	}
	if fake.metaCalls != 1 {
		t.Fatalf("expected sheet ids to be looked up once, got %d", fake.metaCalls)
	}
	if err := c.DeleteRow(ctx, ports.Accounts, 5); !errors.Is(err, ports.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestClientMarksRateLimits(t *testing.T) {
	fake := newFakeSheets()
	fake.failWith = http.StatusTooManyRequests
	c := newTestClient(t, fake)

	_, err := c.ListRows(context.Background(), ports.Accounts)
	if !errors.Is(err, ports.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := c.ListRows(context.Background(), ports.Table("nope")); !errors.Is(err, ports.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestCellHelpers(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"15,70", "15,70"},
		{15.7, "15.7"},
		{1234567.0, "1234567"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := tableRange("Transacciones", 8); got != "'Transacciones'!A:H" {
		t.Fatalf("unexpected range %q", got)
	}
	if got := quoteSheet("Rodrigo's"); got != "'Rodrigo''s'" {
		t.Fatalf("unexpected quoting %q", got)
	}
	for n, want := range map[int]string{1: "A", 26: "Z", 27: "AA", 52: "AZ"} {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}
