package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"capigastos/internal/sheets"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	repo, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestRepositorySeedsHeaders(t *testing.T) {
	repo, _ := newTestRepo(t)
	for _, table := range sheets.AllTables {
		rows, err := repo.ListRows(context.Background(), table)
		if err != nil {
			t.Fatalf("ListRows(%s): %v", table, err)
		}
		if len(rows) != 1 || rows[0][0] != sheets.Headers[table][0] {
			t.Fatalf("expected only the header in %s, got %v", table, rows)
		}
	}
}

func TestRepositoryAppendDeleteFind(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	txs := []sheets.Row{
		{"2025-10-01", "09:00:00", "Rodrigo", "Cash", "Ingreso", "Sueldo", "100.00", ""},
		{"2025-10-02", "09:00:00", "Krys", "Cash", "Gasto", "Food", "30.00", "menú, \"almuerzo\""},
		{"2025-10-03", "09:00:00", "Krys", "Bank", "Gasto", "Taxi", "5.00", ""},
	}
	for _, row := range txs {
		if err := repo.AppendRow(ctx, sheets.Transactions, row); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	rows, err := repo.ListRows(ctx, sheets.Transactions)
	if err != nil || len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d err=%v", len(rows), err)
	}
	if rows[2][7] != "menú, \"almuerzo\"" {
		t.Fatalf("cell not preserved: %q", rows[2][7])
	}

	if err := repo.DeleteRow(ctx, sheets.Transactions, 3); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	rows, _ = repo.ListRows(ctx, sheets.Transactions)
	if len(rows) != 3 || rows[2][5] != "Taxi" {
		t.Fatalf("later rows should shift up, got %v", rows)
	}
	if err := repo.DeleteRow(ctx, sheets.Transactions, 9); !errors.Is(err, sheets.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}

	if err := repo.AppendRow(ctx, sheets.Accounts, sheets.Row{"Cash"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if pos, err := repo.FindRow(ctx, sheets.Accounts, " Cash "); err != nil || pos != 2 {
		t.Fatalf("expected Cash at 2, got %d err=%v", pos, err)
	}
	if _, err := repo.FindRow(ctx, sheets.Accounts, "Bank"); !errors.Is(err, sheets.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if err := repo.AppendRow(ctx, sheets.Table("other"), sheets.Row{"x"}); !errors.Is(err, sheets.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()
	if err := repo.AppendRow(ctx, sheets.Budgets, sheets.Row{"Food", "100.00"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	repo.Close()

	again, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	rows, _ := again.ListRows(ctx, sheets.Budgets)
	if len(rows) != 2 || rows[1][0] != "Food" {
		t.Fatalf("expected header and Food once, got %v", rows)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	_, path := newTestRepo(t)
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path, nil)
		if err != nil {
			t.Fatalf("RunMigrations #%d: %v", i+1, err)
		}
		if version != 1 {
			t.Fatalf("schema version = %d, want 1", version)
		}
	}
}
