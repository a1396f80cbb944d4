package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capigastos/internal/config"
	"capigastos/internal/retry"
	"capigastos/internal/sheets"
	"capigastos/internal/sheets/memory"
	"capigastos/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:             "sheets",
		GoogleSpreadsheetID:     "sheet-1",
		GoogleTransactionsSheet: "Tx",
		GoogleAccountsSheet:     "Acc",
		GoogleBudgetsSheet:      "Bud",
		GooglePendingSheet:      "Pen",
		DataDir:                 "/tmp/data",
		RetryMaxAttempts:        5,
		RetryBaseDelay:          time.Second,
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if bc.Type != SheetsBackend || bc.GoogleSheetNames[sheets.Budgets] != "Bud" {
		t.Fatalf("unexpected backend config: %+v", bc)
	}
	if bc.Retry.MaxAttempts != 5 || bc.Retry.BaseDelay != time.Second || bc.Retry.MaxDelay != 30*time.Second {
		t.Fatalf("unexpected retry policy: %+v", bc.Retry)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Google Spreadsheet ID is required"},
		{"unknown", Config{Type: "redis"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	if _, ok := res.Raw.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", res.Raw)
	}
	if _, ok := res.Store.(*retry.Store); !ok {
		t.Fatalf("expected retry wrapper, got %T", res.Store)
	}
	rows, err := res.Store.ListRows(context.Background(), sheets.Accounts)
	if err != nil || len(rows) < 1 {
		t.Fatalf("unexpected accounts %v err=%v", rows, err)
	}
	if got := res.Stats.Snapshot(); got.Calls != 1 || got.Failed != 0 {
		t.Fatalf("unexpected store stats %+v", got)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, ok := res.Raw.(*storage.SQLiteRepository); !ok {
		t.Fatalf("expected sqlite repository, got %T", res.Raw)
	}
	ctx := context.Background()
	if err := res.Store.AppendRow(ctx, sheets.Accounts, sheets.Row{"Cash"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if pos, err := res.Store.FindRow(ctx, sheets.Accounts, "Cash"); err != nil || pos != 2 {
		t.Fatalf("expected Cash at 2, got %d err=%v", pos, err)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestCreateSheetsBackendWithoutCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"})
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy(0, 0, 0)
	d := retry.DefaultPolicy()
	if p.MaxAttempts != d.MaxAttempts || p.BaseDelay != d.BaseDelay || p.MaxDelay != d.MaxDelay {
		t.Fatalf("expected defaults, got %+v", p)
	}
}
