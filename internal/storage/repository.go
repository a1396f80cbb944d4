// Package storage keeps the ledger tables in a local SQLite file, for single
// machine use and for development without a spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// SQLiteRepository stores each table as an ordered list of JSON-encoded rows.
// A row's position is its rank by insertion id within its table.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ sheets.LedgerStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps positions consistent between the select and delete of DeleteRow.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger = logger.WithComponent(log.ComponentStorage)
	if _, err := RunMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db, logger: logger}
	if err := repo.seedHeaders(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// seedHeaders writes the header row of every empty table.
func (r *SQLiteRepository) seedHeaders(ctx context.Context) error {
	for _, t := range sheets.AllTables {
		var n int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_rows WHERE table_name = ?`, string(t)).Scan(&n); err != nil {
			return fmt.Errorf("count %s rows: %w", t, err)
		}
		if n > 0 {
			continue
		}
		if err := r.AppendRow(ctx, t, sheets.Headers[t]); err != nil {
			return fmt.Errorf("seed %s header: %w", t, err)
		}
		r.logger.InfoContext(ctx, "Seeded table header", log.FieldTable, t.String())
	}
	return nil
}

func checkTable(t sheets.Table) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %s", sheets.ErrUnknownTable, t)
	}
	return nil
}

func (r *SQLiteRepository) ListRows(ctx context.Context, table sheets.Table) ([]sheets.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT cells FROM ledger_rows WHERE table_name = ? ORDER BY id`, string(table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []sheets.Row
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		var row sheets.Row
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", table, len(out)+1, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return out, nil
}

func (r *SQLiteRepository) AppendRow(ctx context.Context, table sheets.Table, row sheets.Row) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if row == nil {
		row = sheets.Row{}
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode %s row: %w", table, err)
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO ledger_rows (table_name, cells) VALUES (?, ?)`, string(table), string(raw)); err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRow(ctx context.Context, table sheets.Table, position int) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if position < 1 {
		return fmt.Errorf("%s position %d: %w", table, position, sheets.ErrRowNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM ledger_rows WHERE table_name = ? ORDER BY id LIMIT 1 OFFSET ?`,
		string(table), position-1).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s position %d: %w", table, position, sheets.ErrRowNotFound)
	}
	if err != nil {
		return fmt.Errorf("locate %s position %d: %w", table, position, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s position %d: %w", table, position, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindRow(ctx context.Context, table sheets.Table, value string) (int, error) {
	rows, err := r.ListRows(ctx, table)
	if err != nil {
		return 0, err
	}
	want := strings.TrimSpace(value)
	for i, row := range rows {
		if strings.TrimSpace(row.Cell(0)) == want {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%s value %q: %w", table, value, sheets.ErrRowNotFound)
}
