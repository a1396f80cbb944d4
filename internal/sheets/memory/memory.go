package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"capigastos/internal/sheets"
)

// Operation names passed to the fault hook and used by Calls.
const (
	OpList   = "list"
	OpAppend = "append"
	OpDelete = "delete"
	OpFind   = "find"
)

// FaultFunc is consulted before every operation; a non-nil error is returned
// to the caller instead of performing the operation.
type FaultFunc func(op string, table sheets.Table) error

// Store is an in-process LedgerStore. Every table starts with its header row.
type Store struct {
	mu     sync.Mutex
	tables map[sheets.Table][]sheets.Row
	calls  map[string]int
	fault  FaultFunc
}

var _ sheets.LedgerStore = (*Store)(nil)

func New() *Store {
	s := &Store{
		tables: make(map[sheets.Table][]sheets.Row, len(sheets.AllTables)),
		calls:  make(map[string]int),
	}
	for _, t := range sheets.AllTables {
		s.tables[t] = []sheets.Row{append(sheets.Row(nil), sheets.Headers[t]...)}
	}
	return s
}

// NewFromFiles seeds accounts and budgets from base/seed_accounts.txt and
// base/seed_budgets.txt ("Categoria;Tope" per line).
func NewFromFiles(base string) *Store {
	s := New()
	accounts := readLines(filepath.Join(base, "seed_accounts.txt"))
	if len(accounts) == 0 {
		accounts = []string{"Efectivo", "Banco"}
	}
	for _, a := range accounts {
		s.tables[sheets.Accounts] = append(s.tables[sheets.Accounts], sheets.Row{a})
	}
	for _, line := range readLines(filepath.Join(base, "seed_budgets.txt")) {
		cat, cap, ok := strings.Cut(line, ";")
		if !ok {
			continue
		}
		s.tables[sheets.Budgets] = append(s.tables[sheets.Budgets], sheets.Row{strings.TrimSpace(cat), strings.TrimSpace(cap)})
	}
	return s
}

// SetFault installs fn as the fault hook. Pass nil to clear it.
func (s *Store) SetFault(fn FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// Calls returns how many times op reached table, including faulted calls.
func (s *Store) Calls(op string, table sheets.Table) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+string(table)]
}

// Seed appends rows to table without counting calls or consulting the fault hook.
func (s *Store) Seed(table sheets.Table, rows ...sheets.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], append(sheets.Row(nil), r...))
	}
}

func (s *Store) enter(op string, table sheets.Table) error {
	s.calls[op+":"+string(table)]++
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("%w: %s", sheets.ErrUnknownTable, table)
	}
	if s.fault != nil {
		return s.fault(op, table)
	}
	return nil
}

// ListRows returns a deep copy of every row of table.
func (s *Store) ListRows(_ context.Context, table sheets.Table) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpList, table); err != nil {
		return nil, err
	}
	rows := s.tables[table]
	out := make([]sheets.Row, len(rows))
	for i, r := range rows {
		out[i] = append(sheets.Row(nil), r...)
	}
	return out, nil
}

func (s *Store) AppendRow(_ context.Context, table sheets.Table, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpAppend, table); err != nil {
		return err
	}
	s.tables[table] = append(s.tables[table], append(sheets.Row(nil), row...))
	return nil
}

func (s *Store) DeleteRow(_ context.Context, table sheets.Table, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDelete, table); err != nil {
		return err
	}
	rows := s.tables[table]
	if position < 1 || position > len(rows) {
		return fmt.Errorf("%s position %d: %w", table, position, sheets.ErrRowNotFound)
	}
	s.tables[table] = append(rows[:position-1:position-1], rows[position:]...)
	return nil
}

func (s *Store) FindRow(_ context.Context, table sheets.Table, value string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpFind, table); err != nil {
		return 0, err
	}
	for i, r := range s.tables[table] {
		if strings.TrimSpace(r.Cell(0)) == strings.TrimSpace(value) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%s value %q: %w", table, value, sheets.ErrRowNotFound)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
