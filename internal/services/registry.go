package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/ledger"
	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// AddAccount registers a new account name.
func (s *LedgerService) AddAccount(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Invalid("name", core.ErrEmptyAccount)
	}
	accounts, err := s.accounts.Refresh(ctx)
	if err != nil {
		return err
	}
	if hasAccount(accounts, name) {
		return core.Invalidf("name", "account %q already exists", name)
	}
	return s.appendReference(ctx, sheets.Accounts, ledger.EncodeAccount(core.Account{Name: name}), name)
}

// RemoveAccount deletes the account row. Historical transactions keep their
// reference. Removing an absent account succeeds.
func (s *LedgerService) RemoveAccount(ctx context.Context, name string) error {
	return s.removeReference(ctx, sheets.Accounts, name)
}

// AddBudget registers a monthly cap for category.
func (s *LedgerService) AddBudget(ctx context.Context, category string, monthlyCap decimal.Decimal) error {
	b := core.Budget{Category: strings.TrimSpace(category), MonthlyCap: monthlyCap.Round(core.AmountScale)}
	if err := b.Validate(); err != nil {
		field := "category"
		if errors.Is(err, core.ErrInvalidAmount) {
			field = "monthly_cap"
		}
		return core.Invalid(field, err)
	}
	budgets, err := s.budgets.Refresh(ctx)
	if err != nil {
		return err
	}
	for _, existing := range budgets {
		if existing.Category == b.Category {
			return core.Invalidf("category", "budget %q already exists", b.Category)
		}
	}
	return s.appendReference(ctx, sheets.Budgets, ledger.EncodeBudget(b), b.Category)
}

// RemoveBudget deletes the budget of category. Removing an absent budget succeeds.
func (s *LedgerService) RemoveBudget(ctx context.Context, category string) error {
	return s.removeReference(ctx, sheets.Budgets, category)
}

// AddPendingPayment records a bill to pay before its due date.
func (s *LedgerService) AddPendingPayment(ctx context.Context, p core.PendingPayment) error {
	p.Description = strings.TrimSpace(p.Description)
	p.Amount = p.Amount.Round(core.AmountScale)
	if err := p.Validate(); err != nil {
		return core.Invalid("pending_payment", err)
	}
	pending, err := s.pending.Refresh(ctx)
	if err != nil {
		return err
	}
	for _, existing := range pending {
		if existing.Description == p.Description {
			return core.Invalidf("description", "pending payment %q already exists", p.Description)
		}
	}
	return s.appendReference(ctx, sheets.PendingPayments, ledger.EncodePending(p), p.Description)
}

// MarkPaid resolves the pending payment with description. Resolving an
// absent payment succeeds.
func (s *LedgerService) MarkPaid(ctx context.Context, description string) error {
	return s.removeReference(ctx, sheets.PendingPayments, description)
}

func (s *LedgerService) appendReference(ctx context.Context, table sheets.Table, row sheets.Row, key string) error {
	if err := s.store.AppendRow(ctx, table, row); err != nil {
		return fmt.Errorf("add %s %q: %w", table, key, err)
	}
	s.afterWrite(ctx, table, log.OpAppend)
	s.logger.WithComponent(log.ComponentRegistry).InfoContext(ctx, "Reference row added",
		log.FieldTable, table.String(),
		"key", key)
	return nil
}

// removeReference deletes every row keyed by key. Duplicates typed into
// the sheet by hand go too, and row 1 counts as data unless it is the header.
func (s *LedgerService) removeReference(ctx context.Context, table sheets.Table, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return core.Invalidf("name", "empty %s key", table)
	}
	logger := s.logger.WithComponent(log.ComponentRegistry)

	positions, err := s.referencePositions(ctx, table, key)
	if err != nil {
		return fmt.Errorf("remove %s %q: %w", table, key, err)
	}
	if len(positions) == 0 {
		// Already gone, possibly removed by another session.
		s.Invalidate(table)
		logger.DebugContext(ctx, "Reference row already absent",
			log.FieldTable, table.String(),
			"key", key)
		return nil
	}

	// Bottom-up, so the positions still to delete do not shift.
	removed := 0
	for i := len(positions) - 1; i >= 0; i-- {
		err := s.store.DeleteRow(ctx, table, positions[i])
		if errors.Is(err, sheets.ErrRowNotFound) {
			continue
		}
		if err != nil {
			if removed > 0 {
				s.afterWrite(ctx, table, log.OpDelete)
			} else {
				s.Invalidate(table)
			}
			return fmt.Errorf("remove %s %q: %w", table, key, err)
		}
		removed++
	}
	s.afterWrite(ctx, table, log.OpDelete)
	logger.InfoContext(ctx, "Reference row removed",
		log.FieldTable, table.String(),
		log.FieldPosition, positions[0],
		"rows", removed,
		"key", key)
	return nil
}

// referencePositions returns the ascending positions of rows keyed by key.
// FindRow answers the common absent case in one call; a hit is followed by a
// full read since FindRow stops at the first match, which may be the header.
func (s *LedgerService) referencePositions(ctx context.Context, table sheets.Table, key string) ([]int, error) {
	if _, err := s.store.FindRow(ctx, table, key); err != nil {
		if errors.Is(err, sheets.ErrRowNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rows, err := s.store.ListRows(ctx, table)
	if err != nil {
		return nil, err
	}
	var positions []int
	for i, row := range rows {
		if i == 0 && isHeaderRow(table, row) {
			continue
		}
		if strings.TrimSpace(row.Cell(0)) == key {
			positions = append(positions, i+1)
		}
	}
	return positions, nil
}

func isHeaderRow(table sheets.Table, row sheets.Row) bool {
	header := sheets.Headers[table]
	return len(header) > 0 && strings.EqualFold(strings.TrimSpace(row.Cell(0)), header[0])
}
