package retry

import (
	"context"
	"errors"

	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// Observer is told about every store call once it settles.
type Observer func(op string, attempts int, err error)

// Store routes every LedgerStore call through a Policy.
type Store struct {
	next     sheets.LedgerStore
	policy   Policy
	logger   *log.Logger
	observer Observer
}

var _ sheets.LedgerStore = (*Store)(nil)

// NewStore wraps next. A nil logger discards output.
func NewStore(next sheets.LedgerStore, policy Policy, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{next: next, policy: policy, logger: logger.WithComponent(log.ComponentRetry)}
}

// SetObserver installs fn; it must be called before the store is shared.
func (s *Store) SetObserver(fn Observer) {
	s.observer = fn
}

func (s *Store) ListRows(ctx context.Context, table sheets.Table) ([]sheets.Row, error) {
	var rows []sheets.Row
	err := s.run(ctx, log.OpList, table, false, func(ctx context.Context) error {
		var err error
		rows, err = s.next.ListRows(ctx, table)
		return err
	})
	return rows, err
}

func (s *Store) AppendRow(ctx context.Context, table sheets.Table, row sheets.Row) error {
	return s.run(ctx, log.OpAppend, table, true, func(ctx context.Context) error {
		return s.next.AppendRow(ctx, table, row)
	})
}

func (s *Store) DeleteRow(ctx context.Context, table sheets.Table, position int) error {
	return s.run(ctx, log.OpDelete, table, true, func(ctx context.Context) error {
		return s.next.DeleteRow(ctx, table, position)
	})
}

func (s *Store) FindRow(ctx context.Context, table sheets.Table, value string) (int, error) {
	var pos int
	err := s.run(ctx, log.OpFind, table, false, func(ctx context.Context) error {
		var err error
		pos, err = s.next.FindRow(ctx, table, value)
		return err
	})
	return pos, err
}

// run retries fn under the policy. Writes are retried only on refusals: a
// positional delete repeated after a timeout would remove the row that
// shifted into its place, and a repeated append would duplicate a row.
func (s *Store) run(ctx context.Context, op string, table sheets.Table, write bool, fn func(ctx context.Context) error) error {
	name := op + " " + table.String()
	policy := s.policy
	inner := policy.Retryable
	if inner == nil {
		inner = IsTransient
	}
	if write {
		inner = policy.RetryableWrite
		if inner == nil {
			inner = IsRefusal
		}
	}
	policy.Retryable = func(err error) bool {
		retry := inner(err)
		if retry {
			s.logger.WarnContext(ctx, "Store call hit a transient failure",
				log.FieldOperation, op,
				log.FieldTable, table.String(),
				log.FieldError, err.Error())
		}
		return retry
	}

	attempts, err := policy.Do(ctx, name, fn)
	if s.observer != nil {
		s.observer(op, attempts, err)
	}
	if err == nil {
		if attempts > 1 {
			s.logger.InfoContext(ctx, "Store call succeeded after retry",
				log.FieldOperation, op,
				log.FieldTable, table.String(),
				log.FieldAttempts, attempts)
		}
		return nil
	}
	if errors.Is(err, sheets.ErrRowNotFound) {
		// Absent rows are an answer, not an access failure.
		return errors.Unwrap(err)
	}
	if write && !IsRefusal(err) && IsTransient(err) {
		s.logger.WarnContext(ctx, "Store write not retried, it may have been applied",
			log.FieldOperation, op,
			log.FieldTable, table.String(),
			log.FieldError, err.Error())
	}
	s.logger.ErrorContext(ctx, "Store call failed",
		log.FieldOperation, op,
		log.FieldTable, table.String(),
		log.FieldAttempts, attempts,
		log.FieldError, err.Error())
	return err
}
