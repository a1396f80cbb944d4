package retry

import (
	"errors"
	"sync/atomic"

	"capigastos/internal/sheets"
)

// Stats counts settled store calls. Its Observe method is an Observer.
type Stats struct {
	calls   atomic.Int64
	retried atomic.Int64
	failed  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Calls   int64 `json:"calls"`
	Retried int64 `json:"retried"`
	Failed  int64 `json:"failed"`
}

func (s *Stats) Observe(_ string, attempts int, err error) {
	s.calls.Add(1)
	if attempts > 1 {
		s.retried.Add(1)
	}
	if err != nil && !errors.Is(err, sheets.ErrRowNotFound) {
		s.failed.Add(1)
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Calls:   s.calls.Load(),
		Retried: s.retried.Load(),
		Failed:  s.failed.Load(),
	}
}
