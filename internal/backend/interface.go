// Package backend builds the LedgerStore selected by configuration and
// wraps it in the retrying access layer.
package backend

import (
	"context"
	"time"

	"capigastos/internal/retry"
	"capigastos/internal/sheets"
	gsheet "capigastos/internal/sheets/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	// Store is the retrying store the services should use.
	Store sheets.LedgerStore
	// Raw is the adapter underneath, exposed for diagnostics and tests.
	Raw     sheets.LedgerStore
	Type    BackendType
	Cleanup CleanupFunc
	// Stats counts the calls made through Store.
	Stats *retry.Stats
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetNames         map[sheets.Table]string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuth              gsheet.OAuthConfig

	// Memory backend specific
	DataDirectory string

	Retry retry.Policy
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// RetryPolicy builds the store retry policy from attempt and delay settings,
// falling back to retry.DefaultPolicy for zero values.
func RetryPolicy(maxAttempts int, base, max time.Duration) retry.Policy {
	p := retry.DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if base > 0 {
		p.BaseDelay = base
	}
	if max > 0 {
		p.MaxDelay = max
	}
	return p
}
