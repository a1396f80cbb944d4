package backend

import (
	"context"
	"fmt"

	"capigastos/internal/log"
	"capigastos/internal/retry"
	"capigastos/internal/sheets"
	gsheet "capigastos/internal/sheets/google"
	"capigastos/internal/sheets/memory"
	"capigastos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		raw     sheets.LedgerStore
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case SQLiteBackend:
		raw, cleanup, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		raw, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		raw = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	policy := config.Retry
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy()
	}
	store := retry.NewStore(raw, policy, f.logger)
	stats := &retry.Stats{}
	store.SetObserver(stats.Observe)
	return &BackendResult{
		Store:   store,
		Raw:     raw,
		Type:    config.Type,
		Cleanup: cleanup,
		Stats:   stats,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (sheets.LedgerStore, CleanupFunc, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (sheets.LedgerStore, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetNames:         config.GoogleSheetNames,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		OAuth:              config.GoogleOAuth,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) sheets.LedgerStore {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return store
}
