package backend

import (
	"fmt"

	"capigastos/internal/config"
	"capigastos/internal/sheets"
	gsheet "capigastos/internal/sheets/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (want one of %v)", appConfig.DataBackend, GetBackendTypes())
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetNames: map[sheets.Table]string{
			sheets.Transactions:    appConfig.GoogleTransactionsSheet,
			sheets.Accounts:        appConfig.GoogleAccountsSheet,
			sheets.Budgets:         appConfig.GoogleBudgetsSheet,
			sheets.PendingPayments: appConfig.GooglePendingSheet,
		},
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleOAuth: gsheet.OAuthConfig{
			ClientJSON: appConfig.GoogleOAuthClientJSON,
			ClientFile: appConfig.GoogleOAuthClientFile,
			TokenJSON:  appConfig.GoogleOAuthTokenJSON,
			TokenFile:  appConfig.GoogleOAuthTokenFile,
		},

		DataDirectory: appConfig.DataDir,

		Retry: RetryPolicy(appConfig.RetryMaxAttempts, appConfig.RetryBaseDelay, appConfig.RetryMaxDelay),
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (want one of %v)", c.Type, GetBackendTypes())
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory will default to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, SheetsBackend, MemoryBackend}
}
