package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"capigastos/internal/log"
)

const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendSheets, BackendSQLite}

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// CIDRs whose X-Forwarded-For headers are believed.
	TrustedProxies []string

	// Backend selection
	DataBackend string
	DataDir     string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleTransactionsSheet  string
	GoogleAccountsSheet      string
	GoogleBudgetsSheet       string
	GooglePendingSheet       string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// OAuth user credentials, used instead of the service account when a
	// client is set. The token comes from cmd/oauth-init.
	GoogleOAuthClientJSON string
	GoogleOAuthClientFile string
	GoogleOAuthTokenJSON  string
	GoogleOAuthTokenFile  string

	// Cache
	TransactionsTTL time.Duration
	ReferenceTTL    time.Duration

	// Retry
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// Household
	Users    []string
	Timezone string

	// AMQP, empty URL disables change notifications
	AMQPURL      string
	AMQPExchange string

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		DataDir:     getEnv("DATA_DIR", "./data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/capigastos.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleTransactionsSheet:  getEnv("GOOGLE_TRANSACTIONS_SHEET", "Transacciones"),
		GoogleAccountsSheet:      getEnv("GOOGLE_ACCOUNTS_SHEET", "Cuentas"),
		GoogleBudgetsSheet:       getEnv("GOOGLE_BUDGETS_SHEET", "Presupuestos"),
		GooglePendingSheet:       getEnv("GOOGLE_PENDING_SHEET", "Pendientes"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		TransactionsTTL: getEnvDuration("CACHE_TTL_TRANSACTIONS", 30*time.Second),
		ReferenceTTL:    getEnvDuration("CACHE_TTL_REFERENCE", 10*time.Minute),

		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),

		Users:    getEnvList("HOUSEHOLD_USERS", []string{"Rodrigo", "Krys"}),
		Timezone: getEnv("TIMEZONE", "America/Lima"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "capigastos.changes"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves Timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be positive", c.RateLimitPerMinute))
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == BackendSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		for key, name := range map[string]string{
			"GOOGLE_TRANSACTIONS_SHEET": c.GoogleTransactionsSheet,
			"GOOGLE_ACCOUNTS_SHEET":     c.GoogleAccountsSheet,
			"GOOGLE_BUDGETS_SHEET":      c.GoogleBudgetsSheet,
			"GOOGLE_PENDING_SHEET":      c.GooglePendingSheet,
		} {
			if strings.TrimSpace(name) == "" {
				errors = append(errors, fmt.Sprintf("%s cannot be empty when using sheets backend", key))
			}
		}
		// Without explicit credentials the Google client falls back to
		// GOOGLE_APPLICATION_CREDENTIALS.
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != "" {
			if c.GoogleOAuthTokenJSON == "" && c.GoogleOAuthTokenFile == "" {
				errors = append(errors, "GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE is required with an OAuth client (run oauth-init)")
			}
		}
	}

	if c.TransactionsTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid transactions cache TTL %v: must be positive", c.TransactionsTTL))
	}
	if c.ReferenceTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid reference cache TTL %v: must be positive", c.ReferenceTTL))
	}

	if c.RetryMaxAttempts < 1 || c.RetryMaxAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be between 1 and 10", c.RetryMaxAttempts))
	}
	if c.RetryBaseDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid retry base delay %v: must not be negative", c.RetryBaseDelay))
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		errors = append(errors, fmt.Sprintf("invalid retry max delay %v: must be at least the base delay %v", c.RetryMaxDelay, c.RetryBaseDelay))
	}

	if len(c.Users) == 0 {
		errors = append(errors, "HOUSEHOLD_USERS must name at least one user")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
