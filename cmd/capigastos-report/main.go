// Command capigastos-report prints one month of the ledger and exits.
//
//	capigastos-report -month 10 -year 2025
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"golang.org/x/text/language"

	"capigastos/internal/backend"
	"capigastos/internal/cli"
	"capigastos/internal/core"
	"capigastos/internal/log"
	"capigastos/internal/report"
	"capigastos/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	// Logs go to stdout with the report; keep them quiet unless asked.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(level)

	now := time.Now().In(cfg.Location())
	year := flag.Int("year", now.Year(), "year to report")
	month := flag.Int("month", int(now.Month()), "month to report (1-12)")
	locale := flag.String("locale", "es-PE", "BCP 47 tag used to format amounts")
	timeout := flag.Duration("timeout", 2*time.Minute, "give up after this long")
	flag.Parse()

	period, err := core.NewPeriod(*year, *month)
	if err != nil {
		logger.Error("Invalid period", log.FieldError, err.Error())
		os.Exit(2)
	}
	tag, err := language.Parse(*locale)
	if err != nil {
		logger.Error("Invalid locale", log.FieldError, err.Error(), "locale", *locale)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer store.Close()

	ledger := services.NewLedgerService(store.Store, services.Options{
		Users:    cfg.Users,
		Location: cfg.Location(),
		Logger:   logger,
	})
	dash, err := ledger.Dashboard(ctx, period)
	if err != nil {
		logger.Error("Failed to build report", log.FieldError, err.Error(), log.FieldPeriod, period.String())
		store.Close()
		os.Exit(1)
	}
	if err := report.NewWriter(tag).Write(os.Stdout, dash); err != nil {
		logger.Error("Failed to write report", log.FieldError, err.Error())
		store.Close()
		os.Exit(1)
	}
}
