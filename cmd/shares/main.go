package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/agrovest/shares/internal/api"
	"github.com/agrovest/shares/internal/breaker"
	"github.com/agrovest/shares/internal/config"
	"github.com/agrovest/shares/internal/database"
	"github.com/agrovest/shares/internal/gate"
	"github.com/agrovest/shares/internal/guard"
	"github.com/agrovest/shares/internal/metadata"
	"github.com/agrovest/shares/internal/registry"
	"github.com/agrovest/shares/internal/report"
	"github.com/agrovest/shares/internal/sale"
	"github.com/agrovest/shares/internal/store"
	"github.com/agrovest/shares/internal/treasury"
	"github.com/agrovest/shares/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	app := &cli.App{
		Name:  "shares",
		Usage: "farm-share sale ledger",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server and background workers",
				Action: runServe,
			},
			{
				Name:   "report",
				Usage:  "export the sales report once and exit",
				Action: runReport,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return pool, nil
}

// reportWriter picks the configured report destination: Google Sheets when a
// spreadsheet is configured, a local XLSX file otherwise, nil when neither is.
func reportWriter(ctx context.Context, cfg config.Config) (report.Writer, error) {
	if cfg.SheetsSpreadsheetID != "" {
		return report.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
	}
	if cfg.ReportXLSXPath != "" {
		return report.NewXLSXWriter(cfg.ReportXLSXPath), nil
	}
	return nil, nil
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.OwnerToken == "" {
		return fmt.Errorf("OWNER_TOKEN is required")
	}

	pg := store.NewPgStore(pool)
	ownerGate := gate.New(cfg.OwnerToken)
	brk := breaker.New()
	grd := guard.New()

	registrySvc := registry.NewService(pg, ownerGate)
	saleSvc := sale.NewService(pg, brk, grd)
	treasurySvc := treasury.NewService(pg, ownerGate, grd)
	metadataSvc := metadata.NewResolver(cfg.MetadataBaseURL, pg, ownerGate)

	// Sales report worker, only when a destination is configured
	writer, err := reportWriter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("configuring report writer: %w", err)
	}
	if writer != nil {
		reportSvc := report.NewService(pg, writer, int32(cfg.CurrencyScale))
		go worker.NewReportWorker(reportSvc, cfg.ReportWorkerInterval).Run(ctx)
	} else {
		slog.Info("report export not configured, worker disabled")
	}

	handler := api.NewHandler(registrySvc, saleSvc, treasurySvc, metadataSvc, brk, ownerGate, pg)
	srv := api.NewServer(cfg.HTTPPort, handler)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runReport(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	writer, err := reportWriter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("configuring report writer: %w", err)
	}
	if writer == nil {
		return fmt.Errorf("no report destination configured, set SHEETS_SPREADSHEET_ID or REPORT_XLSX_PATH")
	}

	pg := store.NewPgStore(pool)
	if err := report.NewService(pg, writer, int32(cfg.CurrencyScale)).Export(ctx); err != nil {
		return fmt.Errorf("exporting report: %w", err)
	}

	slog.Info("sales report exported")
	return nil
}
