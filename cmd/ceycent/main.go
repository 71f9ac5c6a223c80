package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ceycent/internal/activity"
	"ceycent/internal/api"
	"ceycent/internal/auth"
	"ceycent/internal/backend"
	"ceycent/internal/cache"
	"ceycent/internal/cli"
	"ceycent/internal/config"
	apphttp "ceycent/internal/http"
	"ceycent/internal/log"
	"ceycent/internal/report"
	"ceycent/internal/session"
	"ceycent/internal/sheets"
	sheetsgoogle "ceycent/internal/sheets/google"
	"ceycent/internal/shell"
)

const (
	maxReportViewers = 1000
	cleanupInterval  = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", log.NewFields().WithError(err).ToSlice()...)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	sessionsBackend, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessionsBackend.Close(); err != nil {
			logger.Warn("Failed to close session backend", log.NewFields().WithError(err).ToSlice()...)
		}
	}()

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	exporter := newExporter(ctx, cfg, logger)

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, api.WithLogger(logger), api.WithLocation(cfg.Location()))
	sessions := session.NewManager(sessionsBackend.Store, session.Options{
		TTL:    cfg.SessionTTL,
		Secure: cfg.SessionCookieSecure,
	}, logger)
	reports := report.NewRegistry(client, publisher, logger, maxReportViewers, cfg.SessionTTL, report.Options{
		Location: cfg.Location(),
	})

	janitor := cache.NewManager(logger)
	janitor.Register(reports.Cleaner())
	if sessionsBackend.Cleaner != nil {
		janitor.Register(sessionsBackend.Cleaner)
	}
	janitor.StartCleanup(cleanupInterval)
	defer janitor.Stop()

	ready := map[string]apphttp.ReadyFunc{}
	if sessionsBackend.Ready != nil {
		ready["sessions"] = apphttp.ReadyFunc(sessionsBackend.Ready)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Auth:      auth.New(client, publisher, logger),
		Sessions:  sessions,
		Reports:   reports,
		Shell:     shell.New(sessions, reports, publisher, logger),
		Exporter:  exporter,
		Publisher: publisher,
		Location:  cfg.Location(),
		Ready:     ready,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ceycent server",
			"port", cfg.Port,
			"api_base_url", cfg.APIBaseURL,
			"session_backend", cfg.SessionBackend,
			"export_enabled", cfg.ExportEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext()
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newPublisher connects to AMQP when configured. Activity events are
// dropped otherwise.
func newPublisher(cfg *config.Config, logger *log.Logger) (activity.Publisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("Activity events disabled - no AMQP_URL provided")
		return activity.Noop{}, func() {}
	}
	client, err := activity.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, activity events disabled", log.NewFields().WithError(err).ToSlice()...)
		return activity.Noop{}, func() {}
	}
	return client, func() { _ = client.Close() }
}

// newExporter builds the Google Sheets exporter when a spreadsheet is set.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) sheets.ReportExporter {
	if !cfg.ExportEnabled() {
		logger.Info("Report export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return sheets.Disabled{}
	}
	client, err := sheetsgoogle.New(ctx, sheetsgoogle.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter, export disabled",
			log.NewFields().WithOperation(log.OpStartup).WithError(err).ToSlice()...)
		return sheets.Disabled{}
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client
}
