package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"noctambul/internal/amqp"
	"noctambul/internal/cli"
	"noctambul/internal/mail"
	"noctambul/internal/pdf"
	"noctambul/internal/scheduler"
	"noctambul/internal/services"
	"noctambul/internal/sheets"
	gsheet "noctambul/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath, cfg.OwnerEmail)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var dispatcher *mail.Dispatcher
	if cfg.SMTPUser != "" {
		dispatcher = mail.NewDispatcher(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	} else {
		logger.Info("SMTP disabled - reports will be generated but not mailed")
	}

	renderer := pdf.NewRenderer(cfg.ReportsDir)
	reportService := services.NewReportService(repo, renderer, dispatcher, nil)

	sched, err := scheduler.New(cfg.CronSpec(), reportService, repo, cfg.MarkerDir)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		os.Exit(1)
	}

	// Journal mirror is optional; the worker runs without it.
	var mirror *sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = sheets.NewMirror(repo, sheetsClient, cfg.MirrorBatchSize)
		logger.Info("Journal mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Journal mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := amqpClient.ConsumeReportJobs(gctx, reportService.HandleJob); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	if mirror != nil {
		g.Go(func() error {
			mirror.Run(gctx, cfg.MirrorInterval)
			return nil
		})
	}

	logger.Info("report-worker running", "schedule", cfg.CronSpec())
	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("report-worker stopped gracefully")
}
