package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/nummix/backoffice/internal/accounting"
	"github.com/nummix/backoffice/internal/accounting/reports"
	"github.com/nummix/backoffice/internal/app"
	"github.com/nummix/backoffice/internal/auth"
	"github.com/nummix/backoffice/internal/budget"
	"github.com/nummix/backoffice/internal/events"
	"github.com/nummix/backoffice/internal/export"
	"github.com/nummix/backoffice/internal/observability"
	"github.com/nummix/backoffice/internal/payments"
	"github.com/nummix/backoffice/internal/payroll"
	"github.com/nummix/backoffice/internal/platform/cache"
	"github.com/nummix/backoffice/internal/platform/db"
	"github.com/nummix/backoffice/internal/shared"
	"github.com/nummix/backoffice/jobs"
	"github.com/nummix/backoffice/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.PGDSN); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Error("connect amqp", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := amqpPublisher.Close(); err != nil {
				logger.Warn("amqp close", slog.Any("error", err))
			}
		}()
		publisher = amqpPublisher
	}

	metrics := observability.NewMetrics()
	chart := accounting.DefaultChart()

	sessions := shared.NewSessionStore(redisClient, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), sessions)
	authHandler := auth.NewHandler(logger, authService)

	accountingRepo := accounting.NewRepository(dbpool)
	accountingService := accounting.NewService(accountingRepo, chart, publisher)
	accountingService.WithLogger(logger)
	accountingService.WithMetrics(metrics)
	accountingService.WithIdempotency(shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL))
	accountingHandler := accounting.NewHandler(logger, accountingService)

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	exporter := export.NewExporter(export.NewPDFExporter(pdfClient, language.English), logger)

	reportService := reports.NewService(accountingRepo, reports.NewBuilder(chart, cfg.MonthlyTrendWindow))
	reportService.WithMetrics(metrics)
	reportsHandler := reports.NewHandler(logger, reportService, exporter)

	budgetService := budget.NewService(budget.NewRepository(dbpool), publisher, logger)
	budgetHandler := budget.NewHandler(logger, budgetService, exporter)

	paymentService := payments.NewService(payments.NewRepository(dbpool), publisher, logger)
	paymentHandler := payments.NewHandler(logger, paymentService, exporter)

	queueOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(queueOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(queueOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		AuthHandler:       authHandler,
		AccountingHandler: accountingHandler,
		ReportsHandler:    reportsHandler,
		BudgetHandler:     budgetHandler,
		PaymentsHandler:   paymentHandler,
		PayrollHandler:    payroll.NewHandler(logger),
		OverviewHandler:   app.NewOverviewHandler(logger, reportService, budgetService, paymentService),
		PDFHandler:        report.NewHandler(pdfClient, logger),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
