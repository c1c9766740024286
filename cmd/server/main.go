package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/config"
	"github.com/mamadbah2/agriscore/internal/observability"
	"github.com/mamadbah2/agriscore/internal/repository/memory"
	"github.com/mamadbah2/agriscore/internal/repository/mongodb"
	"github.com/mamadbah2/agriscore/internal/repository/sheets"
	"github.com/mamadbah2/agriscore/internal/scheduler"
	"github.com/mamadbah2/agriscore/internal/server/handlers"
	"github.com/mamadbah2/agriscore/internal/server/middleware"
	"github.com/mamadbah2/agriscore/internal/server/router"
	actionsvc "github.com/mamadbah2/agriscore/internal/service/actions"
	alertingsvc "github.com/mamadbah2/agriscore/internal/service/alerting"
	assistantsvc "github.com/mamadbah2/agriscore/internal/service/assistant"
	cropsvc "github.com/mamadbah2/agriscore/internal/service/crops"
	dashboardsvc "github.com/mamadbah2/agriscore/internal/service/dashboard"
	reportingsvc "github.com/mamadbah2/agriscore/internal/service/reporting"
	"github.com/mamadbah2/agriscore/pkg/clients/anthropic"
	whatsappclient "github.com/mamadbah2/agriscore/pkg/clients/whatsapp"
	"github.com/mamadbah2/agriscore/pkg/logger"
)

// store is everything the services read and write.
type store interface {
	actionsvc.Store
	cropsvc.Store
	dashboardsvc.Store
	reportingsvc.Store
	alertingsvc.Store
	Close(ctx context.Context) error
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}
	scope, err := dashboardsvc.ParseSensorScope(cfg.Dashboard.SensorScope)
	if err != nil {
		baseLogger.Fatal("invalid dashboard sensor scope", zap.Error(err))
	}

	st, err := openStore(cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	metrics := observability.NewMetrics()

	var notifier actionsvc.Notifier
	if cfg.WhatsApp.Enabled() {
		notifier = alertingsvc.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), cfg.WhatsApp.NotifyTo, metrics, baseLogger)
		baseLogger.Info("whatsapp alert notifications enabled")
	} else {
		baseLogger.Warn("whatsapp not configured, alert notifications disabled")
	}

	var aiClient anthropic.Client
	if cfg.AI.AnthropicKey != "" {
		aiClient = anthropic.NewClient(cfg.AI.AnthropicKey)
		baseLogger.Info("anthropic ai client enabled")
	} else {
		baseLogger.Warn("anthropic api key missing, assistant uses keyword answers")
	}

	actionSvc := actionsvc.NewService(st, notifier, nil, loc, metrics, baseLogger)
	cropSvc := cropsvc.NewService(st, baseLogger)
	reportingSvc := reportingsvc.NewService(st, nil, loc, metrics, baseLogger)
	dashboardSvc := dashboardsvc.NewService(st, scope, nil, loc, baseLogger)
	alertSvc := alertingsvc.NewService(st, baseLogger)
	assistantSvc := assistantsvc.NewService(aiClient, dashboardSvc, nil, baseLogger)

	handler := handlers.New(handlers.Services{
		Actions:   actionSvc,
		Crops:     cropSvc,
		Reports:   reportingSvc,
		Dashboard: dashboardSvc,
		Alerts:    alertSvc,
		Assistant: assistantSvc,
	}, baseLogger.Named("handlers"))
	auth := middleware.NewAuth(cfg.Auth.JWTSecret, baseLogger)
	engine := router.New(handler, auth, cfg.Server.RequestTimeout, baseLogger.Named("router"))

	var exporter scheduler.Exporter
	if cfg.Sheets.Enabled() {
		sheetsExporter, err := sheets.NewReportExporter(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		exporter = sheetsExporter
	}

	sched, err := scheduler.NewScheduler(cfg.Reporting.CronSchedule, loc, reportingSvc, exporter, metrics, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	actionSvc.Drain()
}

func openStore(cfg *config.Config, log *zap.Logger) (store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return mongodb.NewStore(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, log.Named("repo.mongodb"))
}
