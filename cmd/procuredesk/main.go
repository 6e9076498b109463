package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/procuredesk/procuredesk/internal/app"
	"github.com/procuredesk/procuredesk/internal/auth"
	"github.com/procuredesk/procuredesk/internal/billing"
	"github.com/procuredesk/procuredesk/internal/billing/razorpay"
	"github.com/procuredesk/procuredesk/internal/files"
	"github.com/procuredesk/procuredesk/internal/masterdata/categories"
	"github.com/procuredesk/procuredesk/internal/masterdata/products"
	"github.com/procuredesk/procuredesk/internal/masterdata/vendors"
	"github.com/procuredesk/procuredesk/internal/notify"
	"github.com/procuredesk/procuredesk/internal/observability"
	"github.com/procuredesk/procuredesk/internal/pdf"
	"github.com/procuredesk/procuredesk/internal/platform/cache"
	"github.com/procuredesk/procuredesk/internal/platform/db"
	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/shared"
	"github.com/procuredesk/procuredesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, 0)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(pool)
	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authService := auth.NewService(authRepo, tokenStore)
	authHandler := auth.NewHandler(authService)

	vendorService := vendors.NewService(vendors.NewRepository(pool))
	vendorHandler := vendors.NewHandler(vendorService)
	productHandler := products.NewHandler(products.NewService(products.NewRepository(pool)))
	categoryHandler := categories.NewHandler(categories.NewService(categories.NewRepository(pool)))

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	notifyService := notify.NewService(notify.NewRepository(pool), notify.NewPGDirectory(pool), jobClient, logger)
	notifyHandler := notify.NewHandler(notifyService)

	auditLogger := shared.NewAuditLogger(pool)

	procurementRepo := procurement.NewRepository(pool)
	billingRepo := billing.NewRepository(pool)

	procurementService := procurement.NewService(
		procurementRepo,
		app.NewVendorDirectory(vendorService),
		billingRepo,
		notifyService,
		auditLogger,
		procurement.Policy{RequireReceiptForDelivered: cfg.RequireReceiptForDelivered},
	)
	procurementHandler := procurement.NewHandler(procurementService)

	fileStore, err := files.NewStore(cfg.FileStorageDir)
	if err != nil {
		logger.Error("init file store", slog.Any("error", err))
		os.Exit(1)
	}

	var gateway billing.Gateway
	if cfg.RazorpayKeyID != "" {
		gateway = app.NewPaymentGateway(razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret))
	}

	billingService := billing.NewService(
		billingRepo,
		app.NewOrderDirectory(procurementRepo),
		gateway,
		fileStore,
		pdf.NewClient(cfg.GotenbergURL),
		auditLogger,
		billing.Policy{
			RequireDeliveredPO: cfg.InvoiceRequiresDelivered,
			OverpayTolerance:   cfg.OverpayToleranceAmount(),
		},
	)
	billingHandler := billing.NewHandler(billingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthService:        authService,
		AuthHandler:        authHandler,
		VendorHandler:      vendorHandler,
		ProductHandler:     productHandler,
		CategoryHandler:    categoryHandler,
		ProcurementHandler: procurementHandler,
		BillingHandler:     billingHandler,
		NotifyHandler:      notifyHandler,
		JobHandler:         jobHandler,
		Metrics:            observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
	if err := app.Serve(ctx, server); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
