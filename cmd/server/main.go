// Package main is the entry point for the tradeflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/auth"
	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/domain/derivation"
	"tradeflow/internal/domain/documents/goods_receipt"
	v1 "tradeflow/internal/infrastructure/http/v1"
	"tradeflow/internal/infrastructure/metrics"
	"tradeflow/internal/infrastructure/numerator"
	"tradeflow/internal/infrastructure/storage/postgres"
	"tradeflow/internal/infrastructure/storage/postgres/catalog_repo"
	"tradeflow/internal/infrastructure/storage/postgres/document_repo"
	"tradeflow/pkg/config"
	"tradeflow/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     "tradeflow-api",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting tradeflow server", "version", version, "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DB.URL)
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MinConns = cfg.DB.MinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool, postgres.WithStatementTimeout(cfg.DB.StatementTimeout))

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterPoolStats(registry, pool.Stats)
	derivationMetrics := metrics.NewDerivation(registry)
	httpMetrics := metrics.NewHTTP(registry)

	auditLog, err := postgres.NewAuditLog(txManager, cfg.Audit.CompressThreshold)
	if err != nil {
		log.Fatalw("failed to create audit log", "error", err)
	}

	// --- Derivation ---
	derivationSvc, receiptSvc, err := buildServices(cfg, txManager, auditLog, derivationMetrics)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Logger:         log,
		JWTValidator:   auth.NewJWTService(jwtConfig(cfg)),
		Derivations:    derivationSvc,
		GoodsReceipts:  receiptSvc,
		DB:             pool,
		Audit:          auditLog,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Version:        version,
	}
	if cfg.Idempotency.Enabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// buildServices wires repositories, the catalog resolver, the numerator and
// the audit and outbox sinks into the derivation and goods receipt services.
func buildServices(
	cfg *config.Config,
	txManager *postgres.TxManager,
	auditLog *postgres.AuditLog,
	observer derivation.Observer,
) (*derivation.Service, *goods_receipt.Service, error) {
	taxPercent, err := types.NewMoneyFromString(cfg.Derivation.InvoiceTaxPercent)
	if err != nil {
		return nil, nil, fmt.Errorf("INVOICE_TAX_PERCENT: %w", err)
	}

	policy, err := nomenclature.PolicyFromRule(cfg.Derivation.AutoCreateRule)
	if err != nil {
		return nil, nil, fmt.Errorf("CATALOG_AUTO_CREATE_RULE: %w", err)
	}

	resolver := nomenclature.NewResolver(
		catalog_repo.NewNomenclatureRepo(txManager),
		txManager,
		nomenclature.WithPolicy(policy),
	)

	gen := numerator.New(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	}, cfg.Derivation.NumberMaxAttempts)

	receiptRepo := document_repo.NewGoodsReceiptRepo(txManager)

	derivationSvc := derivation.NewService(
		derivation.Repositories{
			Deliveries:       document_repo.NewDeliveryRepo(txManager),
			SalesOrders:      document_repo.NewSalesOrderRepo(txManager),
			Quotations:       document_repo.NewQuotationRepo(txManager),
			Enquiries:        document_repo.NewEnquiryRepo(txManager),
			SupplierQuotes:   document_repo.NewSupplierQuoteRepo(txManager),
			GoodsReceipts:    receiptRepo,
			Invoices:         document_repo.NewInvoiceRepo(txManager),
			PurchaseInvoices: document_repo.NewPurchaseInvoiceRepo(txManager),
			SupplierLPOs:     document_repo.NewSupplierLPORepo(txManager),
		},
		resolver,
		gen,
		txManager,
		derivation.WithTaxPercent(taxPercent),
		derivation.WithObserver(observer),
		derivation.WithAuditRecorder(auditLog),
		derivation.WithEventPublisher(postgres.NewOutboxPublisher(txManager)),
	)

	receiptSvc := goods_receipt.NewService(receiptRepo, txManager)
	derivationSvc.RegisterReceiptHooks(receiptSvc.Hooks())

	return derivationSvc, receiptSvc, nil
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	c := auth.DefaultJWTConfig(cfg.JWT.Secret)
	if cfg.JWT.Issuer != "" {
		c.Issuer = cfg.JWT.Issuer
	}
	return c
}
