// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeflow/internal/infrastructure/http/v1/handlers"
	"tradeflow/internal/infrastructure/http/v1/middleware"
	"tradeflow/internal/infrastructure/metrics"
	"tradeflow/pkg/logger"
)

// Permissions checked by the routes.
const (
	PermDeriveSalesInvoice    = "derivation:sales_invoice"
	PermDerivePurchaseInvoice = "derivation:purchase_invoice"
	PermDeriveSupplierLPO     = "derivation:supplier_lpo"
	PermGoodsReceiptRead      = "document:goods_receipt:read"
	PermGoodsReceiptApprove   = "document:goods_receipt:approve"
	PermPricingQuote          = "pricing:quote"
	PermAuditRead             = "audit:read"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency is optional; nil disables replay protection.
	Idempotency middleware.IdempotencyStore

	Derivations   handlers.DerivationService
	GoodsReceipts handlers.GoodsReceiptService
	DB            handlers.Pinger

	// Audit is optional; nil leaves the history route unregistered.
	Audit handlers.AuditHistory

	// HTTPMetrics and MetricsHandler are optional.
	HTTPMetrics    *metrics.HTTP
	MetricsHandler http.Handler

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log, cfg.HTTPMetrics))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	baseHandler := handlers.NewBaseHandler()
	registerDerivationRoutes(v1, baseHandler, cfg)
	registerGoodsReceiptRoutes(v1, baseHandler, cfg)
	registerPricingRoutes(v1, baseHandler)
	if cfg.Audit != nil {
		registerAuditRoutes(v1, baseHandler, cfg.Audit)
	}

	return router
}

func registerDerivationRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewDerivationHandler(base, cfg.Derivations)

	rg.POST("/deliveries/:id/invoice", middleware.RequirePermission(PermDeriveSalesInvoice), h.InvoiceFromDelivery)
	rg.POST("/goods-receipts/:id/purchase-invoice", middleware.RequirePermission(PermDerivePurchaseInvoice), h.PurchaseInvoiceFromReceipt)
	rg.POST("/supplier-lpos", middleware.RequirePermission(PermDeriveSupplierLPO), h.SupplierLPOs)
}

func registerGoodsReceiptRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewGoodsReceiptHandler(base, cfg.GoodsReceipts)

	receipts := rg.Group("/goods-receipts")
	receipts.GET("/:id", middleware.RequirePermission(PermGoodsReceiptRead), h.Get)
	receipts.POST("/:id/approve", middleware.RequirePermission(PermGoodsReceiptApprove), h.Approve)
}

func registerPricingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler) {
	h := handlers.NewPricingHandler(base)
	rg.POST("/pricing/quote", middleware.RequirePermission(PermPricingQuote), h.Quote)
}

func registerAuditRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, history handlers.AuditHistory) {
	h := handlers.NewAuditHandler(base, history)
	rg.GET("/documents/:kind/:id/history", middleware.RequirePermission(PermAuditRead), h.History)
}
