package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	storefront *service.Storefront
	checkout   *service.CheckoutService
	payments   *service.PaymentService
	limiter    *RateLimiter
	pingers    map[string]Pinger
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler. limiter may be nil to disable rate limiting.
func NewHandler(
	storefront *service.Storefront,
	checkout *service.CheckoutService,
	payments *service.PaymentService,
	limiter *RateLimiter,
) *Handler {
	return &Handler{
		storefront: storefront,
		checkout:   checkout,
		payments:   payments,
		limiter:    limiter,
		pingers:    make(map[string]Pinger),
		logger:     util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency for /ready
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.pingers[name] = p
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := h.limiter.Middleware()

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.addProduct)
		v1.GET("/products/:id", h.getProduct)
		v1.PATCH("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.removeProduct)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:id", h.updateCartItem)
		v1.DELETE("/cart/items/:id", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/orders", limited, h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:reference", h.getOrder)
		v1.GET("/orders/:reference/instructions", h.getInstructions)
		v1.POST("/orders/:reference/confirm", limited, h.confirmOrder)

		v1.GET("/admin/stats", h.getStats)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// -- Catalog --

func (h *Handler) listProducts(c *gin.Context) {
	status := models.StockStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stock status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": h.storefront.ProductsByStatus(status)})
}

func (h *Handler) addProduct(c *gin.Context) {
	var draft models.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.storefront.AddProduct(c.Request.Context(), draft)
	if err != nil {
		h.writeError(c, "Failed to add product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.storefront.Product(c.Param("id"))
	if err != nil {
		h.writeError(c, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.storefront.UpdateProduct(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) removeProduct(c *gin.Context) {
	if err := h.storefront.RemoveProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, "Failed to remove product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -- Cart --

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartResponse struct {
	models.CartSummary
	TotalFormatted string `json:"totalFormatted"`
}

func (h *Handler) cartView() cartResponse {
	summary := h.storefront.CartSummary()
	return cartResponse{
		CartSummary:    summary,
		TotalFormatted: util.FormatUGX(summary.Total),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := h.storefront.AddProductToCart(c.Request.Context(), req.ProductID); err != nil {
		h.writeError(c, "Failed to add to cart", err)
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.storefront.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		h.writeError(c, "Failed to update cart", err)
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) removeCartItem(c *gin.Context) {
	if err := h.storefront.RemoveFromCart(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, "Failed to remove from cart", err)
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.storefront.ClearCart(c.Request.Context()); err != nil {
		h.writeError(c, "Failed to clear cart", err)
		return
	}
	c.JSON(http.StatusOK, h.cartView())
}

// -- Orders --

// createOrder handles checkout
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.checkout.Checkout(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, "Failed to create order", err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *Handler) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": h.storefront.OrdersNewestFirst()})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.storefront.Order(c.Param("reference"))
	if err != nil {
		h.writeError(c, "Order not found", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) getInstructions(c *gin.Context) {
	instructions, err := h.payments.InstructionsFor(c.Param("reference"))
	if err != nil {
		h.writeError(c, "Order not found", err)
		return
	}
	c.JSON(http.StatusOK, instructions)
}

// confirmOrder is called by the shopper after paying
func (h *Handler) confirmOrder(c *gin.Context) {
	var req service.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Reference = c.Param("reference")

	order, err := h.payments.ConfirmPayment(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, "Failed to confirm order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) getStats(c *gin.Context) {
	stats := h.storefront.Stats()
	c.JSON(http.StatusOK, gin.H{
		"stats":                     stats,
		"confirmedRevenueFormatted": util.FormatUGX(stats.ConfirmedRevenue),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// writeError maps service errors onto HTTP status codes
func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case service.IsNotFound(err):
		status = http.StatusNotFound
	case service.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPersistence):
		h.logger.Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
