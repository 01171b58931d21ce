// Package api exposes the storefront over HTTP with gin.
package api

import (
	"net/http"
	"time"

	"github.com/ashendes/storefront/internal/cart"
	"github.com/ashendes/storefront/internal/inventory"
	"github.com/ashendes/storefront/internal/metrics"
	"github.com/ashendes/storefront/internal/order"
	"github.com/ashendes/storefront/internal/patterns"
	"github.com/ashendes/storefront/internal/payment"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceName labels metrics and health responses
const ServiceName = "storefront-service"

// Handler serves the storefront routes
type Handler struct {
	inventory *inventory.Service
	carts     *cart.Service
	orders    *order.Service
	payments  *payment.Service
}

// NewHandler wires the services into HTTP handlers
func NewHandler(inv *inventory.Service, carts *cart.Service, orders *order.Service, payments *payment.Service) *Handler {
	return &Handler{
		inventory: inv,
		carts:     carts,
		orders:    orders,
		payments:  payments,
	}
}

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware(ServiceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   ServiceName,
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/circuit/status", h.circuitStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", Timeout(patterns.StoreTimeout))

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/:id", h.getProduct)
	products.PUT("/:id/stock", Authenticate(), RequireAdmin(), h.setStock)

	carts := api.Group("/cart", Authenticate())
	carts.GET("", h.getCart)
	carts.POST("/add", h.addToCart)
	carts.PUT("/update", h.updateCartItem)
	carts.DELETE("/remove/:itemId", h.removeCartItem)
	carts.DELETE("/clear", h.clearCart)

	orders := api.Group("/orders", Authenticate())
	orders.POST("", h.createOrder)
	orders.GET("/myorders", h.myOrders)
	orders.GET("", RequireAdmin(), h.allOrders)
	orders.GET("/:id", h.getOrder)
	orders.PUT("/:id/pay", h.markPaid)
	orders.PUT("/:id/status", RequireAdmin(), h.updateStatus)

	payments := api.Group("/payment", Authenticate())
	payments.POST("/process", h.processPayment)
	payments.GET("/status/:orderId", h.paymentStatus)

	admin := api.Group("/admin", Authenticate(), RequireAdmin())
	admin.GET("/stats", h.stats)

	return router
}
