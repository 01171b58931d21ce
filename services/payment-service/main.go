package main

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/ashendes/storefront/internal/config"
	"github.com/ashendes/storefront/internal/metrics"
	"github.com/ashendes/storefront/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const serviceName = "payment-service"

// PaymentService is a mock card processor
type PaymentService struct {
	transactions map[string]*models.Transaction
	mutex        sync.RWMutex

	approvalRate float64
	rng          *rand.Rand
	rngMutex     sync.Mutex

	chaosEnabled  bool
	chaosSlowMode bool
	chaosMutex    sync.RWMutex
}

// NewPaymentService creates a processor approving approvalRate of charges
func NewPaymentService(approvalRate float64, seed int64) *PaymentService {
	return &PaymentService{
		transactions: make(map[string]*models.Transaction),
		approvalRate: approvalRate,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg := config.LoadProvider()
	log.SetLevel(cfg.ParseLevel())
	gin.SetMode(cfg.GinMode)

	ps := NewPaymentService(cfg.ApprovalRate, time.Now().UnixNano())
	router := newRouter(ps)

	log.WithField("approval_rate", cfg.ApprovalRate).Info("Payment Service starting on port " + cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func newRouter(ps *PaymentService) *gin.Engine {
	router := gin.Default()

	// Add Prometheus middleware
	router.Use(metrics.PrometheusMiddleware(serviceName))

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/payment/status", ps.getStatus)

	// Payment endpoints
	router.POST("/payment/charge", ps.chargePayment)
	router.GET("/payment/transaction/:id", ps.getTransaction)

	// Chaos engineering endpoints
	router.POST("/chaos/payment/enable", ps.enableChaos)
	router.POST("/chaos/payment/disable", ps.disableChaos)
	router.POST("/chaos/payment/slow", ps.enableSlowMode)
	router.POST("/chaos/payment/slow/disable", ps.disableSlowMode)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (ps *PaymentService) getStatus(c *gin.Context) {
	ps.mutex.RLock()
	count := len(ps.transactions)
	ps.mutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"service":         serviceName,
		"status":          "healthy",
		"approval_rate":   ps.approvalRate,
		"transactions":    count,
		"chaos_enabled":   ps.getChaosEnabled(),
		"chaos_slow_mode": ps.getSlowMode(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

func (ps *PaymentService) chargePayment(c *gin.Context) {
	var req models.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ChargeResponse{
			Status:  models.TransactionStatusFailed,
			Message: "Invalid request: " + err.Error(),
		})
		return
	}

	// Simulate chaos
	if ps.simulateChaos() {
		log.WithFields(log.Fields{
			"order_id": req.OrderID,
			"amount":   req.Amount,
		}).Warn("Chaos: Simulated payment failure")

		c.JSON(http.StatusServiceUnavailable, models.ChargeResponse{
			Status:  models.TransactionStatusFailed,
			Message: "Payment service temporarily unavailable",
		})
		return
	}

	approved := ps.roll() < ps.approvalRate
	transaction := &models.Transaction{
		ID:        uuid.New().String(),
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    models.TransactionStatusCompleted,
		Timestamp: time.Now(),
	}
	if !approved {
		transaction.Status = models.TransactionStatusFailed
	}

	ps.mutex.Lock()
	ps.transactions[transaction.ID] = transaction
	ps.mutex.Unlock()

	logger := log.WithFields(log.Fields{
		"transaction_id": transaction.ID,
		"order_id":       req.OrderID,
		"amount":         req.Amount,
	})

	if !approved {
		metrics.PaymentsTotal.WithLabelValues("declined").Inc()
		logger.Warn("Payment declined")
		c.JSON(http.StatusPaymentRequired, models.ChargeResponse{
			TransactionID: transaction.ID,
			Status:        models.TransactionStatusFailed,
			Message:       "Payment declined",
		})
		return
	}

	// Record payment amount metric
	metrics.PaymentsTotal.WithLabelValues("completed").Inc()
	metrics.PaymentAmount.Observe(req.Amount)
	logger.Info("Payment processed successfully")

	c.JSON(http.StatusOK, models.ChargeResponse{
		TransactionID: transaction.ID,
		Status:        models.TransactionStatusCompleted,
		Message:       "Payment processed successfully",
	})
}

func (ps *PaymentService) getTransaction(c *gin.Context) {
	ps.mutex.RLock()
	transaction, exists := ps.transactions[c.Param("id")]
	ps.mutex.RUnlock()

	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error":          "Transaction not found",
			"transaction_id": c.Param("id"),
		})
		return
	}

	c.JSON(http.StatusOK, transaction)
}

func (ps *PaymentService) enableChaos(c *gin.Context) {
	ps.setChaosEnabled(true)
	metrics.ChaosFailureRate.WithLabelValues(serviceName).Set(1)

	log.Info("Chaos mode ENABLED for payment service")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode enabled",
		"info":    "40% of requests will fail randomly",
	})
}

func (ps *PaymentService) disableChaos(c *gin.Context) {
	ps.setChaosEnabled(false)
	ps.setSlowMode(false)
	metrics.ChaosFailureRate.WithLabelValues(serviceName).Set(0)
	metrics.ChaosSlowMode.WithLabelValues(serviceName).Set(0)

	log.Info("Chaos mode DISABLED for payment service")
	c.JSON(http.StatusOK, gin.H{
		"message": "Chaos mode disabled",
	})
}

func (ps *PaymentService) enableSlowMode(c *gin.Context) {
	ps.setSlowMode(true)
	metrics.ChaosSlowMode.WithLabelValues(serviceName).Set(1)

	log.Info("Slow mode ENABLED for payment service")
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow mode enabled",
		"info":    "Requests will have 5-10 second delays",
	})
}

func (ps *PaymentService) disableSlowMode(c *gin.Context) {
	ps.setSlowMode(false)
	metrics.ChaosSlowMode.WithLabelValues(serviceName).Set(0)

	log.Info("Slow mode DISABLED for payment service")
	c.JSON(http.StatusOK, gin.H{
		"message": "Slow mode disabled",
	})
}

func (ps *PaymentService) setChaosEnabled(enabled bool) {
	ps.chaosMutex.Lock()
	defer ps.chaosMutex.Unlock()
	ps.chaosEnabled = enabled
}

func (ps *PaymentService) getChaosEnabled() bool {
	ps.chaosMutex.RLock()
	defer ps.chaosMutex.RUnlock()
	return ps.chaosEnabled
}

func (ps *PaymentService) setSlowMode(enabled bool) {
	ps.chaosMutex.Lock()
	defer ps.chaosMutex.Unlock()
	ps.chaosSlowMode = enabled
}

func (ps *PaymentService) getSlowMode() bool {
	ps.chaosMutex.RLock()
	defer ps.chaosMutex.RUnlock()
	return ps.chaosSlowMode
}

func (ps *PaymentService) roll() float64 {
	ps.rngMutex.Lock()
	defer ps.rngMutex.Unlock()
	return ps.rng.Float64()
}

// simulateChaos delays in slow mode and reports whether this request should fail
func (ps *PaymentService) simulateChaos() bool {
	if ps.getSlowMode() {
		ps.rngMutex.Lock()
		delay := time.Duration(5000+ps.rng.Intn(5000)) * time.Millisecond
		ps.rngMutex.Unlock()

		log.WithField("delay_ms", delay.Milliseconds()).Debug("Chaos: Simulating slow response")
		time.Sleep(delay)
	}

	// 40% failure rate
	return ps.getChaosEnabled() && ps.roll() < 0.4
}
