package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/ashendes/storefront/internal/models"
	"github.com/gin-gonic/gin"
)

type productQuery struct {
	Category string `form:"category"`
	Page     int    `form:"page" binding:"omitempty,gte=1"`
	Limit    int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

func (h *Handler) listProducts(c *gin.Context) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.inventory.List(c.Request.Context(), models.ProductFilter{
		Category: q.Category,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

func (h *Handler) setStock(c *gin.Context) {
	var req models.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.inventory.SetStock(c.Request.Context(), c.Param("id"), *req.CountInStock)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Success: true, Cart: cart})
}

func (h *Handler) addToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := h.carts.Add(c.Request.Context(), callerFrom(c).UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Success: true, Message: "Item added to cart", Cart: cart})
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), callerFrom(c).UserID, req.ItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Success: true, Message: "Cart updated", Cart: cart})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	cart, err := h.carts.Remove(c.Request.Context(), callerFrom(c).UserID, c.Param("itemId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Success: true, Message: "Item removed from cart", Cart: cart})
}

func (h *Handler) clearCart(c *gin.Context) {
	cart, err := h.carts.Clear(c.Request.Context(), callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{Success: true, Message: "Cart cleared", Cart: cart})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), callerFrom(c).UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.OrderResponse{Success: true, Message: "Order created", Order: order})
}

func (h *Handler) myOrders(c *gin.Context) {
	orders, err := h.orders.ListMine(c.Request.Context(), callerFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderListResponse{Success: true, Orders: orders})
}

func (h *Handler) allOrders(c *gin.Context) {
	orders, err := h.orders.ListAll(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderListResponse{Success: true, Orders: orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderResponse{Success: true, Order: order})
}

func (h *Handler) markPaid(c *gin.Context) {
	var req models.MarkPaidRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.MarkPaid(c.Request.Context(), callerFrom(c).UserID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderResponse{Success: true, Message: "Order marked as paid", Order: order})
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderResponse{Success: true, Message: "Order status updated", Order: order})
}

func (h *Handler) processPayment(c *gin.Context) {
	var req models.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.payments.Process(c.Request.Context(), callerFrom(c).UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProcessPaymentResponse{
		Success:       true,
		Message:       "Payment processed successfully",
		TransactionID: order.PaymentInfo.TransactionID,
		Order:         order,
	})
}

func (h *Handler) paymentStatus(c *gin.Context) {
	status, err := h.payments.Status(c.Request.Context(), callerFrom(c).UserID, c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// circuitStatus reports the payment gateway's circuit breaker
func (h *Handler) circuitStatus(c *gin.Context) {
	circuit, ok := h.payments.Circuit()
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"payment_circuit": gin.H{
				"name":  "Payment",
				"state": "not configured",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_circuit": gin.H{
			"name":  "Payment",
			"state": circuit.CircuitState(),
			"value": circuit.CircuitStateValue(),
		},
	})
}
