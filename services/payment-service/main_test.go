package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashendes/storefront/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func charge(t *testing.T, router *gin.Engine, req models.ChargeRequest) (*httptest.ResponseRecorder, models.ChargeResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payment/charge", bytes.NewReader(body)))

	var resp models.ChargeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestCharge_ApprovedIsRecorded(t *testing.T) {
	router := newRouter(NewPaymentService(1, 1))

	w, resp := charge(t, router, models.ChargeRequest{OrderID: "order-1", Amount: 25, Method: models.PaymentMethodCreditCard})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TransactionStatusCompleted, resp.Status)
	require.NotEmpty(t, resp.TransactionID)

	lookup := httptest.NewRecorder()
	router.ServeHTTP(lookup, httptest.NewRequest(http.MethodGet, "/payment/transaction/"+resp.TransactionID, nil))
	require.Equal(t, http.StatusOK, lookup.Code)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(lookup.Body.Bytes(), &tx))
	assert.Equal(t, "order-1", tx.OrderID)
	assert.Equal(t, 25.0, tx.Amount)
}

func TestCharge_DeclinedIsPaymentRequired(t *testing.T) {
	router := newRouter(NewPaymentService(0, 1))

	w, resp := charge(t, router, models.ChargeRequest{OrderID: "order-1", Amount: 25, Method: models.PaymentMethodPayPal})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, models.TransactionStatusFailed, resp.Status)
}

func TestCharge_InvalidRequest(t *testing.T) {
	router := newRouter(NewPaymentService(1, 1))

	w, _ := charge(t, router, models.ChargeRequest{Amount: 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransaction_NotFound(t *testing.T) {
	router := newRouter(NewPaymentService(1, 1))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payment/transaction/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChaosToggles(t *testing.T) {
	ps := NewPaymentService(1, 1)
	router := newRouter(ps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chaos/payment/enable", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ps.getChaosEnabled())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chaos/payment/disable", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ps.getChaosEnabled())
	assert.False(t, ps.getSlowMode())
}
