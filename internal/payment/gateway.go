// Package payment charges orders through a pluggable gateway.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashendes/storefront/internal/models"
	"github.com/ashendes/storefront/internal/patterns"
	"github.com/go-resty/resty/v2"
)

// Charge is a request to collect money for an order
type Charge struct {
	OrderID string
	Amount  float64
	Method  models.PaymentMethod
}

// Receipt identifies a successful charge
type Receipt struct {
	TransactionID string
}

// Gateway collects payments. A declined charge returns models.ErrPaymentDeclined;
// a gateway that cannot answer returns models.ErrGatewayUnavailable.
type Gateway interface {
	Charge(ctx context.Context, charge Charge) (Receipt, error)
}

// DefaultSuccessRate approves roughly nine charges in ten
const DefaultSuccessRate = 0.9

// RandomGateway approves charges with probability SuccessRate
type RandomGateway struct {
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
	seq atomic.Int64
	now func() time.Time
}

// NewRandomGateway creates an in-process gateway; seed makes outcomes reproducible
func NewRandomGateway(successRate float64, seed int64) *RandomGateway {
	return &RandomGateway{
		successRate: successRate,
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
	}
}

func (g *RandomGateway) Charge(ctx context.Context, charge Charge) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", models.ErrGatewayUnavailable, err)
	}

	g.mu.Lock()
	roll := g.rng.Float64()
	g.mu.Unlock()

	if roll >= g.successRate {
		return Receipt{}, fmt.Errorf("order %s: %w", charge.OrderID, models.ErrPaymentDeclined)
	}

	n := g.seq.Add(1)
	return Receipt{TransactionID: fmt.Sprintf("mock_%d_%d", g.now().UnixMilli(), n)}, nil
}

// HTTPGateway charges through the remote payment service
type HTTPGateway struct {
	client   *resty.Client
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
	baseURL  string
}

// NewHTTPGateway creates a gateway guarded by a circuit breaker and bulkhead
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0), // the circuit breaker decides when to stop calling
		circuit:  patterns.NewCircuitBreaker("Payment", "storefront-service"),
		bulkhead: patterns.NewBulkhead(10, "payment", "storefront-service"),
		baseURL:  baseURL,
	}
}

// chargeResult carries the provider's answer through the breaker; a decline is a healthy response
type chargeResult struct {
	declined bool
	response models.ChargeResponse
}

func (g *HTTPGateway) Charge(ctx context.Context, charge Charge) (Receipt, error) {
	chargeRequest := models.ChargeRequest{
		OrderID: charge.OrderID,
		Amount:  charge.Amount,
		Method:  charge.Method,
	}

	var result chargeResult
	err := g.bulkhead.ExecuteContext(ctx, func() error {
		out, cbErr := g.circuit.Execute(func() (interface{}, error) {
			resp, httpErr := g.client.R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json").
				SetBody(chargeRequest).
				Post(g.baseURL + "/payment/charge")

			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}

			var response models.ChargeResponse
			switch resp.StatusCode() {
			case http.StatusOK:
			case http.StatusPaymentRequired:
				_ = json.Unmarshal(resp.Body(), &response)
				return chargeResult{declined: true, response: response}, nil
			default:
				return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode(), resp.String())
			}

			if err := json.Unmarshal(resp.Body(), &response); err != nil {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}
			if response.Status != models.TransactionStatusCompleted {
				return chargeResult{declined: true, response: response}, nil
			}
			return chargeResult{response: response}, nil
		})
		if cbErr != nil {
			return patterns.FormatError("Payment", cbErr)
		}
		result = out.(chargeResult)
		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", models.ErrGatewayUnavailable, err)
	}

	if result.declined {
		msg := result.response.Message
		if msg == "" {
			msg = "declined by provider"
		}
		return Receipt{}, fmt.Errorf("order %s: %s: %w", charge.OrderID, msg, models.ErrPaymentDeclined)
	}
	return Receipt{TransactionID: result.response.TransactionID}, nil
}

// CircuitReporter is implemented by gateways guarded by a circuit breaker
type CircuitReporter interface {
	CircuitState() string
	CircuitStateValue() int
}

// CircuitState reports the breaker state for status endpoints
func (g *HTTPGateway) CircuitState() string {
	return g.circuit.GetState()
}

func (g *HTTPGateway) CircuitStateValue() int {
	return g.circuit.GetStateValue()
}

// IsCircuitOpen reports whether err came from a short-circuited call
func IsCircuitOpen(err error) bool {
	return errors.Is(err, patterns.ErrCircuitOpen)
}
