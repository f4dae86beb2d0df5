package service

import (
	"context"
	"sync"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CheckoutRequest represents the checkout form
type CheckoutRequest struct {
	CustomerName   string               `json:"customerName"`
	CustomerPhone  string               `json:"customerPhone"`
	PaymentMethod  models.PaymentMethod `json:"paymentMethod"`
	IdempotencyKey string               `json:"idempotencyKey,omitempty"`
}

// CheckoutResponse carries the placed order and how to pay for it
type CheckoutResponse struct {
	Order        models.Order         `json:"order"`
	Instructions *PaymentInstructions `json:"instructions"`
	Replayed     bool                 `json:"replayed"`
}

// CheckoutService turns the cart into an order, once per idempotency key
type CheckoutService struct {
	mu          sync.Mutex
	storefront  *Storefront
	payments    *PaymentService
	idempotency IdempotencyStore
	logger      *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(storefront *Storefront, payments *PaymentService, idempotency IdempotencyStore) *CheckoutService {
	return &CheckoutService{
		storefront:  storefront,
		payments:    payments,
		idempotency: idempotency,
		logger:      util.GetLogger(),
	}
}

// Checkout creates a pending order from the cart. A repeated idempotency key
// returns the order created by the first request instead of a new one.
func (cs *CheckoutService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if req.IdempotencyKey != "" {
		if existing, ok := cs.replay(ctx, req.IdempotencyKey); ok {
			return &CheckoutResponse{
				Order:        existing,
				Instructions: cs.payments.Instructions(existing),
				Replayed:     true,
			}, nil
		}
	}

	order, err := cs.storefront.CreateOrder(ctx, req.CustomerName, req.CustomerPhone, req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if err := cs.idempotency.Remember(ctx, req.IdempotencyKey, order.Reference); err != nil {
			cs.logger.Error("Failed to remember idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(err))
		}
	}

	return &CheckoutResponse{
		Order:        order,
		Instructions: cs.payments.Instructions(order),
	}, nil
}

func (cs *CheckoutService) replay(ctx context.Context, key string) (models.Order, bool) {
	reference, ok, err := cs.idempotency.Lookup(ctx, key)
	if err != nil {
		cs.logger.Warn("Idempotency lookup failed, treating as new checkout",
			zap.String("idempotency_key", key),
			zap.Error(err))
		return models.Order{}, false
	}
	if !ok {
		return models.Order{}, false
	}

	order, err := cs.storefront.Order(reference)
	if err != nil {
		return models.Order{}, false
	}
	cs.logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", key),
		zap.String("reference", reference))
	return order, true
}
