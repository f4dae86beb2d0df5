package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// maxReferenceAttempts bounds regeneration when a reference collides with the ledger.
const maxReferenceAttempts = 8

// CreateOrder places a pending order from a snapshot of the current cart.
// The cart itself is kept until the order is confirmed.
func (s *Storefront) CreateOrder(ctx context.Context, customerName, customerPhone string, method models.PaymentMethod) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.CreateOrder")
	defer span.End()

	name := strings.TrimSpace(customerName)
	phone := strings.TrimSpace(customerPhone)
	if err := validateCustomer(name, phone, method); err != nil {
		util.CheckoutRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return models.Order{}, err
	}

	s.mu.Lock()
	if len(s.cart) == 0 {
		s.mu.Unlock()
		util.CheckoutRejectedTotal.WithLabelValues("empty_cart").Inc()
		return models.Order{}, ErrEmptyCart
	}

	order := models.Order{
		ID:            s.ids.Next(),
		Reference:     s.nextReferenceLocked(),
		CustomerName:  name,
		CustomerPhone: phone,
		PaymentMethod: method,
		Items:         models.CloneItems(s.cart),
		Total:         itemsTotal(s.cart),
		Status:        models.OrderStatusPending,
		CreatedAt:     s.now().UTC(),
	}

	next := append(cloneOrders(s.orders), order)
	if err := s.persist(ctx, write{key: store.KeyOrders, next: next, prev: s.orders}); err != nil {
		s.mu.Unlock()
		return models.Order{}, err
	}
	s.orders = next
	s.mu.Unlock()

	util.OrdersCreatedTotal.WithLabelValues(string(method)).Inc()
	s.logger.Info("Order created",
		zap.String("reference", order.Reference),
		zap.Int64("total", order.Total),
		zap.Int("items", len(order.Items)))

	event := &models.OrderCreatedEvent{
		BaseEvent:     newEvent(models.EventTypeOrderCreated, s.now()),
		Reference:     order.Reference,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		Items:         models.CloneItems(order.Items),
	}
	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order.Clone(), nil
}

// ConfirmOrder moves the order with the given reference from pending to
// confirmed and clears the cart in the same write. An unknown reference
// leaves the cart untouched. Confirming a confirmed order is a no-op.
func (s *Storefront) ConfirmOrder(ctx context.Context, reference string) (models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.ConfirmOrder")
	defer span.End()

	s.mu.Lock()
	idx := s.orderIndex(reference)
	if idx < 0 {
		s.mu.Unlock()
		util.OrderConfirmMissesTotal.Inc()
		s.logger.Warn("Confirmation for unknown order", zap.String("reference", reference))
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, reference)
	}
	if s.orders[idx].Status == models.OrderStatusConfirmed {
		confirmed := s.orders[idx].Clone()
		s.mu.Unlock()
		return confirmed, nil
	}

	nextOrders := cloneOrders(s.orders)
	nextOrders[idx].Status = models.OrderStatusConfirmed
	nextCart := []models.CartItem{}

	err := s.persist(ctx,
		write{key: store.KeyOrders, next: nextOrders, prev: s.orders},
		write{key: store.KeyCart, next: nextCart, prev: s.cart},
	)
	if err != nil {
		s.mu.Unlock()
		return models.Order{}, err
	}
	s.orders = nextOrders
	s.cart = nextCart
	confirmed := nextOrders[idx].Clone()
	s.mu.Unlock()

	util.OrdersConfirmedTotal.Inc()
	s.logger.Info("Order confirmed", zap.String("reference", reference))

	event := &models.OrderConfirmedEvent{
		BaseEvent: newEvent(models.EventTypeOrderConfirmed, s.now()),
		Reference: confirmed.Reference,
		Total:     confirmed.Total,
	}
	if err := s.events.PublishOrderConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderConfirmed event", zap.Error(err))
	}

	return confirmed, nil
}

// Order retrieves an order by reference
func (s *Storefront) Order(reference string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.orderIndex(reference)
	if idx < 0 {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, reference)
	}
	return s.orders[idx].Clone(), nil
}

// Orders returns the ledger in creation order
func (s *Storefront) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrders(s.orders)
}

// OrdersNewestFirst returns the ledger sorted by creation time, newest first.
func (s *Storefront) OrdersNewestFirst() []models.Order {
	out := s.Orders()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Stats summarises catalog and ledger for the admin dashboard
func (s *Storefront) Stats() models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.Stats{
		Products:      len(s.products),
		Orders:        len(s.orders),
		ByStockStatus: make(map[models.StockStatus]int, len(models.StockStatuses)),
	}
	for _, status := range models.StockStatuses {
		stats.ByStockStatus[status] = 0
	}
	for _, p := range s.products {
		stats.ByStockStatus[p.StockStatus]++
	}
	for _, o := range s.orders {
		switch o.Status {
		case models.OrderStatusConfirmed:
			stats.ConfirmedOrders++
			stats.ConfirmedRevenue += o.Total
		case models.OrderStatusPending:
			stats.PendingOrders++
		}
	}
	return stats
}

func (s *Storefront) nextReferenceLocked() string {
	ref := s.refs.Next()
	for i := 1; i < maxReferenceAttempts && s.orderIndex(ref) >= 0; i++ {
		ref = s.refs.Next()
	}
	return ref
}

func (s *Storefront) orderIndex(reference string) int {
	for i := range s.orders {
		if s.orders[i].Reference == reference {
			return i
		}
	}
	return -1
}

func validateCustomer(name, phone string, method models.PaymentMethod) error {
	if name == "" {
		return ErrInvalidCustomerName
	}
	if len(phone) < MinPhoneLength {
		return ErrInvalidPhone
	}
	if !method.Valid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

func rejectReason(err error) string {
	switch err {
	case ErrInvalidCustomerName:
		return "invalid_name"
	case ErrInvalidPhone:
		return "invalid_phone"
	case ErrInvalidPaymentMethod:
		return "invalid_payment_method"
	}
	return "invalid"
}

func cloneOrders(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
