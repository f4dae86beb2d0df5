package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives domain events after a mutation has been persisted.
type EventPublisher interface {
	PublishProductEvent(ctx context.Context, event *models.ProductEvent) error
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderConfirmed(ctx context.Context, event *models.OrderConfirmedEvent) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishProductEvent(context.Context, *models.ProductEvent) error { return nil }

func (NoopPublisher) PublishOrderCreated(context.Context, *models.OrderCreatedEvent) error {
	return nil
}

func (NoopPublisher) PublishOrderConfirmed(context.Context, *models.OrderConfirmedEvent) error {
	return nil
}

// Storefront owns the catalog, the cart and the order ledger. Every
// mutation is serialized by mu, written through to the KV adapter and only
// then made visible. Reads hand out copies.
type Storefront struct {
	mu sync.Mutex

	kv          store.KV
	events      EventPublisher
	ids         *IDGenerator
	refs        *ReferenceGenerator
	now         func() time.Time
	seedCatalog bool
	logger      *zap.Logger

	products []models.Product
	cart     []models.CartItem
	orders   []models.Order
}

// Option configures a Storefront
type Option func(*Storefront)

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Storefront) { s.events = p }
}

// WithClock replaces the time source used for ids, references and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Storefront) { s.now = now }
}

// WithSeedCatalog controls whether an empty store starts with the default products.
func WithSeedCatalog(seed bool) Option {
	return func(s *Storefront) { s.seedCatalog = seed }
}

func WithReferenceGenerator(g *ReferenceGenerator) Option {
	return func(s *Storefront) { s.refs = g }
}

// NewStorefront creates an empty storefront on top of kv. Call Load before use.
func NewStorefront(kv store.KV, opts ...Option) *Storefront {
	s := &Storefront{
		kv:          kv,
		events:      NoopPublisher{},
		now:         time.Now,
		seedCatalog: true,
		logger:      util.GetLogger(),
		products:    []models.Product{},
		cart:        []models.CartItem{},
		orders:      []models.Order{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = NewIDGenerator(s.now)
	if s.refs == nil {
		s.refs = NewReferenceGenerator(s.now, time.Now().UnixNano())
	}
	return s
}

// Load reads the three collections from the KV adapter. A missing catalog is
// seeded with the default products and written back.
func (s *Storefront) Load(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Storefront.Load")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	products := []models.Product{}
	found, err := s.loadKey(ctx, store.KeyProducts, &products)
	if err != nil {
		return err
	}
	if !found && s.seedCatalog {
		products = models.DefaultProducts()
		if err := s.persist(ctx, write{key: store.KeyProducts, next: products, prev: s.products}); err != nil {
			return err
		}
	}
	for i := range products {
		products[i].Normalize()
	}

	cart := []models.CartItem{}
	if _, err := s.loadKey(ctx, store.KeyCart, &cart); err != nil {
		return err
	}

	orders := []models.Order{}
	if _, err := s.loadKey(ctx, store.KeyOrders, &orders); err != nil {
		return err
	}

	s.products = nonNil(products)
	s.cart = nonNil(cart)
	s.orders = nonNil(orders)
	util.CatalogSize.Set(float64(len(s.products)))

	s.logger.Info("Storefront state loaded",
		zap.Int("products", len(s.products)),
		zap.Int("cart_items", len(s.cart)),
		zap.Int("orders", len(s.orders)))
	return nil
}

func (s *Storefront) loadKey(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, ok, err := s.kv.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// write is one collection to be saved: next is the value being committed,
// prev the value to restore if a later write of the same operation fails.
type write struct {
	key  string
	next interface{}
	prev interface{}
}

// persist saves each write in order. On failure the writes already applied
// are restored best-effort and the caller must not commit in memory.
func (s *Storefront) persist(ctx context.Context, writes ...write) error {
	start := time.Now()
	defer func() {
		util.PersistenceLatency.Observe(time.Since(start).Seconds())
	}()

	applied := make([]write, 0, len(writes))
	for _, w := range writes {
		payload, err := json.Marshal(w.next)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrPersistence, w.key, err)
		}
		if err := s.kv.Save(ctx, w.key, payload); err != nil {
			util.PersistenceFailuresTotal.WithLabelValues(w.key).Inc()
			s.logger.Error("Failed to persist collection", zap.String("key", w.key), zap.Error(err))
			s.restore(ctx, applied)
			return fmt.Errorf("%w: %s: %v", ErrPersistence, w.key, err)
		}
		applied = append(applied, w)
	}
	return nil
}

func (s *Storefront) restore(ctx context.Context, applied []write) {
	for _, w := range applied {
		payload, err := json.Marshal(w.prev)
		if err == nil {
			err = s.kv.Save(ctx, w.key, payload)
		}
		if err != nil {
			s.logger.Error("Failed to restore collection after partial write",
				zap.String("key", w.key), zap.Error(err))
		}
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func newEvent(eventType string, at time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: at,
	}
}
