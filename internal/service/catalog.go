package service

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// AddProduct assigns a fresh id to the draft and appends it to the catalog.
// Name collisions are allowed.
func (s *Storefront) AddProduct(ctx context.Context, draft models.ProductDraft) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.AddProduct")
	defer span.End()

	product := models.Product{
		Name:        strings.TrimSpace(draft.Name),
		Price:       draft.Price,
		Image:       strings.TrimSpace(draft.Image),
		Description: strings.TrimSpace(draft.Description),
		StockStatus: draft.StockStatus,
	}
	product.Normalize()
	if err := validateProduct(product); err != nil {
		return models.Product{}, err
	}

	s.mu.Lock()
	product.ID = s.ids.Next()
	next := append(cloneProducts(s.products), product)
	if err := s.persist(ctx, write{key: store.KeyProducts, next: next, prev: s.products}); err != nil {
		s.mu.Unlock()
		return models.Product{}, err
	}
	s.products = next
	util.CatalogSize.Set(float64(len(next)))
	s.mu.Unlock()

	util.ProductsAddedTotal.Inc()
	s.logger.Info("Product added", zap.String("product_id", product.ID), zap.String("name", product.Name))
	s.publishProduct(ctx, models.EventTypeProductAdded, product)
	return product, nil
}

// UpdateProduct merges the patch into the product with the given id.
func (s *Storefront) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.UpdateProduct")
	defer span.End()

	s.mu.Lock()
	idx := s.productIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	next := cloneProducts(s.products)
	patch.Apply(&next[idx])
	next[idx].Normalize()
	if err := validateProduct(next[idx]); err != nil {
		s.mu.Unlock()
		return models.Product{}, err
	}
	if err := s.persist(ctx, write{key: store.KeyProducts, next: next, prev: s.products}); err != nil {
		s.mu.Unlock()
		return models.Product{}, err
	}
	s.products = next
	updated := next[idx]
	s.mu.Unlock()

	s.logger.Info("Product updated",
		zap.String("product_id", id),
		zap.String("stock_status", string(updated.StockStatus)))
	s.publishProduct(ctx, models.EventTypeProductUpdated, updated)
	return updated, nil
}

// RemoveProduct drops the product from the catalog. Carts and orders that
// already hold a snapshot of it are left alone.
func (s *Storefront) RemoveProduct(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "Storefront.RemoveProduct")
	defer span.End()

	s.mu.Lock()
	idx := s.productIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	removed := s.products[idx]
	next := make([]models.Product, 0, len(s.products)-1)
	next = append(next, s.products[:idx]...)
	next = append(next, s.products[idx+1:]...)
	if err := s.persist(ctx, write{key: store.KeyProducts, next: next, prev: s.products}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.products = next
	util.CatalogSize.Set(float64(len(next)))
	s.mu.Unlock()

	util.ProductsRemovedTotal.Inc()
	s.logger.Info("Product removed", zap.String("product_id", id))
	s.publishProduct(ctx, models.EventTypeProductRemoved, removed)
	return nil
}

// Products returns the catalog in insertion order
func (s *Storefront) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProducts(s.products)
}

// ProductsByStatus filters the catalog by stock status; an empty status returns everything.
func (s *Storefront) ProductsByStatus(status models.StockStatus) []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if status == "" || p.StockStatus == status {
			out = append(out, p)
		}
	}
	return out
}

// Product returns a single catalog entry
func (s *Storefront) Product(id string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return s.products[idx], nil
}

func (s *Storefront) productIndex(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Storefront) publishProduct(ctx context.Context, eventType string, p models.Product) {
	event := &models.ProductEvent{BaseEvent: newEvent(eventType, s.now()), Product: p}
	if err := s.events.PublishProductEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish product event",
			zap.String("event_type", eventType),
			zap.String("product_id", p.ID),
			zap.Error(err))
	}
}

func validateProduct(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if !p.StockStatus.Valid() {
		return fmt.Errorf("%w: unknown stock status %q", ErrInvalidProduct, p.StockStatus)
	}
	return nil
}

func cloneProducts(products []models.Product) []models.Product {
	out := make([]models.Product, len(products))
	copy(out, products)
	return out
}
