package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
)

// AddToCart puts one unit of product into the cart. A product already in the
// cart has its quantity incremented; otherwise a snapshot of the product is
// taken and later catalog edits do not reach it.
func (s *Storefront) AddToCart(ctx context.Context, product models.Product) (models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.AddToCart")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addToCartLocked(ctx, product)
}

// AddProductToCart looks the product up in the catalog and adds it to the cart.
func (s *Storefront) AddProductToCart(ctx context.Context, productID string) (models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "Storefront.AddProductToCart")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(productID)
	if idx < 0 {
		return models.CartItem{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return s.addToCartLocked(ctx, s.products[idx])
}

func (s *Storefront) addToCartLocked(ctx context.Context, product models.Product) (models.CartItem, error) {
	next := models.CloneItems(s.cart)
	idx := cartIndex(next, product.ID)
	if idx >= 0 {
		next[idx].Quantity++
	} else {
		product.Normalize()
		next = append(next, models.CartItem{Product: product, Quantity: 1})
		idx = len(next) - 1
	}

	if err := s.persist(ctx, write{key: store.KeyCart, next: next, prev: s.cart}); err != nil {
		return models.CartItem{}, err
	}
	s.cart = next
	util.CartAddsTotal.Inc()
	return next[idx], nil
}

// UpdateQuantity sets the quantity of a cart line to exactly quantity.
// A quantity of zero or less removes the line.
func (s *Storefront) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}

	ctx, span := util.StartSpan(ctx, "Storefront.UpdateQuantity")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := cartIndex(s.cart, productID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}

	next := models.CloneItems(s.cart)
	next[idx].Quantity = quantity
	if err := s.persist(ctx, write{key: store.KeyCart, next: next, prev: s.cart}); err != nil {
		return err
	}
	s.cart = next
	return nil
}

// RemoveFromCart drops the cart line for productID
func (s *Storefront) RemoveFromCart(ctx context.Context, productID string) error {
	ctx, span := util.StartSpan(ctx, "Storefront.RemoveFromCart")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := cartIndex(s.cart, productID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}

	next := make([]models.CartItem, 0, len(s.cart)-1)
	next = append(next, s.cart[:idx]...)
	next = append(next, s.cart[idx+1:]...)
	if err := s.persist(ctx, write{key: store.KeyCart, next: next, prev: s.cart}); err != nil {
		return err
	}
	s.cart = next
	return nil
}

// ClearCart empties the cart
func (s *Storefront) ClearCart(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "Storefront.ClearCart")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := []models.CartItem{}
	if err := s.persist(ctx, write{key: store.KeyCart, next: next, prev: s.cart}); err != nil {
		return err
	}
	s.cart = next
	return nil
}

// Cart returns a copy of the current cart lines
func (s *Storefront) Cart() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneItems(s.cart)
}

// CartSummary returns the cart lines, total and count from one consistent read.
func (s *Storefront) CartSummary() models.CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CartSummary{
		Items: models.CloneItems(s.cart),
		Total: itemsTotal(s.cart),
		Count: itemsCount(s.cart),
	}
}

// CartTotal is the sum of price * quantity over the cart.
func (s *Storefront) CartTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemsTotal(s.cart)
}

// CartCount is the sum of quantities over the cart.
func (s *Storefront) CartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemsCount(s.cart)
}

func itemsTotal(items []models.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

func itemsCount(items []models.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func cartIndex(items []models.CartItem, productID string) int {
	for i := range items {
		if items[i].ID == productID {
			return i
		}
	}
	return -1
}
