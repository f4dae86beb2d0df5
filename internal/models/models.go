package models

import "time"

// StockStatus is informational only; it never gates the cart.
type StockStatus string

const (
	StockInStock        StockStatus = "in_stock"
	StockFewUnits       StockStatus = "few_units"
	StockPendingRestock StockStatus = "pending_restock"
	StockUnavailable    StockStatus = "unavailable"
)

// StockStatuses lists every status in display order.
var StockStatuses = []StockStatus{StockInStock, StockFewUnits, StockPendingRestock, StockUnavailable}

// Valid reports whether s is a known stock status.
func (s StockStatus) Valid() bool {
	switch s {
	case StockInStock, StockFewUnits, StockPendingRestock, StockUnavailable:
		return true
	}
	return false
}

// PaymentMethod is the mobile-money network chosen at checkout
type PaymentMethod string

const (
	PaymentMTN    PaymentMethod = "mtn"
	PaymentAirtel PaymentMethod = "airtel"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMTN || m == PaymentAirtel
}

// OrderStatus is either pending or confirmed; there are no other states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Product represents a product in the catalog
type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Price       int64       `json:"price"`
	Image       string      `json:"image"`
	Description string      `json:"description"`
	StockStatus StockStatus `json:"stockStatus,omitempty"`
}

// Normalize fills defaults for records persisted before stock status existed.
func (p *Product) Normalize() {
	if p.StockStatus == "" {
		p.StockStatus = StockInStock
	}
}

// CartItem is a frozen snapshot of a product plus the quantity in the cart.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price * quantity
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// CartSummary is the cart lines together with their total and item count,
// taken at the same instant.
type CartSummary struct {
	Items []CartItem `json:"items"`
	Total int64      `json:"total"`
	Count int        `json:"count"`
}

// Order represents a placed order. Only Status changes after creation.
type Order struct {
	ID            string        `json:"id"`
	Reference     string        `json:"reference"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Items         []CartItem    `json:"items"`
	Total         int64         `json:"total"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Clone returns a copy of the order that shares no item storage with o.
func (o Order) Clone() Order {
	o.Items = CloneItems(o.Items)
	return o
}

// CloneItems deep-copies a list of cart items.
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}

// ProductDraft holds the fields an admin supplies for a new product
type ProductDraft struct {
	Name        string      `json:"name" binding:"required"`
	Price       int64       `json:"price" binding:"min=0"`
	Image       string      `json:"image"`
	Description string      `json:"description"`
	StockStatus StockStatus `json:"stockStatus"`
}

// ProductPatch carries the subset of fields to merge into a product.
type ProductPatch struct {
	Name        *string      `json:"name,omitempty"`
	Price       *int64       `json:"price,omitempty"`
	Image       *string      `json:"image,omitempty"`
	Description *string      `json:"description,omitempty"`
	StockStatus *StockStatus `json:"stockStatus,omitempty"`
}

// Apply merges the non-nil fields of the patch into p.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Image != nil {
		p.Image = *pp.Image
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.StockStatus != nil {
		p.StockStatus = *pp.StockStatus
	}
}

// Stats summarises the catalog and order ledger for the admin dashboard
type Stats struct {
	Products         int                 `json:"products"`
	Orders           int                 `json:"orders"`
	ConfirmedOrders  int                 `json:"confirmedOrders"`
	PendingOrders    int                 `json:"pendingOrders"`
	ConfirmedRevenue int64               `json:"confirmedRevenue"`
	ByStockStatus    map[StockStatus]int `json:"byStockStatus"`
}
