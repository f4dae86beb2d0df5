package models

import "time"

// Event types
const (
	EventTypeProductAdded    = "PRODUCT_ADDED"
	EventTypeProductUpdated  = "PRODUCT_UPDATED"
	EventTypeProductRemoved  = "PRODUCT_REMOVED"
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeOrderConfirmed  = "ORDER_CONFIRMED"
	EventTypePaymentReceived = "PAYMENT_RECEIVED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductEvent published when the catalog changes
type ProductEvent struct {
	BaseEvent
	Product Product `json:"product"`
}

// OrderCreatedEvent published when checkout places an order
type OrderCreatedEvent struct {
	BaseEvent
	Reference     string        `json:"reference"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Total         int64         `json:"total"`
	Items         []CartItem    `json:"items"`
}

// OrderConfirmedEvent published on the pending -> confirmed transition
type OrderConfirmedEvent struct {
	BaseEvent
	Reference string `json:"reference"`
	Total     int64  `json:"total"`
}

// PaymentReceivedEvent is consumed from the mobile-money reconciliation feed
type PaymentReceivedEvent struct {
	BaseEvent
	Reference  string        `json:"reference"`
	Network    PaymentMethod `json:"network"`
	PayerName  string        `json:"payer_name"`
	PayerPhone string        `json:"payer_phone"`
	Amount     int64         `json:"amount"`
}
