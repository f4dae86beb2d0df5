package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_products_added_total",
		Help: "Total number of products added to the catalog",
	})

	ProductsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_products_removed_total",
		Help: "Total number of products removed from the catalog",
	})

	CatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_catalog_products",
		Help: "Number of products currently in the catalog",
	})

	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_adds_total",
		Help: "Total number of add-to-cart operations",
	})

	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Total number of orders created",
	}, []string{"payment_method"})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_confirmed_total",
		Help: "Total number of orders confirmed",
	})

	OrderConfirmMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_confirm_misses_total",
		Help: "Confirmations for references that match no order",
	})

	CheckoutRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_rejected_total",
		Help: "Checkout attempts rejected by validation",
	}, []string{"reason"})

	PaymentEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_events_total",
		Help: "Payment reconciliation events by outcome",
	}, []string{"outcome"})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_persistence_failures_total",
		Help: "Failed writes to the persistence adapter",
	}, []string{"key"})

	PersistenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_persistence_latency_seconds",
		Help:    "Latency of persistence adapter writes",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
