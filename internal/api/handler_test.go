package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func setupRouter(t *testing.T, limiter *RateLimiter) (*gin.Engine, *Handler, *service.Storefront) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sf := service.NewStorefront(store.NewMemoryKV())
	require.NoError(t, sf.Load(context.Background()))
	payments := service.NewPaymentService(sf, service.PaymentNumbers{
		models.PaymentMTN:    "0770 123 456",
		models.PaymentAirtel: "0750 123 456",
	})
	checkout := service.NewCheckoutService(sf, payments, service.NewMemoryIdempotencyStore(time.Hour))

	h := NewHandler(sf, checkout, payments, limiter)
	router := gin.New()
	h.SetupRoutes(router)
	return router, h, sf
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func fillCartHTTP(t *testing.T, router *gin.Engine) {
	t.Helper()
	for _, id := range []string{"1", "1", "6"} {
		w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"productId": id})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func checkoutBody() gin.H {
	return gin.H{"customerName": "Jane", "customerPhone": "0700111222", "paymentMethod": "mtn"}
}

func TestHealth(t *testing.T) {
	router, _, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadiness(t *testing.T) {
	router, h, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	h.AddReadinessCheck("redis", stubPinger{err: errors.New("dial tcp: connection refused")})
	w = doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestListProducts(t *testing.T) {
	router, _, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Products []models.Product `json:"products"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Products, 6)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products?status=few_units", nil)
	decode(t, w, &body)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "3", body.Products[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductLifecycle(t *testing.T) {
	router, _, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products", gin.H{"name": "Desk Lamp", "price": 60000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Product
	decode(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StockInStock, created.StockStatus)

	w = doJSON(t, router, http.MethodPatch, "/api/v1/products/"+created.ID, gin.H{"stockStatus": "unavailable"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Product
	decode(t, w, &updated)
	assert.Equal(t, models.StockUnavailable, updated.StockStatus)
	assert.Equal(t, "Desk Lamp", updated.Name)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddProductValidation(t *testing.T) {
	router, _, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products", gin.H{"price": 100})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/products", gin.H{"name": "Cap", "stockStatus": "gone"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartEndpoints(t *testing.T) {
	router, _, _ := setupRouter(t, nil)
	fillCartHTTP(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart cartResponse
	decode(t, w, &cart)
	assert.Equal(t, int64(345000), cart.Total)
	assert.Equal(t, "UGX 345,000", cart.TotalFormatted)
	assert.Equal(t, 3, cart.Count)
	assert.Len(t, cart.Items, 2)

	w = doJSON(t, router, http.MethodPut, "/api/v1/cart/items/1", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cart)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(45000), cart.Total)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/cart/items/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"productId": "404"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/v1/cart/items/6", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cart)
	assert.Empty(t, cart.Items)
}

func TestCheckoutAndConfirm(t *testing.T) {
	router, _, sf := setupRouter(t, nil)
	fillCartHTTP(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", checkoutBody(), "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp service.CheckoutResponse
	decode(t, w, &resp)
	assert.Equal(t, int64(345000), resp.Order.Total)
	assert.Equal(t, models.OrderStatusPending, resp.Order.Status)
	assert.Equal(t, "UGX 345,000", resp.Instructions.AmountFormatted)
	ref := resp.Order.Reference

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders", checkoutBody(), "Idempotency-Key", "abc")
	require.Equal(t, http.StatusOK, w.Code)
	var replay service.CheckoutResponse
	decode(t, w, &replay)
	assert.True(t, replay.Replayed)
	assert.Equal(t, ref, replay.Order.Reference)
	assert.Len(t, sf.Orders(), 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/orders/"+ref+"/instructions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var instructions service.PaymentInstructions
	decode(t, w, &instructions)
	assert.Equal(t, "0770 123 456", instructions.BusinessNumber)
	assert.Len(t, instructions.Steps, 6)

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders/"+ref+"/confirm",
		gin.H{"name": "Jane", "phone": "0700111222", "network": "mtn"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed models.Order
	decode(t, w, &confirmed)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
	assert.Empty(t, sf.Cart())

	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"confirmedRevenueFormatted":"UGX 345,000"`)
}

func TestCheckoutErrors(t *testing.T) {
	router, _, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", checkoutBody())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart is empty")

	fillCartHTTP(t, router)
	body := checkoutBody()
	body["customerPhone"] = "0700"
	w = doJSON(t, router, http.MethodPost, "/api/v1/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders/ORD-NOPE-0000/confirm",
		gin.H{"name": "Jane", "phone": "0700111222"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/orders/ORD-NOPE-0000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrdersNewestFirst(t *testing.T) {
	router, _, _ := setupRouter(t, nil)
	fillCartHTTP(t, router)

	var refs []string
	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/v1/orders", checkoutBody())
		require.Equal(t, http.StatusCreated, w.Code)
		var resp service.CheckoutResponse
		decode(t, w, &resp)
		refs = append(refs, resp.Order.Reference)
		time.Sleep(2 * time.Millisecond)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Orders []models.Order `json:"orders"`
	}
	decode(t, w, &body)
	require.Len(t, body.Orders, 2)
	assert.Equal(t, refs[1], body.Orders[0].Reference)
}

func TestCheckoutRateLimited(t *testing.T) {
	router, _, _ := setupRouter(t, NewRateLimiter(0.001, 1))
	fillCartHTTP(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/orders", checkoutBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/orders", checkoutBody())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Reads are not limited.
	w = doJSON(t, router, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
