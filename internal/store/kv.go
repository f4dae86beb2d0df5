package store

import "context"

// Keys under which the storefront persists its three collections.
const (
	KeyProducts = "store_products"
	KeyCart     = "store_cart"
	KeyOrders   = "store_orders"
)

// KV is the persistence adapter contract: an opaque key-value capability
// holding one serialized collection per key.
type KV interface {
	// Load returns the stored value and whether the key was present.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}
