package service

import "errors"

var (
	// -- Lookup misses --
	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderNotFound    = errors.New("order not found")

	// -- Validation --
	ErrInvalidProduct       = errors.New("invalid product")
	ErrInvalidCustomerName  = errors.New("customer name is required")
	ErrInvalidPhone         = errors.New("phone number must be at least 10 characters")
	ErrInvalidPaymentMethod = errors.New("payment method must be mtn or airtel")
	ErrEmptyCart            = errors.New("cart is empty")

	// -- Storage --
	ErrPersistence = errors.New("failed to persist state")
)

// MinPhoneLength is the shortest phone number accepted at checkout and confirmation.
const MinPhoneLength = 10

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrInvalidCustomerName) ||
		errors.Is(err, ErrInvalidPhone) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrEmptyCart)
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCartItemNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
