package models

// DefaultProducts returns the catalog a fresh store starts with.
func DefaultProducts() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Premium Wireless Headphones",
			Price:       150000,
			Image:       "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400&q=80",
			Description: "High-quality wireless headphones with noise cancellation and 30-hour battery life.",
			StockStatus: StockInStock,
		},
		{
			ID:          "2",
			Name:        "Smart Watch Pro",
			Price:       280000,
			Image:       "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=400&q=80",
			Description: "Advanced smartwatch with health monitoring, GPS, and water resistance.",
			StockStatus: StockInStock,
		},
		{
			ID:          "3",
			Name:        "Leather Backpack",
			Price:       95000,
			Image:       "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=400&q=80",
			Description: "Genuine leather backpack with laptop compartment and premium finish.",
			StockStatus: StockFewUnits,
		},
		{
			ID:          "4",
			Name:        "Running Sneakers",
			Price:       120000,
			Image:       "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=400&q=80",
			Description: "Lightweight running shoes with advanced cushioning technology.",
			StockStatus: StockInStock,
		},
		{
			ID:          "5",
			Name:        "Bluetooth Speaker",
			Price:       75000,
			Image:       "https://images.unsplash.com/photo-1608043152269-423dbba4e7e1?w=400&q=80",
			Description: "Portable speaker with deep bass and 20-hour playtime.",
			StockStatus: StockPendingRestock,
		},
		{
			ID:          "6",
			Name:        "Sunglasses Classic",
			Price:       45000,
			Image:       "https://images.unsplash.com/photo-1572635196237-14b3f281503f?w=400&q=80",
			Description: "UV protection sunglasses with polarized lenses and metal frame.",
			StockStatus: StockInStock,
		},
	}
}
