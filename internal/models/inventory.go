package models

import "time"

// Product represents a catalogue item with its stock counters
type Product struct {
	ID                string    `json:"id" bson:"_id"`
	Name              string    `json:"name" bson:"name"`
	Description       string    `json:"description" bson:"description"`
	Price             float64   `json:"price" bson:"price"`
	Category          string    `json:"category" bson:"category"`
	Brand             string    `json:"brand" bson:"brand"`
	SKU               string    `json:"sku" bson:"sku"`
	Images            []string  `json:"images" bson:"images"`
	Colors            []string  `json:"colors,omitempty" bson:"colors,omitempty"`
	Sizes             []string  `json:"sizes,omitempty" bson:"sizes,omitempty"`
	CountInStock      int       `json:"countInStock" bson:"countInStock"`
	LowStockThreshold int       `json:"lowStockThreshold" bson:"lowStockThreshold"`
	SoldCount         int       `json:"soldCount" bson:"soldCount"`
	Rating            float64   `json:"rating" bson:"rating"`
	NumReviews        int       `json:"numReviews" bson:"numReviews"`
	IsActive          bool      `json:"isActive" bson:"isActive"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PrimaryImage returns the first image, or an empty string
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// IsLowStock reports whether stock is at or below the product threshold
func (p *Product) IsLowStock() bool {
	return p.CountInStock <= p.LowStockThreshold
}

// ProductSummary is the product view embedded in cart lines on read
type ProductSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	Price        float64 `json:"price"`
	CountInStock int     `json:"countInStock"`
}

// Summary builds the cart-line view of a product
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:           p.ID,
		Name:         p.Name,
		Image:        p.PrimaryImage(),
		Price:        p.Price,
		CountInStock: p.CountInStock,
	}
}

// ProductFilter narrows a catalogue listing
type ProductFilter struct {
	Category string
	Page     int
	Limit    int
}

// StockAdjustment moves stock by Delta and sold count by -Delta
type StockAdjustment struct {
	ProductID string
	Delta     int
}

// SetStockRequest represents an admin request to overwrite stock
type SetStockRequest struct {
	CountInStock *int `json:"countInStock" binding:"required,gte=0"`
}

// SetStockResponse represents the response after overwriting stock
type SetStockResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	OldStock int    `json:"oldStock"`
	NewStock int    `json:"newStock"`
}

// ProductListResponse represents a page of the catalogue
type ProductListResponse struct {
	Success  bool       `json:"success"`
	Products []*Product `json:"products"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	Pages    int        `json:"pages"`
}
