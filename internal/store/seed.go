package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashendes/storefront/internal/models"
	log "github.com/sirupsen/logrus"
)

// SampleProducts returns the demo catalogue
func SampleProducts(now time.Time) []*models.Product {
	sample := []models.Product{
		{ID: "prod-iphone-13", Name: "Apple iPhone 13", Price: 799.99, Category: "electronics", Brand: "Apple", SKU: "IPHONE13-128-BLACK",
			Colors: []string{"Black", "White", "Blue", "Red"}, CountInStock: 25, LowStockThreshold: 5},
		{ID: "prod-galaxy-s22", Name: "Samsung Galaxy S22", Price: 749.99, Category: "electronics", Brand: "Samsung", SKU: "GALAXYS22-128",
			Colors: []string{"Phantom Black", "Green"}, CountInStock: 30, LowStockThreshold: 5},
		{ID: "prod-airpods-pro", Name: "AirPods Pro", Price: 249.99, Category: "electronics", Brand: "Apple", SKU: "AIRPODS-PRO",
			CountInStock: 8, LowStockThreshold: 10},
		{ID: "prod-denim-jacket", Name: "Classic Denim Jacket", Price: 89.99, Category: "clothing", Brand: "Levi's", SKU: "DENIM-JKT",
			Colors: []string{"Blue", "Black"}, Sizes: []string{"S", "M", "L", "XL"}, CountInStock: 40, LowStockThreshold: 10},
		{ID: "prod-running-shoes", Name: "Running Shoes", Price: 129.99, Category: "sports", Brand: "Nike", SKU: "RUN-SHOE-01",
			Sizes: []string{"40", "41", "42", "43", "44"}, CountInStock: 60, LowStockThreshold: 10},
		{ID: "prod-go-book", Name: "The Go Programming Language", Price: 39.99, Category: "books", Brand: "Addison-Wesley", SKU: "BOOK-GOPL",
			CountInStock: 100, LowStockThreshold: 10},
	}

	products := make([]*models.Product, 0, len(sample))
	for i := range sample {
		p := sample[i]
		p.Description = p.Name
		p.Images = []string{fmt.Sprintf("/images/%s.jpg", p.ID)}
		p.IsActive = true
		p.CreatedAt = now
		p.UpdatedAt = now
		products = append(products, &p)
	}
	return products
}

// Seed inserts the sample catalogue when the product collection is empty
func Seed(ctx context.Context, s Store) error {
	_, total, err := s.Products().List(ctx, models.ProductFilter{Limit: 1})
	if err != nil {
		return err
	}
	if total > 0 {
		log.WithField("products", total).Info("Catalogue already seeded")
		return nil
	}

	products := SampleProducts(time.Now())
	for _, p := range products {
		if err := s.Products().Insert(ctx, p); err != nil {
			return err
		}
	}

	log.WithField("products", len(products)).Info("Seeded sample catalogue")
	return nil
}
