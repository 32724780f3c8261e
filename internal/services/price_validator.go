package services

import (
	"fmt"

	"github.com/cartageapp/cartage/internal/catalog"
	"github.com/cartageapp/cartage/internal/models"
)

// CatalogPriceValidator checks order items against the product catalog.
// It exists only when a catalog is configured; without one the service
// trusts client prices.
type CatalogPriceValidator struct {
	catalog *catalog.Catalog
}

func NewCatalogPriceValidator(c *catalog.Catalog) *CatalogPriceValidator {
	return &CatalogPriceValidator{catalog: c}
}

func (v *CatalogPriceValidator) ValidateItems(items []models.LineItem) error {
	for _, item := range items {
		product := v.catalog.Find(item.ProductID)
		if product == nil {
			return fmt.Errorf("unknown product: %s", item.ProductID)
		}
		if !product.Active {
			return fmt.Errorf("product not available: %s", item.ProductID)
		}
		if item.UnitPriceCents != product.UnitPriceCents {
			return fmt.Errorf("price mismatch for %s: got %d, catalog says %d",
				item.ProductID, item.UnitPriceCents, product.UnitPriceCents)
		}
	}
	return nil
}
