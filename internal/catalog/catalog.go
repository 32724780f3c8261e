// Package catalog parses the product catalog used for optional order
// re-pricing and notification content.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Shop     ShopInfo  `yaml:"shop"`
	Products []Product `yaml:"products"`
}

type ShopInfo struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

type Product struct {
	SKU            string   `yaml:"sku"`
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	UnitPriceCents int      `yaml:"unit_price_cents"`
	Active         bool     `yaml:"active"`
	Sizes          []string `yaml:"sizes"`
	Colors         []string `yaml:"colors"`
}

func Parse(content []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(content, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(content)
}

// Validate checks structural invariants: at least one product, unique
// SKUs, non-negative prices.
func (c *Catalog) Validate() error {
	if len(c.Products) == 0 {
		return fmt.Errorf("catalog has no products")
	}

	seen := make(map[string]struct{}, len(c.Products))
	for i, product := range c.Products {
		if product.SKU == "" {
			return fmt.Errorf("product %d has no SKU", i)
		}
		if _, dup := seen[product.SKU]; dup {
			return fmt.Errorf("duplicate SKU: %s", product.SKU)
		}
		seen[product.SKU] = struct{}{}

		if product.UnitPriceCents < 0 {
			return fmt.Errorf("product %s has negative price", product.SKU)
		}
	}

	return nil
}

// Find returns the product with the given SKU, or nil.
func (c *Catalog) Find(sku string) *Product {
	if c == nil {
		return nil
	}
	for i := range c.Products {
		if c.Products[i].SKU == sku {
			return &c.Products[i]
		}
	}
	return nil
}
