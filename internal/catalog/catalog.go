// Package catalog reads the product catalog out of the ledger
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/models"
)

// Catalog looks products up by code
type Catalog struct {
	store ledger.Store
}

func New(store ledger.Store) *Catalog {
	return &Catalog{store: store}
}

// List returns products in sheet order. Disabled products are left out
// unless includeDisabled is set, in which case they carry Disabled=true.
func (c *Catalog) List(ctx context.Context, includeDisabled bool) ([]models.Product, error) {
	rows, err := c.store.ReadRows(ctx, ledger.ProductTable)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	disabled := make(map[string]bool)
	for _, r := range rows {
		if code := models.DisabledCodeFromRow(r); code != "" {
			disabled[strings.ToLower(code)] = true
		}
	}

	var out []models.Product
	for _, r := range rows {
		p, ok := models.ProductFromRow(r)
		if !ok {
			continue
		}
		p.Disabled = disabled[strings.ToLower(p.Code)]
		if p.Disabled && !includeDisabled {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Products returns every product keyed by code, disabled ones included
func (c *Catalog) Products(ctx context.Context) (map[string]models.Product, error) {
	list, err := c.List(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Product, len(list))
	for _, p := range list {
		if _, dup := out[p.Code]; !dup {
			out[p.Code] = p
		}
	}
	return out, nil
}

// GetProduct returns the product with the given code, or nil when there is none
func (c *Catalog) GetProduct(ctx context.Context, code string) (*models.Product, error) {
	all, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Lookup(all, code), nil
}

// Lookup finds code in an already loaded catalog, exact match first
func Lookup(products map[string]models.Product, code string) *models.Product {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if p, ok := products[code]; ok {
		return &p
	}
	for k, p := range products {
		if strings.EqualFold(k, code) {
			return &p
		}
	}
	return nil
}
