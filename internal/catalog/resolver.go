package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"golang.org/x/sync/singleflight"
)

type MappingLookup interface {
	BySKU(ctx context.Context, sku string) (*Mapping, error)
	ByProductID(ctx context.Context, productID string) (*Mapping, error)
}

type VariantFetcher interface {
	GetVariant(ctx context.Context, variantID int64) (*shopify.Variant, error)
}

// Resolver turns client line items into priced catalog items.
type Resolver struct {
	mappings MappingLookup
	variants VariantFetcher
	sfg      singleflight.Group
}

func NewResolver(mappings MappingLookup, variants VariantFetcher) *Resolver {
	return &Resolver{mappings: mappings, variants: variants}
}

// ResolveVariant maps item to a variant and fills price and title from the
// platform. The sku wins when both sku and productId are present.
func (r *Resolver) ResolveVariant(ctx context.Context, item domain.ItemRequest) (domain.CheckoutItem, error) {
	out := domain.CheckoutItem{SKU: item.SKU, ProductID: item.ProductID, Quantity: item.Quantity}

	var (
		m   *Mapping
		err error
	)
	switch {
	case item.SKU != "":
		m, err = r.mappings.BySKU(ctx, item.SKU)
	case item.ProductID != "":
		m, err = r.mappings.ByProductID(ctx, item.ProductID)
	default:
		return out, domain.BadRequest("Each item must include sku or resolvable productId")
	}
	if errors.Is(err, ErrSkuNotMapped) {
		return out, domain.NotFound(fmt.Sprintf("%s not mapped to Shopify variant. Add to SHOPIFY_SKU_MAP.", describe(item)))
	}
	if err != nil {
		return out, fmt.Errorf("sku map lookup: %w", err)
	}

	v, err := r.variant(ctx, m.VariantID)
	if err != nil {
		return out, err
	}

	out.VariantID = m.VariantID
	out.UnitPrice = v.Price
	out.Title = v.Title
	if out.Title == "" {
		out.Title = m.Title
	}
	return out, nil
}

// variant de-duplicates concurrent fetches of the same variant.
func (r *Resolver) variant(ctx context.Context, id int64) (shopify.Variant, error) {
	v, err, _ := r.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		return r.variants.GetVariant(ctx, id)
	})
	if err != nil {
		return shopify.Variant{}, err
	}
	return *v.(*shopify.Variant), nil
}

func describe(item domain.ItemRequest) string {
	if item.SKU != "" {
		return "SKU " + item.SKU
	}
	return "Product " + item.ProductID
}
