package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/upstream"
)

const productPageSize = 250

var nextLink = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

type Product struct {
	ID       int64
	Title    string
	Variants []Variant
}

type productPayload struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Variants []variantPayload `json:"variants"`
}

// ListProducts pages through every product using cursor links.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	query := url.Values{"limit": []string{fmt.Sprint(productPageSize)}}

	for {
		var out struct {
			Products []productPayload `json:"products"`
		}
		resp, err := c.http.DoJSON(ctx, upstream.Request{
			Method: http.MethodGet,
			Path:   "/products.json?" + query.Encode(),
			Header: c.header(),
		}, &out)
		if err != nil {
			return nil, domain.Upstream("Failed to list Shopify products", upstream.Details(system, err), err)
		}

		for _, p := range out.Products {
			product := Product{ID: p.ID, Title: p.Title}
			for _, vp := range p.Variants {
				if vp.ProductID == 0 {
					vp.ProductID = p.ID
				}
				v, err := toVariant(vp)
				if err != nil {
					return nil, err
				}
				product.Variants = append(product.Variants, *v)
			}
			products = append(products, product)
		}

		pageInfo := nextPageInfo(resp.Header.Get("Link"))
		if pageInfo == "" {
			return products, nil
		}
		query = url.Values{
			"limit":     []string{fmt.Sprint(productPageSize)},
			"page_info": []string{pageInfo},
		}
	}
}

func nextPageInfo(link string) string {
	m := nextLink.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return u.Query().Get("page_info")
}
