package main

import (
	"fmt"
	"strconv"

	"github.com/fjod/acp-checkout/internal/catalog"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/spf13/cobra"
)

const defaultVariantTitle = "Default Title"

func generateCmd(opts *options) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the SKU map from every Shopify variant that has a SKU",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.shopify()
			if err != nil {
				return err
			}
			products, err := client.ListProducts(cmd.Context())
			if err != nil {
				return err
			}

			mappings, skipped := mappingsFromProducts(products)
			fmt.Fprintf(cmd.ErrOrStderr(), "found %d variants with a SKU across %d products (%d without SKU)\n",
				len(mappings), len(products), skipped)

			if save {
				repo, err := opts.openRepo()
				if err != nil {
					return err
				}
				defer repo.Close()
				if err := repo.Upsert(cmd.Context(), mappings); err != nil {
					return err
				}
			}
			return writeSkuMap(cmd.OutOrStdout(), mappings)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "also write the mappings into the database")
	return cmd
}

// mappingsFromProducts maps every variant with a SKU. Duplicate SKUs keep
// the first variant seen.
func mappingsFromProducts(products []shopify.Product) ([]catalog.Mapping, int) {
	var mappings []catalog.Mapping
	seen := make(map[string]bool)
	skipped := 0
	for _, p := range products {
		for _, v := range p.Variants {
			if v.SKU == "" {
				skipped++
				continue
			}
			if seen[v.SKU] {
				continue
			}
			seen[v.SKU] = true

			title := p.Title
			if v.Title != "" && v.Title != defaultVariantTitle {
				title = p.Title + " - " + v.Title
			}
			mappings = append(mappings, catalog.Mapping{
				SKU:       v.SKU,
				VariantID: v.ID,
				ProductID: strconv.FormatInt(p.ID, 10),
				Title:     title,
			})
		}
	}
	return mappings, skipped
}
