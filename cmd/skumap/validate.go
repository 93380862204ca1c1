package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/acp-checkout/internal/catalog"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/spf13/cobra"
)

type variantFetcher interface {
	GetVariant(ctx context.Context, variantID int64) (*shopify.Variant, error)
}

type mappingDeleter interface {
	Delete(ctx context.Context, sku string) error
}

func validateCmd(opts *options) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that every mapped variant still exists in Shopify",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.shopify()
			if err != nil {
				return err
			}
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			mappings, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			stale, err := staleMappings(cmd.Context(), mappings, client)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range stale {
				fmt.Fprintf(out, "missing: %s -> variant %d\n", m.SKU, m.VariantID)
			}
			fmt.Fprintf(out, "%d of %d mappings point at missing variants\n", len(stale), len(mappings))

			if len(stale) == 0 {
				return nil
			}
			if !fix {
				return fmt.Errorf("sku map has %d stale mappings, rerun with --fix to remove them", len(stale))
			}
			if err := removeMappings(cmd.Context(), repo, stale); err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %d stale mappings\n", len(stale))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "delete mappings whose variant no longer exists")
	return cmd
}

// staleMappings returns the mappings whose variant Shopify reports as gone.
// Any other failure aborts the run so a flaky call never drops a mapping.
func staleMappings(ctx context.Context, mappings []catalog.Mapping, variants variantFetcher) ([]catalog.Mapping, error) {
	var stale []catalog.Mapping
	for _, m := range mappings {
		_, err := variants.GetVariant(ctx, m.VariantID)
		switch {
		case err == nil:
		case errors.Is(err, shopify.ErrVariantNotFound):
			stale = append(stale, m)
		default:
			return nil, fmt.Errorf("check %s: %w", m.SKU, err)
		}
	}
	return stale, nil
}

func removeMappings(ctx context.Context, repo mappingDeleter, stale []catalog.Mapping) error {
	for _, m := range stale {
		if err := repo.Delete(ctx, m.SKU); err != nil {
			return fmt.Errorf("delete %s: %w", m.SKU, err)
		}
	}
	return nil
}
